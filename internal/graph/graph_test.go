package graph

import (
	"encoding/json"
	"fmt"
	"testing"

	"graphfs/internal/tree"
)

func pdir(path string, children ...*tree.PrunedNode) *tree.PrunedNode {
	return &tree.PrunedNode{Name: path, Path: path, Kind: tree.KindDirectory, Children: children, Dir: &tree.DirCounts{}}
}

func pfile(path string) *tree.PrunedNode {
	return &tree.PrunedNode{Name: path, Path: path, Kind: tree.KindFile}
}

func sample() *tree.PrunedNode {
	return pdir("/r",
		pdir("/r/a",
			pfile("/r/a/1"),
			pdir("/r/a/b", pfile("/r/a/b/2"))),
		pfile("/r/3"),
		&tree.PrunedNode{
			Name: "... +1 files", Path: "/r/__more_files__", Kind: tree.KindMoreFiles,
			More: &tree.Placeholder{Hidden: 1, Total: 2, Items: []*tree.PrunedNode{pfile("/r/4")}},
		},
	)
}

func ids(nodes []*Node) string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return fmt.Sprint(out)
}

func TestFlattenPreOrder(t *testing.T) {
	nodes, edges := Flatten(sample())

	want := "[/r /r/a /r/a/1 /r/a/b /r/a/b/2 /r/3 /r/__more_files__]"
	if got := ids(nodes); got != want {
		t.Fatalf("order = %s; want %s", got, want)
	}
	if len(edges) != len(nodes)-1 {
		t.Fatalf("edges = %d; want %d", len(edges), len(nodes)-1)
	}

	depth := map[string]int{"/r": 0, "/r/a": 1, "/r/a/1": 2, "/r/a/b": 2, "/r/a/b/2": 3, "/r/3": 1, "/r/__more_files__": 1}
	for _, n := range nodes {
		if n.Depth != depth[n.ID] {
			t.Errorf("depth(%s) = %d; want %d", n.ID, n.Depth, depth[n.ID])
		}
	}
	if !nodes[0].IsRoot() || nodes[0].ParentID != "" {
		t.Fatalf("root should have no parent")
	}
	for _, e := range edges {
		if e.Source == "" || e.Target == "" {
			t.Fatalf("bad edge %+v", e)
		}
	}
	more := nodes[len(nodes)-1]
	if !more.IsPlaceholder() || more.HiddenCount() != 1 {
		t.Fatalf("placeholder not carried: %+v", more)
	}
}

func TestWeightsConservation(t *testing.T) {
	nodes, _ := Flatten(sample())
	w := Weights(nodes)

	if w["/r"] != len(nodes) {
		t.Fatalf("root weight = %d; want %d", w["/r"], len(nodes))
	}
	children := map[string][]string{}
	for _, n := range nodes {
		if n.ParentID != "" {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}
	for _, n := range nodes {
		sum := 1
		for _, c := range children[n.ID] {
			sum += w[c]
		}
		if w[n.ID] != sum {
			t.Errorf("weight(%s) = %d; want %d", n.ID, w[n.ID], sum)
		}
	}
}

func TestWeightsAnyOrder(t *testing.T) {
	nodes, _ := Flatten(sample())
	rev := make([]*Node, len(nodes))
	for i, n := range nodes {
		rev[len(nodes)-1-i] = n
	}
	a, b := Weights(nodes), Weights(rev)
	for id, v := range a {
		if b[id] != v {
			t.Errorf("weight(%s) = %d reversed; want %d", id, b[id], v)
		}
	}
}

func TestMaterialize(t *testing.T) {
	parent := &Node{ID: "/r", Depth: 0, Kind: tree.KindDirectory}
	items := []*tree.PrunedNode{pdir("/r/x", pfile("/r/x/y")), pfile("/r/z")}

	nodes, edges := Materialize(items, parent)

	if got := ids(nodes); got != "[/r/x /r/x/y /r/z]" {
		t.Fatalf("materialized = %s", got)
	}
	for _, n := range nodes {
		if !n.Expanded {
			t.Errorf("%s not marked expanded", n.ID)
		}
	}
	if nodes[0].Depth != 1 || nodes[1].Depth != 2 {
		t.Fatalf("depths = %d, %d", nodes[0].Depth, nodes[1].Depth)
	}
	if len(edges) != 3 || edges[0] != (Edge{"/r", "/r/x"}) {
		t.Fatalf("edges = %+v", edges)
	}
}

func TestIndexRebuildsOnRevisionChange(t *testing.T) {
	nodes, edges := Flatten(sample())
	ix := NewIndex()

	if !ix.Sync(1, nodes, edges) {
		t.Fatalf("first sync should build")
	}
	if ix.Sync(1, nodes, edges) {
		t.Fatalf("same revision should not rebuild")
	}
	if ix.Builds() != 1 {
		t.Fatalf("builds = %d; want 1", ix.Builds())
	}

	shorter := nodes[:2]
	if !ix.Sync(2, shorter, edges[:1]) {
		t.Fatalf("new revision should rebuild")
	}
	if _, ok := ix.Node("/r/3"); ok {
		t.Fatalf("stale node still indexed after rebuild")
	}
	if ix.Revision() != 2 {
		t.Fatalf("revision = %d; want 2", ix.Revision())
	}
}

func TestIndexLookups(t *testing.T) {
	nodes, edges := Flatten(sample())
	ix := NewIndex()
	ix.Sync(1, nodes, edges)

	if e, ok := ix.Incoming("/r/a/b/2"); !ok || e.Source != "/r/a/b" {
		t.Fatalf("incoming = %+v, %v", e, ok)
	}
	if _, ok := ix.Incoming("/r"); ok {
		t.Fatalf("root has no incoming edge")
	}
	if got := ids(ix.Children("/r")); got != "[/r/a /r/3 /r/__more_files__]" {
		t.Fatalf("children = %s", got)
	}
	if got := ids(ix.Descendants("/r/a")); got != "[/r/a/1 /r/a/b /r/a/b/2]" {
		t.Fatalf("descendants = %s", got)
	}

	path := ix.PathToRoot("/r/a/b/2")
	want := []Edge{{"/r/a/b", "/r/a/b/2"}, {"/r/a", "/r/a/b"}, {"/r", "/r/a"}}
	if fmt.Sprint(path) != fmt.Sprint(want) {
		t.Fatalf("path = %v; want %v", path, want)
	}
}

func TestRecency(t *testing.T) {
	nodes := []*Node{
		{ID: "a", Mtime: 1000},
		{ID: "b", Mtime: 2000},
		{ID: "m", Kind: tree.KindMoreFiles, Mtime: 99999},
		{ID: "z"},
	}
	min, max, ok := MtimeRange(nodes)
	if !ok || min != 1000 || max != 2000 {
		t.Fatalf("range = %d..%d %v", min, max, ok)
	}

	tests := []struct {
		mtime int64
		want  float64
	}{
		{1000, 0},
		{2000, 1},
		{0, 0.5},
	}
	for _, tt := range tests {
		if got := Recency(tt.mtime, min, max); got != tt.want {
			t.Errorf("Recency(%d) = %v; want %v", tt.mtime, got, tt.want)
		}
	}
	if got := Recency(1500, 1000, 1000); got != 0.5 {
		t.Errorf("empty range = %v; want 0.5", got)
	}
}

func TestNodeJSONCarriesHiddenCount(t *testing.T) {
	nodes, _ := Flatten(sample())
	tests := []struct {
		id   string
		want int
	}{
		{"/r/__more_files__", 1},
		{"/r/a", 0},
		{"/r/3", 0},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var n *Node
			for _, c := range nodes {
				if c.ID == tt.id {
					n = c
				}
			}
			if n == nil {
				t.Fatalf("node %s not flattened", tt.id)
			}
			// marshal by value, as view snapshots hold Node values
			data, err := json.Marshal([]Node{*n})
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var got []map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			count, _ := got[0]["hiddenCount"].(float64)
			if int(count) != tt.want {
				t.Errorf("hiddenCount = %v; want %d", got[0]["hiddenCount"], tt.want)
			}
			if got[0]["id"] != tt.id || got[0]["type"] == nil {
				t.Errorf("marshaled node = %v; want id %s and a type", got[0], tt.id)
			}
		})
	}
}
