//go:build linux

package platform

import "testing"

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		p, root string
		want    bool
	}{
		{"/a/b", "/a", true},
		{"/a", "/a", true},
		{"/a/", "/a", true},
		{"/ab", "/a", false},
		{"/x/y", "/", true},
		{"/A/b", "/a", false},
	}
	for _, tt := range tests {
		if got := HasPathPrefix(tt.p, tt.root); got != tt.want {
			t.Errorf("HasPathPrefix(%q, %q) = %v; want %v", tt.p, tt.root, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/", "/"},
		{"/home/user", "user"},
		{"/home/user/", "user"},
	}
	for _, tt := range tests {
		if got := Impl.BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	if got := Impl.Canonicalize("/a/b/../c/"); got != "/a/c" {
		t.Fatalf("Canonicalize = %q; want /a/c", got)
	}
}
