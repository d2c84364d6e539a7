package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitWritesJSONToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "graphfs.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: out}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Debug("scan started", zap.String("root", "/r"))
	_ = Sync()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"root":"/r"`) {
		t.Errorf("log file = %q; want a JSON entry with the root field", data)
	}
}

func TestLevels(t *testing.T) {
	if err := Init(Config{Level: "bogus", OutputPath: filepath.Join(t.TempDir(), "x.log")}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := Level(); got != "info" {
		t.Errorf("Level() after an unknown level = %q; want info", got)
	}
	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if got := Level(); got != "warn" {
		t.Errorf("Level() = %q; want warn", got)
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) succeeded")
	}
}

func TestOr(t *testing.T) {
	l := zap.NewNop()
	if Or(l) != l {
		t.Error("Or(l) did not return l")
	}
	if Or(nil) == nil {
		t.Error("Or(nil) = nil; want the global logger")
	}
}
