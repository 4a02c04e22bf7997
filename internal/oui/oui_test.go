package oui

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "oui.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestTable_LookupKnownPrefix(t *testing.T) {
	path := writeCSV(t, "Assignment,Organization Name\nAABBCC,Acme Wireless\n")
	tbl := New(path, zap.NewNop())

	tests := []struct {
		name string
		mac  string
	}{
		{"colon separated", "AA:BB:CC:11:22:33"},
		{"lowercase", "aa:bb:cc:11:22:33"},
		{"bare hex prefix", "AABBCC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor, ok := tbl.Lookup(tt.mac)
			if !ok || vendor != "Acme Wireless" {
				t.Errorf("Lookup(%q) = (%q, %v), want (Acme Wireless, true)", tt.mac, vendor, ok)
			}
		})
	}
}

func TestTable_LookupUnknownPrefix(t *testing.T) {
	path := writeCSV(t, "Assignment,Organization Name\nAABBCC,Acme Wireless\n")
	tbl := New(path, zap.NewNop())

	if _, ok := tbl.Lookup("FF:FF:FF:00:00:00"); ok {
		t.Error("Lookup() for unknown prefix, want ok=false")
	}
	if v := tbl.LookupOrEmpty("FF:FF:FF:00:00:00"); v != "" {
		t.Errorf("LookupOrEmpty() = %q, want empty", v)
	}
}

func TestTable_Reload(t *testing.T) {
	path := writeCSV(t, "Assignment,Organization Name\nAABBCC,Acme Wireless\n")
	tbl := New(path, zap.NewNop())

	if _, ok := tbl.Lookup("AA:BB:CC:00:00:00"); !ok {
		t.Fatal("expected initial lookup to succeed")
	}

	if err := os.WriteFile(path, []byte("Assignment,Organization Name\nAABBCC,Renamed Corp\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := tbl.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	vendor, ok := tbl.Lookup("AA:BB:CC:00:00:00")
	if !ok || vendor != "Renamed Corp" {
		t.Errorf("after Reload Lookup() = (%q, %v), want (Renamed Corp, true)", vendor, ok)
	}
}

func TestTable_MissingFile(t *testing.T) {
	tbl := New(filepath.Join(t.TempDir(), "missing.csv"), zap.NewNop())
	if _, ok := tbl.Lookup("AA:BB:CC:00:00:00"); ok {
		t.Error("Lookup() against missing file, want ok=false")
	}
}
