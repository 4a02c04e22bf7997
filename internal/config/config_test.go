package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_AppliesDefaults(t *testing.T) {
	v, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MapPollAPs != 10 {
		t.Errorf("MapPollAPs = %d, want 10", cfg.MapPollAPs)
	}
	if cfg.RemoteSyncRetries != 3 {
		t.Errorf("RemoteSyncRetries = %d, want 3", cfg.RemoteSyncRetries)
	}
}

func TestNew_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"map_poll_aps": 5, "reports_dir": "/tmp/out"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MapPollAPs != 5 {
		t.Errorf("MapPollAPs = %d, want 5", cfg.MapPollAPs)
	}
	if cfg.ReportsDir != "/tmp/out" {
		t.Errorf("ReportsDir = %q, want /tmp/out", cfg.ReportsDir)
	}
	// Unset keys should still carry their default.
	if cfg.MapClusterCapacity != 8 {
		t.Errorf("MapClusterCapacity = %d, want 8 (default)", cfg.MapClusterCapacity)
	}
}

func TestNew_MissingFileIsNotAnError(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("New with missing file: %v", err)
	}
}

func TestManager_MergeRejectsUnknownField(t *testing.T) {
	v, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m, err := NewManager(v)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	_, err = m.Merge(map[string]any{"not_a_real_field": 1})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestManager_MergeAppliesKnownField(t *testing.T) {
	v, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m, err := NewManager(v)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg, err := m.Merge(map[string]any{"map_poll_aps": 99})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if cfg.MapPollAPs != 99 {
		t.Errorf("MapPollAPs = %d, want 99", cfg.MapPollAPs)
	}
	if m.Current().MapPollAPs != 99 {
		t.Errorf("Current().MapPollAPs = %d, want 99", m.Current().MapPollAPs)
	}
}

func TestManager_MergeLeavesConfigUntouchedOnValidationFailure(t *testing.T) {
	v, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m, err := NewManager(v)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	beforeVal := m.Current().MapPollAPs

	_, err = m.Merge(map[string]any{"map_poll_aps": 1, "bogus": true})
	if err == nil {
		t.Fatal("expected error")
	}
	if m.Current().MapPollAPs != beforeVal {
		t.Error("expected config unchanged after rejected merge")
	}
}
