// Package oui resolves MAC address OUI prefixes to vendor names from a
// CSV file, matching the IEEE-style "Assignment,Organization Name" export
// format.
package oui

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Lookup when no vendor is known for a prefix.
var ErrNotFound = fmt.Errorf("oui: vendor not found")

// Table is a lazily-loaded, reloadable MAC-prefix-to-vendor map. The zero
// value is not usable; construct with New.
type Table struct {
	path   string
	logger *zap.Logger

	once sync.Once
	mu   sync.RWMutex
	m    map[string]string
}

// New creates a Table backed by the CSV file at path. The file is not read
// until the first Lookup or an explicit Reload.
func New(path string, logger *zap.Logger) *Table {
	return &Table{path: path, logger: logger}
}

// Lookup returns the vendor name for bssid's OUI (its first three octets),
// loading the table on first use. ok is false if the prefix is unknown.
func (t *Table) Lookup(bssid string) (vendor string, ok bool) {
	t.once.Do(func() {
		if err := t.Reload(); err != nil && t.logger != nil {
			t.logger.Warn("oui: initial load failed", zap.Error(err), zap.String("path", t.path))
		}
	})

	prefix := normalizePrefix(bssid)
	if prefix == "" {
		return "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.m[prefix]
	return v, ok
}

// LookupOrEmpty is a convenience wrapper for callers that want an empty
// string rather than a bool on miss, matching the teacher's
// OUIResolver.Lookup(mac string) string contract.
func (t *Table) LookupOrEmpty(bssid string) string {
	v, _ := t.Lookup(bssid)
	return v
}

// Reload re-reads the CSV file from disk, replacing the in-memory table
// atomically. Safe to call concurrently with Lookup.
func (t *Table) Reload() error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("oui: open %s: %w", t.path, err)
	}
	defer f.Close()

	m, err := parseCSV(f)
	if err != nil {
		return fmt.Errorf("oui: parse %s: %w", t.path, err)
	}

	t.mu.Lock()
	t.m = m
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Info("oui: table loaded", zap.String("path", t.path), zap.Int("entries", len(m)))
	}
	return nil
}

// parseCSV reads "Assignment,Organization Name" rows (with or without a
// header) into a prefix->vendor map.
func parseCSV(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	m := make(map[string]string)
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(rec) >= 2 && strings.EqualFold(strings.TrimSpace(rec[0]), "Assignment") {
				continue
			}
		}
		if len(rec) < 2 {
			continue
		}
		prefix := normalizePrefix(rec[0])
		vendor := strings.TrimSpace(rec[1])
		if prefix == "" || vendor == "" {
			continue
		}
		m[prefix] = vendor
	}
	return m, nil
}

// normalizePrefix accepts either a full MAC ("AA:BB:CC:DD:EE:FF"), a bare
// hex assignment ("AABBCC"), or a dash/colon-separated prefix, and returns
// the canonical uppercase colon-separated 3-octet form ("AA:BB:CC").
func normalizePrefix(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToUpper(s)
	s = strings.NewReplacer("-", "", ":", "", ".", "").Replace(s)
	if len(s) < 6 {
		return ""
	}
	s = s[:6]
	for _, r := range s {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return ""
		}
	}
	return fmt.Sprintf("%s:%s:%s", s[0:2], s[2:4], s[4:6])
}
