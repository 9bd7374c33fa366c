package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGeneratorWritesReport(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator()
	gen.Add(Entry{
		Contract:   "SBER",
		Timeframe:  "DAILY",
		Path:       filepath.Join(dir, "SBER-DAILY.pkl"),
		Rows:       120,
		Added:      120,
		DurationMs: 450,
	})
	gen.Add(Entry{
		Contract:  "NOPE",
		Timeframe: "DAILY",
		Skipped:   true,
		Error:     "export of NOPE failed (http, status 404): request failed",
	})

	path, err := gen.Write(dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "finflow-run-") {
		t.Fatalf("unexpected report name %q", filepath.Base(path))
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var summary Summary
	if err := json.Unmarshal(b, &summary); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if summary.RunID != gen.RunID() {
		t.Errorf("run id %q, want %q", summary.RunID, gen.RunID())
	}
	if summary.Contracts != 2 || summary.Succeeded != 1 || summary.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1",
			summary.Contracts, summary.Succeeded, summary.Skipped)
	}
	if summary.TotalRows != 120 || summary.TotalAdded != 120 {
		t.Errorf("totals = %d/%d, want 120/120", summary.TotalRows, summary.TotalAdded)
	}
	if len(summary.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(summary.Entries))
	}
	if summary.Entries[0].Contract != "SBER" || summary.Entries[1].Skipped != true {
		t.Errorf("unexpected entries: %+v", summary.Entries)
	}
}

func TestGeneratorSnapshot(t *testing.T) {
	gen := NewGenerator()
	gen.SetPlanned(3)
	gen.Add(Entry{Contract: "SBER", Timeframe: "DAILY", Rows: 10, Added: 10})

	snap := gen.Snapshot()
	if snap.Planned != 3 || snap.Contracts != 1 || snap.Succeeded != 1 {
		t.Fatalf("snapshot = %d planned, %d contracts, %d succeeded, want 3/1/1",
			snap.Planned, snap.Contracts, snap.Succeeded)
	}

	// A snapshot is a copy; later outcomes must not leak into it.
	gen.Add(Entry{Contract: "GAZP", Timeframe: "DAILY", Rows: 5, Added: 5})
	if len(snap.Entries) != 1 {
		t.Fatalf("snapshot entries grew to %d after Add", len(snap.Entries))
	}
}

func TestGeneratorCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")
	gen := NewGenerator()
	gen.Add(Entry{Contract: "GAZP", Timeframe: "HOURLY", Rows: 5, Added: 5})
	if _, err := gen.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one report file, found %d", len(entries))
	}
}
