package writer

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"finflow/models"
)

func TestPersistPlainCSV(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("\r\n", nil)
	target := DeriveTarget(dir, "SBER", models.TimeframeDaily, models.FormatCSV, "csv")
	fresh := sampleDataset()

	added, err := store.Persist(context.Background(), target, fresh, nil, false)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if added != fresh.RowCount() {
		t.Errorf("added = %d, want %d", added, fresh.RowCount())
	}

	data, err := os.ReadFile(target.Path)
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "<DATE>,<TIME>,<OPEN>,<CLOSE>\r\n") {
		t.Errorf("unexpected header line: %q", text[:min(len(text), 40)])
	}
	if !strings.Contains(text, "20200114,00:00:00,259.0,258.4\r\n") {
		t.Errorf("row missing from output: %q", text)
	}
}

func TestPersistUnixLineTerminator(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("\n", nil)
	target := DeriveTarget(dir, "SBER", models.TimeframeDaily, models.FormatCSV, "csv")

	if _, err := store.Persist(context.Background(), target, sampleDataset(), nil, false); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	data, err := os.ReadFile(target.Path)
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if bytes.Contains(data, []byte("\r")) {
		t.Error("lf output must not contain carriage returns")
	}
}

func TestPersistGzippedCSV(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("\r\n", nil)
	target := DeriveTarget(dir, "SBER", models.TimeframeDaily, models.FormatCSVGZ, "csv")

	if _, err := store.Persist(context.Background(), target, sampleDataset(), nil, false); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	f, err := os.Open(target.Path)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("open gzip stream: %v", err)
	}
	text, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read gzip stream: %v", err)
	}
	if !strings.HasPrefix(string(text), "<DATE>,<TIME>,<OPEN>,<CLOSE>\r\n") {
		t.Errorf("unexpected decompressed content: %q", text)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore("\r\n", nil)
	target := DeriveTarget(t.TempDir(), "SBER", models.TimeframeDaily, models.FormatPKL, "csv")

	dataset, err := store.Load(target)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if dataset != nil {
		t.Errorf("expected nil dataset for missing file, got %v", dataset)
	}
}

func TestPersistAndLoadBinary(t *testing.T) {
	for _, format := range []models.FileFormat{models.FormatPKL, models.FormatPKLXZ} {
		t.Run(format.String(), func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore("\r\n", nil)
			target := DeriveTarget(dir, "SBER", models.TimeframeDaily, format, "csv")
			fresh := sampleDataset()

			if _, err := store.Persist(context.Background(), target, fresh, nil, false); err != nil {
				t.Fatalf("Persist failed: %v", err)
			}
			loaded, err := store.Load(target)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(loaded.Rows, fresh.Rows) {
				t.Errorf("rows = %v, want %v", loaded.Rows, fresh.Rows)
			}
		})
	}
}

func TestPersistAppendMerges(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("\r\n", nil)
	target := DeriveTarget(dir, "SBER", models.TimeframeDaily, models.FormatPKL, "csv")

	first := &models.Dataset{
		Columns: []string{"<DATE>", "<CLOSE>"},
		Rows: [][]string{
			{"20200101", "100"},
			{"20200102", "101"},
		},
	}
	if _, err := store.Persist(context.Background(), target, first, nil, false); err != nil {
		t.Fatalf("initial Persist failed: %v", err)
	}

	local, err := store.Load(target)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	second := &models.Dataset{
		Columns: []string{"<DATE>", "<CLOSE>"},
		Rows: [][]string{
			{"20200102", "101"},
			{"20200103", "102"},
		},
	}
	added, err := store.Persist(context.Background(), target, second, local, true)
	if err != nil {
		t.Fatalf("append Persist failed: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	final, err := store.Load(target)
	if err != nil {
		t.Fatalf("final Load failed: %v", err)
	}
	wantDates := []string{"20200101", "20200102", "20200103"}
	if final.RowCount() != len(wantDates) {
		t.Fatalf("expected %d rows, got %d", len(wantDates), final.RowCount())
	}
	for i, date := range wantDates {
		if final.Rows[i][0] != date {
			t.Errorf("row %d date = %s, want %s", i, final.Rows[i][0], date)
		}
	}
}

func TestPersistAppendWithoutLocal(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("\r\n", nil)
	target := DeriveTarget(dir, "SBER", models.TimeframeDaily, models.FormatPKL, "csv")
	fresh := sampleDataset()

	added, err := store.Persist(context.Background(), target, fresh, nil, true)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if added != fresh.RowCount() {
		t.Errorf("added = %d, want %d", added, fresh.RowCount())
	}
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore("\r\n", nil)
	target := DeriveTarget(dir, "SBER", models.TimeframeDaily, models.FormatPKL, "csv")

	if _, err := store.Persist(context.Background(), target, sampleDataset(), nil, false); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the target file, found %v", names)
	}
	if entries[0].Name() != filepath.Base(target.Path) {
		t.Errorf("unexpected file name %s", entries[0].Name())
	}
}
