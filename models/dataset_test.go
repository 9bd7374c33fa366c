package models

import (
	"testing"
	"time"
)

func barDataset(dates ...string) *Dataset {
	ds := &Dataset{Columns: []string{"<DATE>", "<TIME>", "<CLOSE>"}}
	for _, d := range dates {
		ds.Rows = append(ds.Rows, []string{d, "000000", "1.0"})
	}
	return ds
}

func TestDatasetLastDate(t *testing.T) {
	ds := barDataset("20200101", "20200102", "20200103")
	got, err := ds.LastDate()
	if err != nil {
		t.Fatalf("last date: %v", err)
	}
	want := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDatasetLastDateErrors(t *testing.T) {
	if _, err := (&Dataset{Columns: []string{"<DATE>"}}).LastDate(); err == nil {
		t.Fatalf("expected error for empty dataset")
	}
	noDate := &Dataset{Columns: []string{"<TIME>"}, Rows: [][]string{{"000000"}}}
	if _, err := noDate.LastDate(); err == nil {
		t.Fatalf("expected error for missing date column")
	}
	bad := barDataset("2020-01-03")
	if _, err := bad.LastDate(); err == nil {
		t.Fatalf("expected error for malformed date cell")
	}
}

func TestDatasetRowCountNil(t *testing.T) {
	var ds *Dataset
	if ds.RowCount() != 0 {
		t.Fatalf("nil dataset should have zero rows")
	}
	if !ds.Empty() {
		t.Fatalf("nil dataset should be empty")
	}
}
