package models

import (
	"fmt"
	"time"
)

// DateColumn is the header name of the date field in exported series. Finam
// names its CSV columns with angle brackets.
const DateColumn = "<DATE>"

// DateLayout is the wire format of date cells (dtf=1 on the export request).
const DateLayout = "20060102"

// Dataset is a downloaded time series: a provider-defined header and the
// rows beneath it. Besides the date column the cells are opaque; values are
// kept as the strings the provider sent and are never reinterpreted.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// RowCount returns the number of data rows (the header is not a row).
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Empty reports whether the dataset holds no data rows.
func (d *Dataset) Empty() bool { return d.RowCount() == 0 }

// DateColumnIndex locates the date column in the header.
func (d *Dataset) DateColumnIndex() (int, bool) {
	for i, c := range d.Columns {
		if c == DateColumn {
			return i, true
		}
	}
	return 0, false
}

// LastDate parses the date cell of the last row. Used to resume incremental
// downloads from the most recent locally stored record.
func (d *Dataset) LastDate() (time.Time, error) {
	if d.Empty() {
		return time.Time{}, fmt.Errorf("dataset has no rows")
	}
	idx, ok := d.DateColumnIndex()
	if !ok {
		return time.Time{}, fmt.Errorf("dataset has no %s column", DateColumn)
	}
	last := d.Rows[len(d.Rows)-1]
	if idx >= len(last) {
		return time.Time{}, fmt.Errorf("last row has %d cells, date column is %d", len(last), idx)
	}
	t, err := time.Parse(DateLayout, last[idx])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", last[idx], err)
	}
	return t, nil
}
