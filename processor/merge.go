package processor

import (
	"fmt"
	"strings"

	"finflow/models"
)

// Merge concatenates the local dataset with freshly downloaded rows and
// drops exact duplicate rows, keeping the first occurrence. The returned
// count is the net number of rows added on top of the local dataset; it can
// be negative when the local file itself contained duplicates.
//
// A nil or empty local dataset returns the fresh dataset untouched, so a
// first append run behaves exactly like a plain download.
func Merge(local, fresh *models.Dataset) (*models.Dataset, int, error) {
	if fresh == nil {
		return nil, 0, fmt.Errorf("nothing to merge: fresh dataset is nil")
	}
	if local == nil || local.RowCount() == 0 {
		return fresh, fresh.RowCount(), nil
	}

	if !columnsEqual(local.Columns, fresh.Columns) {
		return nil, 0, fmt.Errorf("column mismatch: local has %v, fresh has %v", local.Columns, fresh.Columns)
	}

	initial := local.RowCount()
	seen := make(map[string]struct{}, initial+fresh.RowCount())
	merged := &models.Dataset{Columns: local.Columns}

	for _, rows := range [][][]string{local.Rows, fresh.Rows} {
		for _, row := range rows {
			key := strings.Join(row, "\x1f")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged.Rows = append(merged.Rows, row)
		}
	}

	return merged, merged.RowCount() - initial, nil
}

func columnsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
