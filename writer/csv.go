package writer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"finflow/models"
)

// encodeCSV renders a dataset as CSV text, header first, using the
// requested line terminator.
func encodeCSV(dataset *models.Dataset, lineTerm string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = lineTerm == "\r\n"

	if err := w.Write(dataset.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, row := range dataset.Rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
