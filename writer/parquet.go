package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"finflow/models"
)

// headerMetadataKey stores the original bracket-named header in the parquet
// footer so a decode reproduces the provider's column names exactly.
const headerMetadataKey = "finflow.columns"

type memFileWriter struct{ buffer *bytes.Buffer }

func newMemFileWriter() *memFileWriter { return &memFileWriter{buffer: &bytes.Buffer{}} }

func (m *memFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFileWriter) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFileWriter) Read([]byte) (int, error)                  { return 0, nil }
func (m *memFileWriter) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFileWriter) Close() error                              { return nil }
func (m *memFileWriter) Bytes() []byte                             { return m.buffer.Bytes() }

// memFileReader serves a parquet payload from memory. Open hands out an
// independent reader over the same bytes because the column readers reopen
// the file for every chunk.
type memFileReader struct {
	data []byte
	r    *bytes.Reader
}

func newMemFileReader(data []byte) *memFileReader {
	return &memFileReader{data: data, r: bytes.NewReader(data)}
}

func (m *memFileReader) Create(string) (source.ParquetFile, error) {
	return nil, fmt.Errorf("parquet reader is read only")
}
func (m *memFileReader) Open(string) (source.ParquetFile, error) { return newMemFileReader(m.data), nil }
func (m *memFileReader) Seek(offset int64, whence int) (int64, error) {
	return m.r.Seek(offset, whence)
}
func (m *memFileReader) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *memFileReader) Write([]byte) (int, error) {
	return 0, fmt.Errorf("parquet reader is read only")
}
func (m *memFileReader) Close() error { return nil }

var columnNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// sanitizeColumns maps provider headers like "<DATE>" to parquet-friendly
// field names, keeping them unique.
func sanitizeColumns(columns []string) []string {
	out := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, col := range columns {
		name := strings.ToLower(columnNameSanitizer.ReplaceAllString(col, ""))
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// encodeBinary renders a dataset as a parquet payload. All values stay
// strings, matching what the export service sent; the raw header travels in
// the footer metadata.
func encodeBinary(dataset *models.Dataset) ([]byte, error) {
	md := make([]string, len(dataset.Columns))
	for i, name := range sanitizeColumns(dataset.Columns) {
		md[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN", name)
	}

	mw := newMemFileWriter()
	pw, err := writer.NewCSVWriter(md, mw, 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	header, err := json.Marshal(dataset.Columns)
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	headerValue := string(header)
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{
		Key:   headerMetadataKey,
		Value: &headerValue,
	})

	for n, row := range dataset.Rows {
		if len(row) != len(md) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", n, len(row), len(md))
		}
		rec := make([]*string, len(row))
		for i := range row {
			v := row[i]
			rec[i] = &v
		}
		if err := pw.WriteString(rec); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mw.Bytes(), nil
}

// decodeBinary reads a parquet payload produced by encodeBinary back into
// a dataset.
func decodeBinary(data []byte) (*models.Dataset, error) {
	pr, err := reader.NewParquetColumnReader(newMemFileReader(data), 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet payload: %w", err)
	}
	defer pr.ReadStop()

	var columns []string
	for _, kv := range pr.Footer.KeyValueMetadata {
		if kv.GetKey() == headerMetadataKey && kv.Value != nil {
			if err := json.Unmarshal([]byte(*kv.Value), &columns); err != nil {
				return nil, fmt.Errorf("unmarshal header metadata: %w", err)
			}
			break
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("column header metadata missing")
	}

	num := pr.GetNumRows()
	rows := make([][]string, num)
	for i := range rows {
		rows[i] = make([]string, len(columns))
	}

	for col := 0; col < len(columns); col++ {
		values, _, _, err := pr.ReadColumnByIndex(int64(col), num)
		if err != nil {
			return nil, fmt.Errorf("read column %d: %w", col, err)
		}
		if int64(len(values)) != num {
			return nil, fmt.Errorf("column %d has %d values, expected %d", col, len(values), num)
		}
		for i, v := range values {
			if s, ok := v.(string); ok {
				rows[i][col] = s
			} else {
				rows[i][col] = fmt.Sprintf("%v", v)
			}
		}
	}

	return &models.Dataset{Columns: columns, Rows: rows}, nil
}

func xzBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := xw.Write(data); err != nil {
		return nil, err
	}
	if err := xw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unxzBytes(data []byte) ([]byte, error) {
	xr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(xr)
}
