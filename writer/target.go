package writer

import (
	"fmt"
	"path/filepath"

	"finflow/models"
)

// Compression modes applied on top of the encoded payload.
const (
	CompressionNone = ""
	CompressionGzip = "gzip"
	CompressionXZ   = "xz"
)

// Target is the resolved persistence destination for one instrument. It is
// a pure function of the inputs, so repeated runs address the same file.
type Target struct {
	Path        string
	Format      models.FileFormat
	Compression string
}

// DeriveTarget computes the destination file for an instrument code and
// timeframe. The extension parameter only applies to plain CSV output; the
// remaining formats carry fixed suffixes.
func DeriveTarget(destDir, code string, timeframe models.Timeframe, format models.FileFormat, ext string) Target {
	stem := fmt.Sprintf("%s-%s", code, timeframe)

	var suffix, compression string
	switch format {
	case models.FormatCSV:
		suffix = "." + ext
		compression = CompressionNone
	case models.FormatCSVGZ:
		suffix = ".csv.gz"
		compression = CompressionGzip
	case models.FormatPKL:
		suffix = ".pkl"
		compression = CompressionNone
	case models.FormatPKLXZ:
		suffix = ".pkl.xz"
		compression = CompressionXZ
	}

	return Target{
		Path:        filepath.Join(destDir, stem+suffix),
		Format:      format,
		Compression: compression,
	}
}
