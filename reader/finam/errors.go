package finam

import (
	"fmt"

	"finflow/models"
)

// Export failure kinds carried by ExportError.
const (
	KindHTTP      = "http"
	KindThrottled = "throttled"
	KindParse     = "parse"
	KindEmpty     = "empty"
)

// NotFoundError reports a contract code missing from the instrument
// directory. It aborts the run and is never skipped.
type NotFoundError struct {
	Code   string
	Market models.Market
}

func (e *NotFoundError) Error() string {
	if e.Market != models.MarketUnset {
		return fmt.Sprintf("instrument %q not found on market %s", e.Code, e.Market)
	}
	return fmt.Sprintf("instrument %q not found", e.Code)
}

// ExportError reports a failed or unusable export download. Depending on
// the run options it either aborts the run or skips the instrument.
type ExportError struct {
	Code   string
	Kind   string
	Status int
	Detail string
}

func (e *ExportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("export of %s failed (%s, status %d): %s", e.Code, e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("export of %s failed (%s): %s", e.Code, e.Kind, e.Detail)
}
