package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"finflow/models"
)

// DateLayout is the calendar layout accepted on the command line.
const DateLayout = "2006-01-02"

// ValidationError describes a rejected run option. It is always raised
// before any network activity takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RunOptions carries the raw command line values for a single invocation.
type RunOptions struct {
	Contracts  string
	Market     string
	Timeframe  string
	DestDir    string
	SkipErr    bool
	LineTerm   string
	Delay      int
	StartDate  string
	EndDate    string
	Ext        string
	FileFormat string
	Append     bool
}

// RunConfig is the validated, typed form of RunOptions.
type RunConfig struct {
	Contracts  []string
	Market     models.Market
	HasMarket  bool
	Timeframe  models.Timeframe
	DestDir    string
	SkipErr    bool
	LineTerm   string
	Delay      time.Duration
	StartDate  time.Time
	EndDate    time.Time
	Ext        string
	FileFormat models.FileFormat
	Append     bool
}

// NewRunConfig parses and validates the raw options. Any failure is a
// *ValidationError naming the offending field.
func NewRunConfig(opts RunOptions) (*RunConfig, error) {
	rc := &RunConfig{
		DestDir: opts.DestDir,
		SkipErr: opts.SkipErr,
		Ext:     opts.Ext,
		Append:  opts.Append,
	}

	for _, code := range strings.Split(opts.Contracts, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			rc.Contracts = append(rc.Contracts, code)
		}
	}

	if len(rc.Contracts) == 0 && opts.Market == "" {
		return nil, &ValidationError{Field: "contracts", Reason: "neither contracts nor market is specified"}
	}

	if opts.Market != "" {
		market, err := models.ParseMarket(opts.Market)
		if err != nil {
			return nil, &ValidationError{Field: "market", Reason: err.Error()}
		}
		rc.Market = market
		rc.HasMarket = true
	}

	timeframe, err := models.ParseTimeframe(opts.Timeframe)
	if err != nil {
		return nil, &ValidationError{Field: "timeframe", Reason: err.Error()}
	}
	rc.Timeframe = timeframe

	format, err := models.ParseFileFormat(opts.FileFormat)
	if err != nil {
		return nil, &ValidationError{Field: "fileformat", Reason: err.Error()}
	}
	rc.FileFormat = format

	if rc.Append && format.IsCSVFamily() {
		return nil, &ValidationError{Field: "append", Reason: "cannot append to a csv file"}
	}

	if opts.Delay < 0 || opts.Delay > 600 {
		return nil, &ValidationError{Field: "delay", Reason: "must be between 0 and 600 seconds"}
	}
	rc.Delay = time.Duration(opts.Delay) * time.Second

	switch strings.ToLower(opts.LineTerm) {
	case "crlf":
		rc.LineTerm = "\r\n"
	case "lf":
		rc.LineTerm = "\n"
	default:
		return nil, &ValidationError{Field: "lineterm", Reason: fmt.Sprintf("unknown line terminator '%s'", opts.LineTerm)}
	}

	rc.StartDate, err = time.Parse(DateLayout, opts.StartDate)
	if err != nil {
		return nil, &ValidationError{Field: "startdate", Reason: fmt.Sprintf("'%s' does not match %s", opts.StartDate, DateLayout)}
	}

	if opts.EndDate == "" {
		now := time.Now()
		rc.EndDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		rc.EndDate, err = time.Parse(DateLayout, opts.EndDate)
		if err != nil {
			return nil, &ValidationError{Field: "enddate", Reason: fmt.Sprintf("'%s' does not match %s", opts.EndDate, DateLayout)}
		}
	}

	if rc.DestDir == "" {
		return nil, &ValidationError{Field: "destdir", Reason: "is required"}
	}
	info, err := os.Stat(rc.DestDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ValidationError{Field: "destdir", Reason: fmt.Sprintf("'%s' does not exist", rc.DestDir)}
		}
		return nil, &ValidationError{Field: "destdir", Reason: err.Error()}
	}
	if !info.IsDir() {
		return nil, &ValidationError{Field: "destdir", Reason: fmt.Sprintf("'%s' is not a directory", rc.DestDir)}
	}

	return rc, nil
}
