package models

import "time"

// Instrument is one entry of the provider's instrument directory, resolved
// from a user-supplied code. The ID is the opaque identifier the export
// endpoint expects in its "em" parameter.
type Instrument struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Market Market `json:"market"`
	Name   string `json:"name"`
}

// DownloadRequest describes one export call for one instrument.
type DownloadRequest struct {
	Instrument Instrument
	Timeframe  Timeframe
	StartDate  time.Time
	EndDate    time.Time
}
