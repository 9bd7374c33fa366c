package models

import (
	"fmt"
	"sort"
	"strings"
)

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// MARKETS ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// Market identifies a Finam market section. The numeric values are the ids
// the export service expects in its "market" query parameter.
type Market int

const (
	MarketUnset           Market = 0
	MarketShares          Market = 1
	MarketBonds           Market = 2
	MarketCurrenciesWorld Market = 5
	MarketIndexes         Market = 6
	MarketFuturesUSA      Market = 7
	MarketFutures         Market = 14
	MarketFuturesArchive  Market = 17
	MarketCommodities     Market = 24
	MarketUSA             Market = 25
	MarketETF             Market = 28
	MarketCurrencies      Market = 45
	MarketETFMoex         Market = 515
	MarketSPB             Market = 517
)

var marketNames = map[Market]string{
	MarketShares:          "SHARES",
	MarketBonds:           "BONDS",
	MarketCurrenciesWorld: "CURRENCIES_WORLD",
	MarketIndexes:         "INDEXES",
	MarketFuturesUSA:      "FUTURES_USA",
	MarketFutures:         "FUTURES",
	MarketFuturesArchive:  "FUTURES_ARCHIVE",
	MarketCommodities:     "COMMODITIES",
	MarketUSA:             "USA",
	MarketETF:             "ETF",
	MarketCurrencies:      "CURRENCIES",
	MarketETFMoex:         "ETF_MOEX",
	MarketSPB:             "SPB",
}

func (m Market) String() string {
	if name, ok := marketNames[m]; ok {
		return name
	}
	if m == MarketUnset {
		return "UNSET"
	}
	return fmt.Sprintf("MARKET(%d)", int(m))
}

// ID returns the numeric market id used on the wire.
func (m Market) ID() int { return int(m) }

// ParseMarket resolves a market name (case-insensitive) to its enum value.
func ParseMarket(name string) (Market, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for m, n := range marketNames {
		if n == upper {
			return m, nil
		}
	}
	return MarketUnset, fmt.Errorf("unknown market %q (known: %s)", name, strings.Join(MarketNames(), ", "))
}

// MarketNames lists the known market names in alphabetical order.
func MarketNames() []string {
	names := make([]string, 0, len(marketNames))
	for _, n := range marketNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

/////////////////////////////////////////////////////////////////////////////
//////////////////////////////// TIMEFRAMES /////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// Timeframe is the sampling granularity of a downloaded series. The numeric
// values are the Finam period codes passed in the "p" query parameter.
type Timeframe int

const (
	TimeframeTicks     Timeframe = 1
	TimeframeMinutes1  Timeframe = 2
	TimeframeMinutes5  Timeframe = 3
	TimeframeMinutes10 Timeframe = 4
	TimeframeMinutes15 Timeframe = 5
	TimeframeMinutes30 Timeframe = 6
	TimeframeHourly    Timeframe = 7
	TimeframeDaily     Timeframe = 8
	TimeframeWeekly    Timeframe = 9
	TimeframeMonthly   Timeframe = 10
)

var timeframeNames = map[Timeframe]string{
	TimeframeTicks:     "TICKS",
	TimeframeMinutes1:  "MINUTES1",
	TimeframeMinutes5:  "MINUTES5",
	TimeframeMinutes10: "MINUTES10",
	TimeframeMinutes15: "MINUTES15",
	TimeframeMinutes30: "MINUTES30",
	TimeframeHourly:    "HOURLY",
	TimeframeDaily:     "DAILY",
	TimeframeWeekly:    "WEEKLY",
	TimeframeMonthly:   "MONTHLY",
}

func (t Timeframe) String() string {
	if name, ok := timeframeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TIMEFRAME(%d)", int(t))
}

// Code returns the numeric period code used on the wire.
func (t Timeframe) Code() int { return int(t) }

// ParseTimeframe resolves a timeframe name (case-insensitive) to its enum value.
func ParseTimeframe(name string) (Timeframe, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range timeframeNames {
		if n == upper {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown timeframe %q (known: %s)", name, strings.Join(TimeframeNames(), ", "))
}

// TimeframeNames lists the known timeframe names in period-code order.
func TimeframeNames() []string {
	frames := make([]Timeframe, 0, len(timeframeNames))
	for t := range timeframeNames {
		frames = append(frames, t)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })
	names := make([]string, len(frames))
	for i, t := range frames {
		names[i] = timeframeNames[t]
	}
	return names
}

/////////////////////////////////////////////////////////////////////////////
//////////////////////////////// FILE FORMATS ///////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// FileFormat selects the on-disk representation of a downloaded series.
type FileFormat int

const (
	FormatCSV FileFormat = iota
	FormatCSVGZ
	FormatPKL
	FormatPKLXZ
)

var fileFormatNames = map[FileFormat]string{
	FormatCSV:   "CSV",
	FormatCSVGZ: "CSVGZ",
	FormatPKL:   "PKL",
	FormatPKLXZ: "PKLXZ",
}

func (f FileFormat) String() string {
	if name, ok := fileFormatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FORMAT(%d)", int(f))
}

// IsCSVFamily reports whether the format writes plain or gzipped CSV text.
func (f FileFormat) IsCSVFamily() bool { return f == FormatCSV || f == FormatCSVGZ }

// IsBinary reports whether the format writes the binary dataset payload.
func (f FileFormat) IsBinary() bool { return f == FormatPKL || f == FormatPKLXZ }

// ParseFileFormat resolves a format name (case-insensitive) to its enum value.
func ParseFileFormat(name string) (FileFormat, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for f, n := range fileFormatNames {
		if n == upper {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown file format %q (known: CSV, CSVGZ, PKL, PKLXZ)", name)
}
