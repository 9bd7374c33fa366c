package finam

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finflow/logger"
	"finflow/models"
)

// throttleMarker appears in the response body when the export service is
// asked for data faster than it allows.
const throttleMarker = "Система уже обрабатывает Ваш запрос"

const (
	datfBars  = 5
	datfTicks = 6
)

// Download fetches the export CSV for a single request and parses it into
// a Dataset. Failures come back as *ExportError.
func (c *Client) Download(ctx context.Context, req models.DownloadRequest) (*models.Dataset, error) {
	log := c.log.WithComponent("finam_export").WithFields(logger.Fields{
		"code":      req.Instrument.Code,
		"timeframe": req.Timeframe.String(),
	})

	log.WithFields(logger.Fields{
		"start": req.StartDate.Format("2006-01-02"),
		"end":   req.EndDate.Format("2006-01-02"),
	}).Info("downloading export")

	body, status, err := c.get(ctx, c.exportURL(req))
	if err != nil {
		return nil, &ExportError{Code: req.Instrument.Code, Kind: KindHTTP, Detail: err.Error()}
	}
	if status != http.StatusOK {
		return nil, &ExportError{Code: req.Instrument.Code, Kind: KindHTTP, Status: status, Detail: "unexpected status"}
	}

	text := string(body)
	if strings.Contains(text, throttleMarker) {
		return nil, &ExportError{Code: req.Instrument.Code, Kind: KindThrottled, Status: status, Detail: "export service throttled the request"}
	}
	if looksLikeHTML(text) {
		return nil, &ExportError{Code: req.Instrument.Code, Kind: KindParse, Status: status, Detail: "received an html page instead of csv"}
	}

	dataset, err := parseExport(text)
	if err != nil {
		return nil, &ExportError{Code: req.Instrument.Code, Kind: KindParse, Status: status, Detail: err.Error()}
	}
	if dataset.Empty() {
		return nil, &ExportError{Code: req.Instrument.Code, Kind: KindEmpty, Status: status, Detail: "no rows in requested range"}
	}

	log.WithFields(logger.Fields{"rows": dataset.RowCount()}).Info("export downloaded")
	logger.IncrementExportRead(dataset.RowCount(), len(body))
	logger.LogDataFlowEntry(log, "finam_export", "dataset", dataset.RowCount(), "rows")

	return dataset, nil
}

// exportURL builds the export query for a request. The month parameters are
// zero based and dates appear both split and as dd.mm.yyyy, matching what
// the export form submits.
func (c *Client) exportURL(req models.DownloadRequest) string {
	fname := fmt.Sprintf("%s_%s_%s",
		req.Instrument.Code,
		req.StartDate.Format("20060102"),
		req.EndDate.Format("20060102"))

	datf := datfBars
	if req.Timeframe == models.TimeframeTicks {
		datf = datfTicks
	}

	params := url.Values{}
	params.Set("market", strconv.Itoa(req.Instrument.Market.ID()))
	params.Set("em", strconv.FormatInt(req.Instrument.ID, 10))
	params.Set("code", req.Instrument.Code)
	params.Set("apply", "0")
	params.Set("df", strconv.Itoa(req.StartDate.Day()))
	params.Set("mf", strconv.Itoa(int(req.StartDate.Month())-1))
	params.Set("yf", strconv.Itoa(req.StartDate.Year()))
	params.Set("from", req.StartDate.Format("02.01.2006"))
	params.Set("dt", strconv.Itoa(req.EndDate.Day()))
	params.Set("mt", strconv.Itoa(int(req.EndDate.Month())-1))
	params.Set("yt", strconv.Itoa(req.EndDate.Year()))
	params.Set("to", req.EndDate.Format("02.01.2006"))
	params.Set("p", strconv.Itoa(req.Timeframe.Code()))
	params.Set("f", fname)
	params.Set("e", ".csv")
	params.Set("cn", req.Instrument.Code)
	params.Set("dtf", "1")
	params.Set("tmf", "1")
	params.Set("MSOR", "1")
	params.Set("mstime", "on")
	params.Set("mstimever", "1")
	params.Set("sep", "1")
	params.Set("sep2", "1")
	params.Set("datf", strconv.Itoa(datf))
	params.Set("at", "1")

	return c.cfg.Exporter.ExportURL + "?" + params.Encode()
}

func looksLikeHTML(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 64 {
		head = head[:64]
	}
	return strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<!doctype")
}

// parseExport splits the decoded body into a header row and data rows.
// The export service always emits the bracket-named header when asked for
// one, so anything else is malformed.
func parseExport(text string) (*models.Dataset, error) {
	r := csv.NewReader(strings.NewReader(text))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	header := records[0]
	if len(header) == 0 || !strings.HasPrefix(header[0], "<") {
		return nil, fmt.Errorf("unexpected header row %q", strings.Join(header, ","))
	}

	return &models.Dataset{Columns: header, Rows: records[1:]}, nil
}
