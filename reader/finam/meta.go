package finam

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"finflow/logger"
	"finflow/models"
)

// Directory returns the parsed instrument directory, fetching it on first
// use and serving later calls from the cache.
func (c *Client) Directory(ctx context.Context) ([]models.Instrument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.directory != nil {
		return c.directory, nil
	}

	log := c.log.WithComponent("finam_meta")
	log.Info("fetching instrument directory")

	body, status, err := c.get(ctx, c.cfg.Exporter.MetaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instrument directory: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("instrument directory request returned status %d", status)
	}

	instruments, err := parseDirectory(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse instrument directory: %w", err)
	}

	log.WithFields(logger.Fields{"instruments": len(instruments)}).Info("instrument directory loaded")
	c.directory = instruments
	return instruments, nil
}

// parseDirectory extracts the parallel instrument arrays from the directory
// script and zips them positionally.
func parseDirectory(js string) ([]models.Instrument, error) {
	rawIDs, err := extractArray(js, "aEmitentIds")
	if err != nil {
		return nil, err
	}
	rawNames, err := extractArray(js, "aEmitentNames")
	if err != nil {
		return nil, err
	}
	rawCodes, err := extractArray(js, "aEmitentCodes")
	if err != nil {
		return nil, err
	}
	rawMarkets, err := extractArray(js, "aEmitentMarkets")
	if err != nil {
		return nil, err
	}

	ids := splitValues(rawIDs)
	names := splitValues(rawNames)
	codes := splitValues(rawCodes)
	markets := splitValues(rawMarkets)

	if len(names) != len(ids) || len(codes) != len(ids) || len(markets) != len(ids) {
		return nil, fmt.Errorf("directory arrays are not parallel: %d ids, %d names, %d codes, %d markets",
			len(ids), len(names), len(codes), len(markets))
	}

	instruments := make([]models.Instrument, 0, len(ids))
	for i := range ids {
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad instrument id %q: %w", ids[i], err)
		}
		market, err := strconv.Atoi(markets[i])
		if err != nil {
			return nil, fmt.Errorf("bad market id %q for instrument %s: %w", markets[i], codes[i], err)
		}
		instruments = append(instruments, models.Instrument{
			ID:     id,
			Code:   codes[i],
			Market: models.Market(market),
			Name:   names[i],
		})
	}
	return instruments, nil
}

// extractArray returns the raw comma separated contents of a
// `name = new Array (...)` declaration. The closing parenthesis is located
// with quote tracking because instrument names may contain parentheses.
func extractArray(js, name string) (string, error) {
	idx := strings.Index(js, name)
	if idx < 0 {
		return "", fmt.Errorf("array %s not found", name)
	}
	open := strings.Index(js[idx:], "(")
	if open < 0 {
		return "", fmt.Errorf("array %s has no opening parenthesis", name)
	}
	start := idx + open + 1

	inQuote := false
	for i := start; i < len(js); i++ {
		switch js[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '\'':
			inQuote = !inQuote
		case ')':
			if !inQuote {
				return js[start:i], nil
			}
		}
	}
	return "", fmt.Errorf("array %s is not terminated", name)
}

// splitValues splits a raw array body on commas, honouring single quoted
// strings so names containing commas survive intact.
func splitValues(raw string) []string {
	var out []string
	var sb strings.Builder
	inQuote := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\' && inQuote && i+1 < len(raw):
			i++
			sb.WriteByte(raw[i])
		case c == '\'':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			out = append(out, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(sb.String()))
	return out
}
