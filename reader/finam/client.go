package finam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"finflow/config"
	"finflow/logger"
	"finflow/models"

	"golang.org/x/text/encoding/charmap"
)

// Client talks to the Finam instrument directory and export services.
// It is safe for use from a single download flow; the directory cache is
// guarded by a mutex anyway so concurrent lookups stay correct.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	log        *logger.Log
	mu         sync.Mutex
	directory  []models.Instrument
}

// NewClient creates a Client with a pooled HTTP transport configured from
// the exporter section of the application config.
func NewClient(cfg *config.Config) *Client {
	log := logger.GetLogger()

	transport := &http.Transport{
		MaxIdleConns:        cfg.Exporter.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Exporter.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Exporter.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Exporter.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	client := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Exporter.Timeout,
		},
		log: log,
	}

	log.WithComponent("finam_client").WithFields(logger.Fields{
		"meta_url":   cfg.Exporter.MetaURL,
		"export_url": cfg.Exporter.ExportURL,
		"timeout":    cfg.Exporter.Timeout,
	}).Info("finam client initialized")

	return client
}

// get fetches url and returns the body decoded from windows-1251 together
// with the response status. Transport failures and 5xx responses are retried
// with a linear backoff.
func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	log := c.log.WithComponent("finam_client")

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Exporter.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.cfg.Exporter.RetryBaseDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.Exporter.UserAgent)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).WithFields(logger.Fields{"attempt": attempt}).Warn("request failed")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			log.WithError(err).WithFields(logger.Fields{"attempt": attempt}).Warn("failed to read response body")
			continue
		}

		logger.LogPerformanceEntry(log, "finam_client", "api_request", time.Since(start), logger.Fields{
			"status": resp.StatusCode,
			"bytes":  len(body),
		})

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			log.WithFields(logger.Fields{"status": resp.StatusCode, "attempt": attempt}).Warn("server error, retrying")
			continue
		}

		decoded, err := charmap.Windows1251.NewDecoder().Bytes(body)
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
		return decoded, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("request failed after %d attempts: %w", c.cfg.Exporter.MaxRetries, lastErr)
}
