package downloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finflow/config"
	"finflow/internal/report"
	"finflow/logger"
	"finflow/models"
	"finflow/reader/finam"
	"finflow/writer"
)

// Downloader walks the requested contract list sequentially: resolve the
// instrument, plan the date range, download the export and persist it. One
// instrument is in flight at a time; the inter-request delay is a throttle
// against the provider and must stay sequential.
type Downloader struct {
	cfg    *config.Config
	run    *config.RunConfig
	client *finam.Client
	store  *writer.Store
	rep    *report.Generator
	log    *logger.Log
}

// New creates a Downloader. rep may be nil when run reporting is disabled.
func New(cfg *config.Config, run *config.RunConfig, client *finam.Client, store *writer.Store, rep *report.Generator) *Downloader {
	return &Downloader{
		cfg:    cfg,
		run:    run,
		client: client,
		store:  store,
		rep:    rep,
		log:    logger.GetLogger(),
	}
}

// Run processes every requested contract in order. Export failures are
// skipped or fatal according to SkipErr; an unknown contract or a persistence
// failure always ends the run.
func (d *Downloader) Run(ctx context.Context) error {
	log := d.log.WithComponent("downloader")

	codes := d.run.Contracts
	if len(codes) == 0 {
		var err error
		codes, err = d.client.MarketCodes(ctx, d.run.Market)
		if err != nil {
			return fmt.Errorf("failed to list contracts for market %s: %w", d.run.Market, err)
		}
		if len(codes) == 0 {
			log.WithFields(logger.Fields{"market": d.run.Market.String()}).Warn("market has no contracts")
			return nil
		}
		log.WithFields(logger.Fields{
			"market":    d.run.Market.String(),
			"contracts": len(codes),
		}).Info("resolved contract list from market")
	}

	if d.rep != nil {
		d.rep.SetPlanned(len(codes))
	}

	log.WithFields(logger.Fields{
		"contracts": len(codes),
		"timeframe": d.run.Timeframe.String(),
		"destdir":   d.run.DestDir,
	}).Info("starting download run")

	for _, code := range codes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		entry, err := d.processContract(ctx, code)
		entry.DurationMs = time.Since(start).Milliseconds()

		if err != nil {
			var exportErr *finam.ExportError
			if errors.As(err, &exportErr) && d.run.SkipErr {
				log.WithError(err).WithFields(logger.Fields{"contract": code}).Warn("skipping contract")
				entry.Skipped = true
				entry.Error = err.Error()
				d.record(entry)
				continue
			}
			entry.Error = err.Error()
			d.record(entry)
			return err
		}
		d.record(entry)

		if d.run.Delay > 0 {
			log.WithFields(logger.Fields{"seconds": d.run.Delay.Seconds()}).Info("sleeping between requests")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.run.Delay):
			}
		}
	}

	log.Info("download run finished")
	return nil
}

func (d *Downloader) processContract(ctx context.Context, code string) (report.Entry, error) {
	entry := report.Entry{Contract: code, Timeframe: d.run.Timeframe.String()}
	log := d.log.WithComponent("downloader").WithFields(logger.Fields{"contract": code})

	market := models.MarketUnset
	if d.run.HasMarket {
		market = d.run.Market
	}
	instrument, err := d.client.Lookup(ctx, code, market)
	if err != nil {
		return entry, err
	}

	log.WithFields(logger.Fields{
		"id":     instrument.ID,
		"market": instrument.Market.String(),
		"name":   instrument.Name,
	}).Info("contract resolved")

	target := writer.DeriveTarget(d.run.DestDir, instrument.Code, d.run.Timeframe, d.run.FileFormat, d.run.Ext)
	entry.Path = target.Path

	local, startDate, err := d.planRange(target)
	if err != nil {
		return entry, err
	}

	fresh, err := d.client.Download(ctx, models.DownloadRequest{
		Instrument: instrument,
		Timeframe:  d.run.Timeframe,
		StartDate:  startDate,
		EndDate:    d.run.EndDate,
	})
	if err != nil {
		return entry, err
	}
	entry.Rows = fresh.RowCount()

	added, err := d.store.Persist(ctx, target, fresh, local, d.run.Append)
	if err != nil {
		return entry, err
	}
	entry.Added = added

	if local != nil {
		log.WithFields(logger.Fields{
			"added":    added,
			"existing": local.RowCount(),
		}).Info("appended records to existing dataset")
	}
	return entry, nil
}

// planRange decides where the download starts and returns the local dataset
// the writer should merge with. Outside append mode, or when no local file
// exists yet, the requested start date is used and nothing is merged.
func (d *Downloader) planRange(target writer.Target) (*models.Dataset, time.Time, error) {
	if !d.run.Append {
		return nil, d.run.StartDate, nil
	}

	log := d.log.WithComponent("downloader").WithFields(logger.Fields{"path": target.Path})

	local, err := d.store.Load(target)
	if err != nil {
		return nil, time.Time{}, err
	}
	if local == nil {
		log.Info("append mode, but no local file found")
		return nil, d.run.StartDate, nil
	}

	lastDate, err := local.LastDate()
	if err != nil {
		return nil, time.Time{}, &writer.PersistError{Path: target.Path, Op: "inspect", Err: err}
	}
	log.WithFields(logger.Fields{
		"rows":      local.RowCount(),
		"last_date": lastDate.Format(config.DateLayout),
	}).Info("found local file, resuming from its last date")
	return local, lastDate, nil
}

func (d *Downloader) record(e report.Entry) {
	if d.rep != nil {
		d.rep.Add(e)
	}
}
