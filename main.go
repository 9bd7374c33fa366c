package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finflow/config"
	"finflow/downloader"
	"finflow/internal/dashboard"
	"finflow/internal/report"
	"finflow/logger"
	"finflow/reader/finam"
	"finflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	var opts config.RunOptions
	flag.StringVar(&opts.Contracts, "contracts", "", "Comma separated contract codes to download")
	flag.StringVar(&opts.Market, "market", "", "Download every contract of the given market")
	flag.StringVar(&opts.Timeframe, "timeframe", "DAILY", "Timeframe of the downloaded data")
	flag.StringVar(&opts.DestDir, "destdir", "", "Destination directory, must exist")
	flag.BoolVar(&opts.SkipErr, "skiperr", true, "Continue the run when a single download fails")
	flag.StringVar(&opts.LineTerm, "lineterm", "crlf", "Line terminator of csv output: crlf or lf")
	flag.IntVar(&opts.Delay, "delay", 1, "Seconds to sleep between successive requests")
	flag.StringVar(&opts.StartDate, "startdate", "2007-01-01", "Start date YYYY-MM-DD")
	flag.StringVar(&opts.EndDate, "enddate", "", "End date YYYY-MM-DD, defaults to today")
	flag.StringVar(&opts.Ext, "ext", "csv", "File extension of plain csv output")
	flag.StringVar(&opts.FileFormat, "fileformat", "CSV", "Output format: CSV, CSVGZ, PKL or PKLXZ")
	flag.BoolVar(&opts.Append, "append", false, "Append to existing binary datasets instead of overwriting")
	configPath := flag.String("config", "", "Path to application configuration file")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	run, err := config.NewRunConfig(opts)
	if err != nil {
		log.WithError(err).Error("Invalid command line options")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Finflow.Name,
		"version":     cfg.Finflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting finflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Logging.DashboardName != "" {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "", cfg.Logging.DashboardName)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	var mirror *writer.Mirror
	if cfg.Storage.S3.Enabled {
		mirror, err = writer.NewMirror(cfg.Storage.S3)
		if err != nil {
			log.WithError(err).Error("Failed to initialize S3 mirror")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 mirror disabled; files stay local")
	}

	var rep *report.Generator
	if cfg.Report.Enabled || cfg.Dashboard.Enabled {
		rep = report.NewGenerator()
		log.WithFields(logger.Fields{"run_id": rep.RunID()}).Info("run tracking enabled")
	}

	dash, err := dashboard.NewServer(cfg.Dashboard, run.DestDir, log, rep)
	if err != nil {
		log.WithError(err).Error("Failed to initialize dashboard")
		os.Exit(1)
	}
	if dash != nil {
		log.WithFields(logger.Fields{"address": dash.Address()}).Info("dashboard listening")
		go func() {
			if err := dash.Run(ctx, cfg.Finflow.Name); err != nil {
				log.WithComponent("dashboard").WithError(err).Warn("dashboard server stopped")
			}
		}()
	}

	client := finam.NewClient(cfg)
	store := writer.NewStore(run.LineTerm, mirror)

	runErr := downloader.New(cfg, run, client, store, rep).Run(ctx)

	if rep != nil && cfg.Report.Enabled {
		dir := cfg.Report.Dir
		if dir == "" {
			dir = run.DestDir
		}
		if path, err := rep.Write(dir); err != nil {
			log.WithError(err).Warn("failed to write run report")
		} else {
			log.WithFields(logger.Fields{"path": path}).Info("run report written")
		}
	}

	if runErr != nil {
		log.WithError(runErr).Error("download run failed")
		os.Exit(1)
	}

	log.Info("finflow finished")
}
