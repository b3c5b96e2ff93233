package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"call_analytics/internal/analyze"
	"call_analytics/internal/app"
	"call_analytics/internal/config"
	"call_analytics/internal/report"
)

func main() {
	reportPath := flag.String("o", "", "write the report to this file instead of stdout")
	exportBase := flag.String("csv", "", "also export CSV files with this base path")
	historyDB := flag.String("db", "", "record the run in this SQLite history database")
	optionsPath := flag.String("report-options", "", "YAML file with report thresholds")
	watchInput := flag.Bool("watch", false, "keep running and re-analyze when the input changes")
	abortOnBad := flag.Bool("strict", false, "abort on the first structurally broken row instead of skipping")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	opts := app.Options{
		InputPath:  flag.Arg(0),
		ReportPath: *reportPath,
		ExportBase: *exportBase,
		HistoryDB:  *historyDB,
		Report:     report.DefaultOptions(),
	}
	if opts.HistoryDB == "" {
		opts.HistoryDB = cfg.HistoryDBPath
	}
	if *abortOnBad || cfg.BadRecordPolicy == "abort" {
		opts.Policy = analyze.AbortOnBadRecord
	}
	if *optionsPath == "" {
		*optionsPath = cfg.ReportOptions
	}
	if *optionsPath != "" {
		opts.Report, err = report.LoadOptions(*optionsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("load report options")
		}
	}

	application, err := app.New(opts, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if *watchInput {
		err = application.Watch(ctx)
	} else {
		err = application.RunOnce(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("run")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: call-analytics [flags] <input.csv>

Analyzes a call activity export and prints a report.

Examples:
  call-analytics input/calls.csv
  call-analytics -o report.txt input/calls.csv
  call-analytics -csv output/analysis -db runs.db input/calls.csv

Flags:
`)
	flag.PrintDefaults()
}
