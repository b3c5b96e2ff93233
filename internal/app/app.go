package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"call_analytics/internal/analyze"
	"call_analytics/internal/export"
	"call_analytics/internal/ingest"
	"call_analytics/internal/report"
	"call_analytics/internal/store"
	"call_analytics/internal/watch"
)

// Options describe one analysis invocation.
type Options struct {
	InputPath  string
	ReportPath string // empty means stdout
	ExportBase string // empty disables CSV export
	HistoryDB  string // empty disables run history
	Policy     analyze.Policy
	Report     report.Options
}

// App wires ingest, analysis, reporting, export, and the run history
// together for one input file.
type App struct {
	opts  Options
	store *store.Store
	log   zerolog.Logger
}

func New(opts Options, log zerolog.Logger) (*App, error) {
	a := &App{opts: opts, log: log}
	if opts.HistoryDB != "" {
		st, err := store.Open(opts.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open history db: %w", err)
		}
		a.store = st
	}
	return a, nil
}

func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// RunOnce performs one full pass: read the input, aggregate, render the
// report, write exports, and record the run.
func (a *App) RunOnce(ctx context.Context) error {
	started := time.Now()

	reader, err := ingest.Open(a.opts.InputPath)
	if err != nil {
		return err
	}
	snap, err := analyze.Run(reader, a.opts.Policy)
	closeErr := reader.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	a.log.Info().
		Int("total_calls", snap.Overall.TotalCalls).
		Int("interested", snap.Overall.Interested).
		Int("skipped", snap.Diagnostics.SkippedRecords).
		Int("duration_fallbacks", snap.Diagnostics.DurationFallbacks).
		Int("timestamp_fallbacks", snap.Diagnostics.TimestampFallbacks).
		Msg("analysis complete")

	if err := a.writeReport(snap); err != nil {
		return err
	}
	if a.opts.ExportBase != "" {
		created, err := export.WriteAll(a.opts.ExportBase, snap)
		if err != nil {
			return err
		}
		a.log.Info().Int("files", len(created)).Str("base", a.opts.ExportBase).Msg("csv export complete")
	}
	if a.store != nil {
		run := store.Run{
			ID:                   uuid.NewString(),
			InputPath:            a.opts.InputPath,
			StartedAt:            started,
			FinishedAt:           time.Now(),
			TotalCalls:           snap.Overall.TotalCalls,
			Answered:             snap.Overall.Answered,
			Interested:           snap.Overall.Interested,
			ConversionPct:        analyze.Percent(snap.Overall.Interested, snap.Overall.TotalCalls),
			TotalDurationSeconds: snap.Overall.TotalDuration,
			SkippedRecords:       snap.Diagnostics.SkippedRecords,
			DurationFallbacks:    snap.Diagnostics.DurationFallbacks,
			TimestampFallbacks:   snap.Diagnostics.TimestampFallbacks,
		}
		if err := a.store.RecordRun(ctx, run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	return nil
}

// writeReport renders to stdout, or to the report file via a temp-file
// rename so a failed render leaves nothing behind.
func (a *App) writeReport(snap *analyze.Snapshot) error {
	if a.opts.ReportPath == "" {
		return report.Write(os.Stdout, snap, a.opts.Report)
	}
	tmp := a.opts.ReportPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := report.Write(f, snap, a.opts.Report); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, a.opts.ReportPath); err != nil {
		return err
	}
	a.log.Info().Str("path", a.opts.ReportPath).Msg("report written")
	return nil
}

// Watch runs once, then re-runs on every change to the input file until ctx
// is cancelled. A failed re-run is logged, not fatal: the previous outputs
// stay in place.
func (a *App) Watch(ctx context.Context) error {
	if err := a.RunOnce(ctx); err != nil {
		return err
	}
	w := watch.New(a.opts.InputPath, func() {
		if err := a.RunOnce(ctx); err != nil {
			a.log.Error().Err(err).Msg("re-run failed")
		}
	}, a.log)
	err := w.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}
