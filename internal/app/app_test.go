package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"call_analytics/internal/analyze"
	"call_analytics/internal/report"
	"call_analytics/internal/store"
)

const sampleCSV = `Agent First Name,Disposition,Duration,Type,Status,Source,Source Link,To Number,Date,CRM Link,CRM Contact ID
Dana,Interested,2:00,Outgoing,Answered,Referral,Spring Push,+1 (555) 123-4567,"01/02/2024, 10:00 AM",crm://1,c1
Dana,Voicemail,0:45,Outgoing,Answered,Referral,Spring Push,5551234567,"01/02/2024, 10:05 AM",,
Lee,Not Interested,1:30,Incoming,Answered,Web,,2125551234,"01/02/2024, 11:00 AM",,
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunOncePipeline(t *testing.T) {
	outDir := t.TempDir()
	opts := Options{
		InputPath:  writeSample(t),
		ReportPath: filepath.Join(outDir, "report.txt"),
		ExportBase: filepath.Join(outDir, "analysis"),
		HistoryDB:  filepath.Join(outDir, "runs.db"),
		Policy:     analyze.SkipBadRecords,
		Report:     report.DefaultOptions(),
	}
	a, err := New(opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	body, err := os.ReadFile(opts.ReportPath)
	if err != nil {
		t.Fatalf("report file: %v", err)
	}
	if !strings.Contains(string(body), "Total Records: 3") {
		t.Fatal("report missing total record count")
	}

	matches, err := filepath.Glob(opts.ExportBase + "_*.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 9 {
		t.Fatalf("export files = %d, want 9", len(matches))
	}

	st, err := store.Open(opts.HistoryDB)
	if err != nil {
		t.Fatalf("reopen history: %v", err)
	}
	defer st.Close()
	runs, err := st.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].TotalCalls != 3 || runs[0].Interested != 1 {
		t.Fatalf("unexpected run history: %+v", runs)
	}
}

func TestRunOnceMissingInput(t *testing.T) {
	a, err := New(Options{InputPath: filepath.Join(t.TempDir(), "nope.csv"),
		Report: report.DefaultOptions()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if err := a.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestReportFailureLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		InputPath:  writeSample(t),
		ReportPath: filepath.Join(dir, "missing", "report.txt"),
		Report:     report.DefaultOptions(),
	}
	a, err := New(opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if err := a.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error for unwritable report path")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("partial report left behind: %s", e.Name())
		}
	}
}
