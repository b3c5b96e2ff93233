package analyze

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"testing"

	"call_analytics/internal/ingest"
	"call_analytics/internal/normalize"
)

type sliceSource struct {
	recs []normalize.CallRecord
	errs map[int]error // injected before the record at this index
	pos  int
}

func (s *sliceSource) Read() (normalize.CallRecord, error) {
	if err, ok := s.errs[s.pos]; ok {
		delete(s.errs, s.pos)
		return normalize.CallRecord{}, err
	}
	if s.pos >= len(s.recs) {
		return normalize.CallRecord{}, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

func scenarioRecords() []normalize.CallRecord {
	return []normalize.CallRecord{
		{Agent: "Agent A", Disposition: "Interested", Duration: "2:00", CallType: "Outgoing",
			Status: "Answered", Source: "SourceX", ToNumber: "+1 (555) 123-4567",
			Date: "01/01/2024, 10:00 AM", CRMLink: "crm://1", CRMContactID: "c1"},
		{Agent: "Agent A", Disposition: "Voicemail", Duration: "0:45", CallType: "Outgoing",
			Status: "Answered", Source: "SourceX", ToNumber: "5551234567",
			Date: "01/01/2024, 10:05 AM"},
		{Agent: "Agent B", Disposition: "Not Interested", Duration: "1:30", CallType: "Incoming",
			Status: "Answered", Source: "SourceY", ToNumber: "2125551234",
			Date: "01/01/2024, 14:00 PM"},
	}
}

func runRecords(t *testing.T, recs []normalize.CallRecord) *Snapshot {
	t.Helper()
	snap, err := Run(&sliceSource{recs: recs}, SkipBadRecords)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return snap
}

func TestEndToEndScenario(t *testing.T) {
	snap := runRecords(t, scenarioRecords())

	if snap.Overall.TotalCalls != 3 {
		t.Fatalf("total calls = %d, want 3", snap.Overall.TotalCalls)
	}
	if snap.Overall.Interested != 1 {
		t.Fatalf("interested = %d, want 1", snap.Overall.Interested)
	}
	conv := Percent(snap.Overall.Interested, snap.Overall.TotalCalls)
	if math.Abs(conv-33.33) > 0.01 {
		t.Fatalf("overall conversion = %.2f, want 33.33", conv)
	}

	sess := snap.Sessions[SessionKey{Agent: "Agent A", Day: "2024-01-01"}]
	if sess == nil {
		t.Fatal("missing Agent A session")
	}
	// 10:00 to 10:05 plus the 45s last call.
	if sess.SpanSeconds() != 5*60+45 {
		t.Fatalf("session span = %ds, want 345", sess.SpanSeconds())
	}
	if sess.TalkSeconds != 120+45 {
		t.Fatalf("talk seconds = %d, want 165", sess.TalkSeconds)
	}

	sx, ok := snap.Sources.Lookup("SourceX")
	if !ok {
		t.Fatal("missing SourceX")
	}
	if got := Percent(sx.Interested, sx.Total); got != 50 {
		t.Fatalf("SourceX conversion = %.1f, want 50", got)
	}

	// "14:00 PM" does not fit a 12-hour clock, so Agent B has no session and
	// the fallback is counted.
	if _, ok := snap.Sessions[SessionKey{Agent: "Agent B", Day: "2024-01-01"}]; ok {
		t.Fatal("Agent B should have no session")
	}
	if snap.Diagnostics.TimestampFallbacks != 1 {
		t.Fatalf("timestamp fallbacks = %d, want 1", snap.Diagnostics.TimestampFallbacks)
	}
	// Non-time dimensions still include Agent B's call.
	if sy, _ := snap.Sources.Lookup("SourceY"); sy == nil || sy.Total != 1 {
		t.Fatal("SourceY should still be counted")
	}
}

func TestCountConservation(t *testing.T) {
	snap := runRecords(t, scenarioRecords())

	dispSum := 0
	for _, key := range snap.Dispositions.Keys() {
		d, _ := snap.Dispositions.Lookup(key)
		dispSum += d.Count
	}
	if dispSum != snap.Overall.TotalCalls {
		t.Fatalf("disposition sum %d != total %d", dispSum, snap.Overall.TotalCalls)
	}

	agentSum := 0
	for _, key := range snap.Agents.Keys() {
		a, _ := snap.Agents.Lookup(key)
		agentSum += a.TotalCalls
	}
	if agentSum != snap.Overall.TotalCalls {
		t.Fatalf("agent sum %d != total %d", agentSum, snap.Overall.TotalCalls)
	}
}

func TestFunnelMonotonicity(t *testing.T) {
	recs := scenarioRecords()
	recs = append(recs,
		normalize.CallRecord{Agent: "Agent B", Disposition: "Bad Number", Duration: "0:05",
			CallType: "Outgoing", Status: "Answered", Source: "SourceY", ToNumber: "123"},
		normalize.CallRecord{Agent: "Agent B", Disposition: "No Call Outcome", Duration: "",
			CallType: "Outgoing", Status: "Answered", Source: "SourceY", ToNumber: "123"},
		normalize.CallRecord{Agent: "Agent A", Disposition: "No Call Outcome", Duration: "",
			CallType: "Outgoing", Status: "Missed", Source: "SourceY", ToNumber: "123"},
	)
	snap := runRecords(t, recs)

	f := snap.Funnel
	if f.Dials < f.Connected || f.Connected < f.LiveConversations ||
		f.LiveConversations < f.Interested {
		t.Fatalf("funnel not monotonic: %+v", f)
	}
	if f.Connected != snap.Overall.Answered {
		t.Fatalf("connected %d != answered %d", f.Connected, snap.Overall.Answered)
	}
}

func TestSessionInvariants(t *testing.T) {
	// Out-of-order timestamps: first/last must settle on min/max and the
	// last call's duration must follow the max, not the final row.
	recs := []normalize.CallRecord{
		{Agent: "A", Disposition: "Voicemail", Duration: "1:00", CallType: "Outgoing",
			Status: "Answered", Source: "S", Date: "01/03/2024, 11:30 AM"},
		{Agent: "A", Disposition: "Voicemail", Duration: "0:30", CallType: "Outgoing",
			Status: "Answered", Source: "S", Date: "01/03/2024, 09:00 AM"},
		{Agent: "A", Disposition: "Voicemail", Duration: "0:10", CallType: "Outgoing",
			Status: "Answered", Source: "S", Date: "01/03/2024, 10:00 AM"},
	}
	snap := runRecords(t, recs)
	sess := snap.Sessions[SessionKey{Agent: "A", Day: "2024-01-03"}]
	if sess == nil {
		t.Fatal("missing session")
	}
	if sess.First.After(sess.Last) {
		t.Fatal("first call after last call")
	}
	if sess.First.Hour() != 9 || sess.Last.Hour() != 11 {
		t.Fatalf("wrong boundaries: first=%v last=%v", sess.First, sess.Last)
	}
	if sess.LastCallDuration != 60 {
		t.Fatalf("last call duration = %d, want 60 (the 11:30 call's)", sess.LastCallDuration)
	}
	if sess.TalkSeconds != 100 {
		t.Fatalf("talk seconds = %d, want 100", sess.TalkSeconds)
	}
	if sess.SpanSeconds() < 0 {
		t.Fatal("negative session span")
	}
}

func TestWeeklyRollupExcludesWeekends(t *testing.T) {
	recs := []normalize.CallRecord{
		// Saturday 01/06/2024.
		{Agent: "A", Disposition: "Voicemail", Duration: "1:00", CallType: "Outgoing",
			Status: "Answered", Source: "S", Date: "01/06/2024, 10:00 AM"},
		// Tuesday 01/02/2024.
		{Agent: "A", Disposition: "Voicemail", Duration: "1:00", CallType: "Outgoing",
			Status: "Answered", Source: "S", Date: "01/02/2024, 10:00 AM"},
	}
	snap := runRecords(t, recs)

	if len(snap.Weekly) != 1 {
		t.Fatalf("weekly buckets = %d, want 1", len(snap.Weekly))
	}
	wk := snap.Weekly[0]
	if wk.WeekStart.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("week start = %v, want Monday 2024-01-01", wk.WeekStart)
	}
	if wk.DaysWorked != 1 {
		t.Fatalf("days worked = %d, want 1", wk.DaysWorked)
	}
	if wk.TalkSeconds != 60 {
		t.Fatalf("talk seconds = %d, want 60 (Saturday excluded)", wk.TalkSeconds)
	}
}

func TestDeterminism(t *testing.T) {
	a := runRecords(t, scenarioRecords())
	b := runRecords(t, scenarioRecords())
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical input should produce identical snapshots")
	}
}

func TestOrderIndependenceOfCounts(t *testing.T) {
	recs := scenarioRecords()
	reversed := make([]normalize.CallRecord, len(recs))
	for i, rec := range recs {
		reversed[len(recs)-1-i] = rec
	}
	a := runRecords(t, recs)
	b := runRecords(t, reversed)

	if a.Overall != b.Overall {
		t.Fatalf("overall differs: %+v vs %+v", a.Overall, b.Overall)
	}
	for _, key := range a.Sources.Keys() {
		sa, _ := a.Sources.Lookup(key)
		sb, ok := b.Sources.Lookup(key)
		if !ok || *sa != *sb {
			t.Fatalf("source %q differs", key)
		}
	}
	// The interested-leads list is order-sensitive by design.
	if len(a.Leads) != len(b.Leads) {
		t.Fatalf("lead counts differ: %d vs %d", len(a.Leads), len(b.Leads))
	}
}

func TestSkipPolicyCountsBadRecords(t *testing.T) {
	src := &sliceSource{
		recs: scenarioRecords(),
		errs: map[int]error{1: fmt.Errorf("%w: row 3: wrong field count", ingest.ErrBadRecord)},
	}
	snap, err := Run(src, SkipBadRecords)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snap.Diagnostics.SkippedRecords != 1 {
		t.Fatalf("skipped = %d, want 1", snap.Diagnostics.SkippedRecords)
	}
	if snap.Overall.TotalCalls != 3 {
		t.Fatalf("total = %d, want 3", snap.Overall.TotalCalls)
	}

	src = &sliceSource{
		recs: scenarioRecords(),
		errs: map[int]error{0: fmt.Errorf("%w: row 2", ingest.ErrBadRecord)},
	}
	if _, err := Run(src, AbortOnBadRecord); err == nil {
		t.Fatal("abort policy should fail the run")
	}
}

func TestEmptyDataset(t *testing.T) {
	snap := runRecords(t, nil)
	if snap.Overall.TotalCalls != 0 {
		t.Fatal("expected zero totals")
	}
	if snap.HasDates {
		t.Fatal("date range should be absent")
	}
	if Percent(snap.Overall.Interested, snap.Overall.TotalCalls) != 0 {
		t.Fatal("ratios over zero totals must be 0")
	}
	if len(snap.Weekly) != 0 || len(snap.Leads) != 0 {
		t.Fatal("derived views should be empty")
	}
}

func TestEfficiencyGuards(t *testing.T) {
	if Efficiency(100, 0) != 0 {
		t.Fatal("zero span must report 0")
	}
	if got := Efficiency(150, 100); got != 150 {
		t.Fatalf("efficiency over 100%% is preserved, got %.1f", got)
	}
}

func TestRankedStableTiebreak(t *testing.T) {
	tbl := newTable[SourceStats]()
	tbl.Get("first").Total = 2
	tbl.Get("second").Total = 2
	tbl.Get("third").Total = 5
	ranked := tbl.Ranked(func(s *SourceStats) int { return s.Total })
	want := []string{"third", "first", "second"}
	if !reflect.DeepEqual(ranked, want) {
		t.Fatalf("ranked = %v, want %v", ranked, want)
	}
}
