package analyze

import (
	"errors"
	"io"
	"sort"
	"time"

	"call_analytics/internal/ingest"
	"call_analytics/internal/normalize"
)

const dayKeyLayout = "2006-01-02"

// Policy controls what happens when the source yields a structurally broken
// record (one that cannot update all dimensions atomically).
type Policy int

const (
	// SkipBadRecords drops the record, counts it in Diagnostics, and
	// continues. This is the default: a handful of bad rows should not cost
	// the whole report.
	SkipBadRecords Policy = iota
	// AbortOnBadRecord fails the run on the first broken record.
	AbortOnBadRecord
)

// Source yields call records in file order, io.EOF at the end.
type Source interface {
	Read() (normalize.CallRecord, error)
}

// Engine folds a record stream into a Snapshot in a single forward pass.
// Each record updates a constant number of accumulators; a record either
// updates every applicable dimension or none.
type Engine struct {
	snap *Snapshot
}

func NewEngine() *Engine {
	return &Engine{snap: &Snapshot{
		Agents:       newTable[AgentStats](),
		Dispositions: newTable[DispositionStats](),
		Sources:      newTable[SourceStats](),
		Weekdays:     newTable[TimeBucket](),
		Days:         newTable[DayStats](),
		Campaigns:    newTable[CampaignStats](),
		AreaCodes:    newTable[AreaCodeStats](),
		Sessions:     make(map[SessionKey]*Session),
	}}
}

// Run drives the whole pass: read, normalize, accumulate, then derive the
// post-pass views. Broken records are handled per the policy; any other
// source error aborts.
func Run(src Source, policy Policy) (*Snapshot, error) {
	e := NewEngine()
	for {
		rec, err := src.Read()
		if err == io.EOF {
			break
		}
		if errors.Is(err, ingest.ErrBadRecord) {
			if policy == AbortOnBadRecord {
				return nil, err
			}
			e.snap.Diagnostics.SkippedRecords++
			continue
		}
		if err != nil {
			return nil, err
		}
		e.Add(rec)
	}
	return e.Finish(), nil
}

// Add normalizes one record and updates every applicable accumulator.
func (e *Engine) Add(rec normalize.CallRecord) {
	c := normalize.Normalize(rec)
	snap := e.snap

	if c.DurationFallback {
		snap.Diagnostics.DurationFallbacks++
	}
	if c.TimestampFallback {
		snap.Diagnostics.TimestampFallbacks++
	}

	agent := snap.Agents.Get(c.Agent)
	agent.TotalCalls++
	agent.TotalDuration += c.DurationSeconds
	agent.Dispositions.Inc(c.Disposition)
	agent.CallTypes.Inc(c.CallType)
	agent.Statuses.Inc(c.Status)

	disp := snap.Dispositions.Get(c.Disposition)
	disp.Count++
	disp.TotalDuration += c.DurationSeconds

	snap.Overall.TotalCalls++
	snap.Overall.TotalDuration += c.DurationSeconds
	if c.Status == "Answered" {
		snap.Overall.Answered++
	} else {
		snap.Overall.Missed++
	}
	if c.CallType == "Incoming" {
		snap.Overall.Incoming++
	} else {
		snap.Overall.Outgoing++
	}
	if c.Interested {
		snap.Overall.Interested++
	}

	src := snap.Sources.Get(c.Source)
	src.Total++
	if c.Interested {
		src.Interested++
	}
	if c.Status == "Answered" {
		src.Answered++
	}
	if c.Voicemail {
		src.Voicemail++
	}

	if c.HasTimestamp {
		e.addTimeBased(c)
	}

	if c.Interested {
		snap.Leads = append(snap.Leads, Lead{
			Date:         c.Date,
			ToNumber:     c.ToNumber,
			CRMLink:      c.CRMLink,
			CRMContactID: c.CRMContactID,
			Duration:     c.Duration,
			Campaign:     c.Campaign,
		})
	}

	camp := snap.Campaigns.Get(c.Campaign)
	camp.Total++
	camp.Duration += c.DurationSeconds
	if c.Interested {
		camp.Interested++
	}
	if c.Status == "Answered" {
		camp.Answered++
	}
	if c.Voicemail {
		camp.Voicemail++
	}
	if c.Disposition == "Not Interested" {
		camp.NotInterested++
	}

	ac := snap.AreaCodes.Get(c.AreaCode)
	ac.Total++
	if c.LiveAnswer {
		ac.LiveAnswer++
	}
	if c.Voicemail {
		ac.Voicemail++
	}
}

func (e *Engine) addTimeBased(c normalize.Call) {
	snap := e.snap
	ts := c.Timestamp

	// Date range: strict comparisons, so the first record wins min ties and
	// the last record wins max ties.
	if !snap.HasDates {
		snap.MinDate, snap.MaxDate = ts, ts
		snap.HasDates = true
	} else {
		if ts.Before(snap.MinDate) {
			snap.MinDate = ts
		}
		if ts.After(snap.MaxDate) {
			snap.MaxDate = ts
		}
	}

	hour := &snap.Hours[ts.Hour()]
	hour.Total++
	weekday := snap.Weekdays.Get(ts.Weekday().String())
	weekday.Total++
	if c.Status == "Answered" {
		hour.Answered++
		weekday.Answered++
	}
	if c.Interested {
		hour.Interested++
		weekday.Interested++
	}
	if c.LiveAnswer {
		hour.LiveAnswer++
		weekday.LiveAnswer++
	}

	dayKey := ts.Format(dayKeyLayout)
	day := snap.Days.Get(dayKey)
	day.Total++
	day.Duration += c.DurationSeconds
	if c.Interested {
		day.Interested++
	}

	key := SessionKey{Agent: c.Agent, Day: dayKey}
	sess, ok := snap.Sessions[key]
	if !ok {
		snap.Sessions[key] = &Session{
			First:            ts,
			Last:             ts,
			LastCallDuration: c.DurationSeconds,
			TalkSeconds:      c.DurationSeconds,
		}
		return
	}
	if ts.Before(sess.First) {
		sess.First = ts
	}
	if ts.After(sess.Last) {
		sess.Last = ts
		sess.LastCallDuration = c.DurationSeconds
	}
	sess.TalkSeconds += c.DurationSeconds
}

// Finish computes the post-pass derived views and returns the snapshot. The
// engine must not be used afterwards.
func (e *Engine) Finish() *Snapshot {
	snap := e.snap
	e.rollupWeeks()

	for _, sess := range snap.Sessions {
		snap.TotalPhoneSeconds += sess.SpanSeconds()
		snap.TotalTalkSeconds += sess.TalkSeconds
	}

	vm, _ := snap.Dispositions.Lookup("Voicemail")
	bad, _ := snap.Dispositions.Lookup("Bad Number")
	none, _ := snap.Dispositions.Lookup("No Call Outcome")
	live := snap.Overall.Answered - count(vm) - count(bad) - count(none)
	snap.Funnel = Funnel{
		Dials:             snap.Overall.TotalCalls,
		Connected:         snap.Overall.Answered,
		LiveConversations: live,
		Interested:        snap.Overall.Interested,
	}
	return snap
}

func count(d *DispositionStats) int {
	if d == nil {
		return 0
	}
	return d.Count
}

// rollupWeeks buckets weekday sessions by the Monday starting their week.
// Saturday and Sunday sessions contribute to no bucket.
func (e *Engine) rollupWeeks() {
	snap := e.snap
	type weekAcc struct {
		phoneSeconds float64
		talkSeconds  int
		days         map[string]bool
	}
	weeks := make(map[string]*weekAcc)

	for key, sess := range snap.Sessions {
		day, err := time.Parse(dayKeyLayout, key.Day)
		if err != nil {
			continue
		}
		weekdayIdx := (int(day.Weekday()) + 6) % 7 // Monday = 0
		if weekdayIdx >= 5 {
			continue
		}
		weekStart := day.AddDate(0, 0, -weekdayIdx)
		wk := weekStart.Format(dayKeyLayout)
		acc := weeks[wk]
		if acc == nil {
			acc = &weekAcc{days: make(map[string]bool)}
			weeks[wk] = acc
		}
		acc.phoneSeconds += float64(sess.SpanSeconds())
		acc.talkSeconds += sess.TalkSeconds
		acc.days[key.Day] = true
	}

	keys := make([]string, 0, len(weeks))
	for wk := range weeks {
		keys = append(keys, wk)
	}
	sort.Strings(keys)
	for _, wk := range keys {
		start, _ := time.Parse(dayKeyLayout, wk)
		acc := weeks[wk]
		snap.Weekly = append(snap.Weekly, WeekRollup{
			WeekStart:    start,
			PhoneSeconds: acc.phoneSeconds,
			TalkSeconds:  acc.talkSeconds,
			DaysWorked:   len(acc.days),
		})
	}
}
