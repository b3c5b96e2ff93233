package analyze

import (
	"sort"
	"time"
)

// OverallStats are the whole-dataset counters.
type OverallStats struct {
	TotalCalls    int
	TotalDuration int
	Answered      int
	Missed        int
	Incoming      int
	Outgoing      int
	Interested    int
}

// AgentStats accumulates per-agent activity.
type AgentStats struct {
	TotalCalls    int
	TotalDuration int
	Dispositions  Counter
	CallTypes     Counter
	Statuses      Counter
}

// DispositionStats accumulates per-outcome counts.
type DispositionStats struct {
	Count         int
	TotalDuration int
}

// SourceStats accumulates per-lead-channel effectiveness.
type SourceStats struct {
	Total      int
	Interested int
	Answered   int
	Voicemail  int
}

// TimeBucket is the shared shape for hour-of-day and weekday breakdowns.
type TimeBucket struct {
	Total      int
	Answered   int
	Interested int
	LiveAnswer int
}

// DayStats accumulates per-calendar-day volume and conversions.
type DayStats struct {
	Total      int
	Interested int
	Duration   int
}

// CampaignStats accumulates per-campaign performance.
type CampaignStats struct {
	Total         int
	Interested    int
	Answered      int
	Voicemail     int
	NotInterested int
	Duration      int
}

// AreaCodeStats accumulates contact rates per destination area code.
type AreaCodeStats struct {
	Total      int
	LiveAnswer int
	Voicemail  int
}

// SessionKey identifies one agent's activity on one calendar day.
type SessionKey struct {
	Agent string
	Day   string // YYYY-MM-DD
}

// Session reconstructs an agent's dialer session for one day from call
// timestamps. LastCallDuration is recaptured every time Last advances so the
// session end instant (Last + LastCallDuration) stays correct.
type Session struct {
	First            time.Time
	Last             time.Time
	LastCallDuration int
	TalkSeconds      int
}

// SpanSeconds is the inferred time on the dialer: from the first call's
// start to the last call's end. Talk time can exceed this when logged
// durations overlap; that is reported as-is, not corrected.
func (s *Session) SpanSeconds() int {
	return int(s.Last.Sub(s.First)/time.Second) + s.LastCallDuration
}

// Lead is one interested-call occurrence, kept verbatim for CRM follow-up.
// The list preserves encounter order and is never deduplicated.
type Lead struct {
	Date         string
	ToNumber     string
	CRMLink      string
	CRMContactID string
	Duration     string
	Campaign     string
}

// WeekRollup aggregates weekday sessions into the ISO week starting at
// WeekStart (a Monday). Weekend sessions are excluded entirely.
type WeekRollup struct {
	WeekStart    time.Time
	PhoneSeconds float64
	TalkSeconds  int
	DaysWorked   int
}

// Funnel is the narrowing dials -> connected -> live conversation ->
// interested sequence. Connected >= LiveConversations >= Interested holds by
// construction: voicemail, bad-number, and no-outcome calls are disjoint
// subsets of answered.
type Funnel struct {
	Dials             int
	Connected         int
	LiveConversations int
	Interested        int
}

// Diagnostics counts silent parse fallbacks and skipped rows so data quality
// can be audited after a run.
type Diagnostics struct {
	DurationFallbacks  int
	TimestampFallbacks int
	SkippedRecords     int
}

// Snapshot is the read-only result of one analysis run. All tables keep
// first-encounter key order; nothing mutates after Finish.
type Snapshot struct {
	Overall      OverallStats
	Agents       *Table[AgentStats]
	Dispositions *Table[DispositionStats]
	Sources      *Table[SourceStats]
	Hours        [24]TimeBucket
	Weekdays     *Table[TimeBucket]
	Days         *Table[DayStats]
	Campaigns    *Table[CampaignStats]
	AreaCodes    *Table[AreaCodeStats]

	Sessions map[SessionKey]*Session

	MinDate  time.Time
	MaxDate  time.Time
	HasDates bool

	Leads []Lead

	// Derived after the pass.
	Weekly            []WeekRollup
	Funnel            Funnel
	TotalPhoneSeconds int
	TotalTalkSeconds  int

	Diagnostics Diagnostics
}

// SessionAgents returns agents that have at least one reconstructed session,
// sorted by name.
func (s *Snapshot) SessionAgents() []string {
	seen := make(map[string]bool)
	var agents []string
	for key := range s.Sessions {
		if !seen[key.Agent] {
			seen[key.Agent] = true
			agents = append(agents, key.Agent)
		}
	}
	sort.Strings(agents)
	return agents
}

// SessionDays returns the calendar days with sessions for one agent, sorted.
func (s *Snapshot) SessionDays(agent string) []string {
	var days []string
	for key := range s.Sessions {
		if key.Agent == agent {
			days = append(days, key.Day)
		}
	}
	sort.Strings(days)
	return days
}

// Percent returns part/total as a percentage, 0 when total is zero.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Efficiency returns talk/span as a percentage, 0 when span is not positive.
// Values above 100 are possible with overlapping logged durations.
func Efficiency(talkSeconds int, spanSeconds float64) float64 {
	if spanSeconds <= 0 {
		return 0
	}
	return float64(talkSeconds) / spanSeconds * 100
}
