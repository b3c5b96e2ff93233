// Package report renders the fixed-width analysis report. It consumes a
// finished snapshot and never mutates it; every ratio with a zero
// denominator renders as 0 or N/A rather than erroring.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"call_analytics/internal/analyze"
	"call_analytics/internal/normalize"
)

// Options control the report's filter thresholds.
type Options struct {
	TopAreaCodes      int `yaml:"top_area_codes"`
	MinAreaCodeCalls  int `yaml:"min_area_code_calls"`
	MinCampaignCalls  int `yaml:"min_campaign_calls"`
	CampaignNameWidth int `yaml:"campaign_name_width"`
}

// DefaultOptions match the historical report layout.
func DefaultOptions() Options {
	return Options{
		TopAreaCodes:      20,
		MinAreaCodeCalls:  3,
		MinCampaignCalls:  2,
		CampaignNameWidth: 35,
	}
}

var weekdayOrder = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

const rule = "================================================================================"

type writer struct {
	w   io.Writer
	err error
}

func (p *writer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *writer) section(title string) {
	p.printf("\n%s\n%s\n%s\n", rule, title, rule)
}

// Write renders the full report to w. An empty snapshot produces empty
// sections, not an error.
func Write(w io.Writer, snap *analyze.Snapshot, opts Options) error {
	p := &writer{w: w}

	p.printf("%s\nCALL DATA ANALYSIS REPORT\n%s\n", rule, rule)
	if snap.HasDates {
		days := int(snap.MaxDate.Sub(snap.MinDate)/(24*time.Hour)) + 1
		p.printf("Date Range: %s - %s (%d days)\n",
			snap.MinDate.Format("January 02, 2006"), snap.MaxDate.Format("January 02, 2006"), days)
	}
	p.printf("Total Records: %d\n", snap.Overall.TotalCalls)

	p.overall(snap)
	p.weekly(snap)
	p.daily(snap)
	p.conversions(snap)
	p.timeOfDay(snap)
	p.sources(snap)
	p.areaCodes(snap, opts)
	p.funnel(snap)
	p.campaigns(snap, opts)
	p.agents(snap)
	p.sessions(snap)
	p.dispositions(snap)
	p.leads(snap)

	return p.err
}

func (p *writer) overall(snap *analyze.Snapshot) {
	o := snap.Overall
	p.section("OVERALL SUMMARY")
	p.printf("Total Calls: %d\n", o.TotalCalls)
	p.printf("Total Duration: %s\n", normalize.FormatDuration(o.TotalDuration))
	p.printf("Answered: %d (%.1f%%)\n", o.Answered, analyze.Percent(o.Answered, o.TotalCalls))
	p.printf("Missed: %d (%.1f%%)\n", o.Missed, analyze.Percent(o.Missed, o.TotalCalls))
	p.printf("Outgoing: %d (%.1f%%)\n", o.Outgoing, analyze.Percent(o.Outgoing, o.TotalCalls))
	p.printf("Incoming: %d (%.1f%%)\n", o.Incoming, analyze.Percent(o.Incoming, o.TotalCalls))
	if o.Answered > 0 {
		p.printf("Avg Duration (answered): %s\n", normalize.FormatDuration(o.TotalDuration/o.Answered))
	}
	p.printf("Total Time on Phones: %s (%.2f hours)\n",
		normalize.FormatDuration(snap.TotalPhoneSeconds), float64(snap.TotalPhoneSeconds)/3600)
}

func (p *writer) weekly(snap *analyze.Snapshot) {
	p.section("WEEKLY HOURS ON PHONES (Mon-Fri)")
	p.printf("%-14s %-6s %-14s %-12s %-10s\n", "Week Starting", "Days", "Phone Time", "Talk Time", "Efficiency")
	p.printf("%s\n", strings.Repeat("-", 56))
	var totalPhone float64
	var totalTalk int
	for _, wk := range snap.Weekly {
		weekEnd := wk.WeekStart.AddDate(0, 0, 4)
		label := wk.WeekStart.Format("01/02") + "-" + weekEnd.Format("01/02")
		p.printf("%-14s %-6d %-14s %-12s %.1f%%\n",
			label, wk.DaysWorked,
			normalize.FormatDuration(int(wk.PhoneSeconds)),
			normalize.FormatDuration(wk.TalkSeconds),
			analyze.Efficiency(wk.TalkSeconds, wk.PhoneSeconds))
		totalPhone += wk.PhoneSeconds
		totalTalk += wk.TalkSeconds
	}
	p.printf("%s\n", strings.Repeat("-", 56))
	p.printf("%-14s %-6s %-14s %-12s %.1f%%\n", "TOTAL", "",
		normalize.FormatDuration(int(totalPhone)),
		normalize.FormatDuration(totalTalk),
		analyze.Efficiency(totalTalk, totalPhone))
}

func (p *writer) daily(snap *analyze.Snapshot) {
	p.section("DAILY CALL HOURS BREAKDOWN")
	p.printf("%-12s %-10s %-8s %-12s %-8s\n", "Date", "Day", "Calls", "Duration", "Hours")
	p.printf("%s\n", strings.Repeat("-", 50))
	var totalHours float64
	for _, dayKey := range snap.Days.SortedKeys() {
		stats, _ := snap.Days.Lookup(dayKey)
		dayName := ""
		if d, err := time.Parse("2006-01-02", dayKey); err == nil {
			dayName = d.Format("Mon")
		}
		hours := float64(stats.Duration) / 3600
		totalHours += hours
		p.printf("%-12s %-10s %-8d %-12s %.2f\n",
			dayKey, dayName, stats.Total, normalize.FormatDuration(stats.Duration), hours)
	}
	p.printf("%s\n", strings.Repeat("-", 50))
	p.printf("%-12s %-10s %-8d %-12s %.2f\n", "TOTAL", "",
		snap.Overall.TotalCalls, normalize.FormatDuration(snap.Overall.TotalDuration), totalHours)
}

func (p *writer) conversions(snap *analyze.Snapshot) {
	p.section("1. CONVERSION RATE TRACKING")
	p.printf("Total 'Interested' Outcomes: %d\n", snap.Overall.Interested)
	p.printf("Overall Conversion Rate: %.2f%%\n",
		analyze.Percent(snap.Overall.Interested, snap.Overall.TotalCalls))
	p.printf("\nConversion Rate by Date:\n")
	for _, dayKey := range snap.Days.SortedKeys() {
		stats, _ := snap.Days.Lookup(dayKey)
		suffix := ""
		if stats.Interested > 0 {
			suffix = fmt.Sprintf(" -> %d interested", stats.Interested)
		}
		p.printf("  %s: %d calls, %.1f%% conversion%s\n",
			dayKey, stats.Total, analyze.Percent(stats.Interested, stats.Total), suffix)
	}
}

func (p *writer) timeOfDay(snap *analyze.Snapshot) {
	p.section("2. TIME-OF-DAY ANALYSIS")
	p.printf("\nBy Hour:\n")
	p.printf("%-8s %-8s %-14s %-10s %-12s\n", "Hour", "Calls", "Live Answer", "Live %", "Interested")
	p.printf("%s\n", strings.Repeat("-", 52))
	for hour := 0; hour < 24; hour++ {
		stats := snap.Hours[hour]
		if stats.Total == 0 {
			continue
		}
		p.printf("%-8s %-8d %-14d %-10.1f %-12d\n",
			fmt.Sprintf("%02d:00", hour), stats.Total, stats.LiveAnswer,
			analyze.Percent(stats.LiveAnswer, stats.Total), stats.Interested)
	}

	p.printf("\nBy Day of Week:\n")
	p.printf("%-12s %-8s %-14s %-10s %-12s\n", "Day", "Calls", "Live Answer", "Live %", "Interested")
	p.printf("%s\n", strings.Repeat("-", 56))
	for _, day := range weekdayOrder {
		stats, ok := snap.Weekdays.Lookup(day)
		if !ok {
			continue
		}
		p.printf("%-12s %-8d %-14d %-10.1f %-12d\n",
			day, stats.Total, stats.LiveAnswer,
			analyze.Percent(stats.LiveAnswer, stats.Total), stats.Interested)
	}
}

func (p *writer) sources(snap *analyze.Snapshot) {
	p.section("3. SOURCE EFFECTIVENESS")
	p.printf("%-30s %-8s %-12s %-10s %-10s\n", "Source", "Calls", "Interested", "Conv %", "VM Rate")
	p.printf("%s\n", strings.Repeat("-", 70))
	for _, key := range snap.Sources.Ranked(func(s *analyze.SourceStats) int { return s.Total }) {
		stats, _ := snap.Sources.Lookup(key)
		p.printf("%-30s %-8d %-12d %-10.1f %-10.1f\n",
			key, stats.Total, stats.Interested,
			analyze.Percent(stats.Interested, stats.Total),
			analyze.Percent(stats.Voicemail, stats.Total))
	}
}

func (p *writer) areaCodes(snap *analyze.Snapshot, opts Options) {
	p.section("4. CONTACT RATE (LIVE ANSWER) BY AREA CODE")
	p.printf("%-12s %-8s %-14s %-10s %-12s\n", "Area Code", "Total", "Live Answer", "Live %", "Voicemail %")
	p.printf("%s\n", strings.Repeat("-", 56))
	ranked := snap.AreaCodes.Ranked(func(s *analyze.AreaCodeStats) int { return s.Total })
	if len(ranked) > opts.TopAreaCodes {
		ranked = ranked[:opts.TopAreaCodes]
	}
	for _, key := range ranked {
		stats, _ := snap.AreaCodes.Lookup(key)
		if stats.Total < opts.MinAreaCodeCalls {
			continue
		}
		p.printf("%-12s %-8d %-14d %-10.1f %-12.1f\n",
			key, stats.Total, stats.LiveAnswer,
			analyze.Percent(stats.LiveAnswer, stats.Total),
			analyze.Percent(stats.Voicemail, stats.Total))
	}
}

func (p *writer) funnel(snap *analyze.Snapshot) {
	p.section("6. CALLS-TO-CONVERSION FUNNEL")
	f := snap.Funnel
	p.printf("Total Dials:              %6d  (100%%)\n", f.Dials)
	p.printf("  -> Connected:           %6d  (%.1f%%)\n", f.Connected, analyze.Percent(f.Connected, f.Dials))
	p.printf("  -> Live Conversations:  %6d  (%.1f%%)\n", f.LiveConversations, analyze.Percent(f.LiveConversations, f.Dials))
	p.printf("  -> Interested:          %6d  (%.1f%%)\n", f.Interested, analyze.Percent(f.Interested, f.Dials))
	if f.Interested > 0 {
		p.printf("\nDials per Interested Lead: %.1f:1\n", float64(f.Dials)/float64(f.Interested))
		p.printf("Live Conversations per Interested: %.1f:1\n", float64(f.LiveConversations)/float64(f.Interested))
	} else {
		p.printf("\nNo interested leads yet\n")
	}
}

func (p *writer) campaigns(snap *analyze.Snapshot, opts Options) {
	p.section("7. CAMPAIGN PERFORMANCE")
	p.printf("%-35s %-7s %-6s %-7s %-7s %-8s\n", "Campaign", "Calls", "Int.", "Conv%", "VM%", "Avg Dur")
	p.printf("%s\n", strings.Repeat("-", 80))
	for _, key := range snap.Campaigns.Ranked(func(s *analyze.CampaignStats) int { return s.Total }) {
		stats, _ := snap.Campaigns.Lookup(key)
		if stats.Total < opts.MinCampaignCalls {
			continue
		}
		name := key
		if len(name) > opts.CampaignNameWidth {
			name = name[:opts.CampaignNameWidth-2] + ".."
		}
		avgDur := 0
		if stats.Total > 0 {
			avgDur = stats.Duration / stats.Total
		}
		p.printf("%-35s %-7d %-6d %-7.1f %-7.1f %-8s\n",
			name, stats.Total, stats.Interested,
			analyze.Percent(stats.Interested, stats.Total),
			analyze.Percent(stats.Voicemail, stats.Total),
			normalize.FormatDuration(avgDur))
	}
}

func (p *writer) agents(snap *analyze.Snapshot) {
	p.section("CALL OWNERS (AGENTS)")
	for _, agent := range snap.Agents.Ranked(func(a *analyze.AgentStats) int { return a.TotalCalls }) {
		stats, _ := snap.Agents.Lookup(agent)
		p.printf("\n--- %s ---\n", agent)
		p.printf("  Total Calls: %d\n", stats.TotalCalls)
		p.printf("  Total Duration: %s\n", normalize.FormatDuration(stats.TotalDuration))
		if answered := stats.Statuses.Get("Answered"); answered > 0 {
			p.printf("  Avg Duration (answered): %s\n", normalize.FormatDuration(stats.TotalDuration/answered))
		}
		p.printf("  Call Types: %s\n", counterSummary(&stats.CallTypes))
		p.printf("  Statuses: %s\n", counterSummary(&stats.Statuses))
		p.printf("  Top Dispositions:\n")
		top := stats.Dispositions.Ranked()
		if len(top) > 5 {
			top = top[:5]
		}
		for _, disp := range top {
			p.printf("    - %s: %d\n", disp, stats.Dispositions.Get(disp))
		}
	}
}

func counterSummary(c *analyze.Counter) string {
	var parts []string
	for _, key := range c.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %d", key, c.Get(key)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (p *writer) sessions(snap *analyze.Snapshot) {
	p.section("AGENT DIALER SESSION TIME")
	p.printf("Time spent on dialer = Last call time + duration - First call time\n\n")
	for _, agent := range snap.SessionAgents() {
		p.printf("--- %s ---\n", agent)
		p.printf("%-12s %-12s %-12s %-14s %-12s %-10s\n",
			"Date", "First Call", "Last Call", "Session Time", "Talk Time", "Efficiency")
		p.printf("%s\n", strings.Repeat("-", 72))

		var totalSpan, totalTalk int
		for _, day := range snap.SessionDays(agent) {
			sess := snap.Sessions[analyze.SessionKey{Agent: agent, Day: day}]
			span := sess.SpanSeconds()
			totalSpan += span
			totalTalk += sess.TalkSeconds
			p.printf("%-12s %-12s %-12s %-14s %-12s %.1f%%\n",
				day, sess.First.Format("03:04 PM"), sess.Last.Format("03:04 PM"),
				normalize.FormatDuration(span), normalize.FormatDuration(sess.TalkSeconds),
				analyze.Efficiency(sess.TalkSeconds, float64(span)))
		}
		p.printf("%s\n", strings.Repeat("-", 72))
		p.printf("%-12s %-12s %-12s %-14s %-12s %.1f%%\n", "TOTAL", "", "",
			normalize.FormatDuration(totalSpan), normalize.FormatDuration(totalTalk),
			analyze.Efficiency(totalTalk, float64(totalSpan)))
		p.printf("\nTotal Dialer Time: %s (%.2f hours)\n",
			normalize.FormatDuration(totalSpan), float64(totalSpan)/3600)
		p.printf("Total Talk Time:   %s (%.2f hours)\n\n",
			normalize.FormatDuration(totalTalk), float64(totalTalk)/3600)
	}
}

func (p *writer) dispositions(snap *analyze.Snapshot) {
	p.section("CALLS BY DISPOSITION")
	for _, key := range snap.Dispositions.Ranked(func(d *analyze.DispositionStats) int { return d.Count }) {
		stats, _ := snap.Dispositions.Lookup(key)
		avgDur := 0
		if stats.Count > 0 {
			avgDur = stats.TotalDuration / stats.Count
		}
		p.printf("%s:\n", key)
		p.printf("  Count: %d (%.1f%%)\n", stats.Count, analyze.Percent(stats.Count, snap.Overall.TotalCalls))
		p.printf("  Total Duration: %s\n", normalize.FormatDuration(stats.TotalDuration))
		p.printf("  Avg Duration: %s\n", normalize.FormatDuration(avgDur))
	}
}

func (p *writer) leads(snap *analyze.Snapshot) {
	p.section("INTERESTED LEADS SUMMARY")
	if len(snap.Leads) == 0 {
		p.printf("No interested leads in this dataset.\n")
		return
	}
	p.printf("Total Interested Leads: %d\n\n", len(snap.Leads))
	p.printf("%-22s %-16s %-10s %s\n", "Date", "Phone Number", "Duration", "CRM Link")
	p.printf("%s\n", strings.Repeat("-", 100))
	for _, lead := range snap.Leads {
		phone := lead.ToNumber
		if phone == "" {
			phone = "N/A"
		}
		crm := lead.CRMLink
		if crm == "" {
			crm = "No CRM Link"
		}
		p.printf("%-22s %-16s %-10s %s\n", lead.Date, phone, lead.Duration, crm)
	}
}
