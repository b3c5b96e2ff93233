// Package export writes the analysis snapshot out as a set of CSV files.
// Each file is written to a temporary path and renamed into place, so a
// given export file is either fully written or absent.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"call_analytics/internal/analyze"
	"call_analytics/internal/normalize"
)

// WriteAll writes the nine export files using basePath as the common prefix
// (basePath_summary.csv, basePath_daily.csv, ...). It returns the paths of
// the files it created.
func WriteAll(basePath string, snap *analyze.Snapshot) ([]string, error) {
	files := []struct {
		suffix string
		write  func(*csv.Writer, *analyze.Snapshot) error
	}{
		{"_summary.csv", writeSummary},
		{"_daily.csv", writeDaily},
		{"_dispositions.csv", writeDispositions},
		{"_sources.csv", writeSources},
		{"_campaigns.csv", writeCampaigns},
		{"_area_codes.csv", writeAreaCodes},
		{"_agents.csv", writeAgents},
		{"_interested_leads.csv", writeLeads},
		{"_agent_sessions.csv", writeSessions},
	}

	var created []string
	for _, f := range files {
		path := basePath + f.suffix
		if err := writeFile(path, snap, f.write); err != nil {
			return created, fmt.Errorf("export %s: %w", path, err)
		}
		created = append(created, path)
	}
	return created, nil
}

func writeFile(path string, snap *analyze.Snapshot, fn func(*csv.Writer, *analyze.Snapshot) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := fn(w, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSummary(w *csv.Writer, snap *analyze.Snapshot) error {
	o := snap.Overall
	rows := [][]string{{"Metric", "Value"}}
	if snap.HasDates {
		rows = append(rows,
			[]string{"Date Range Start", snap.MinDate.Format("2006-01-02")},
			[]string{"Date Range End", snap.MaxDate.Format("2006-01-02")})
	}
	rows = append(rows,
		[]string{"Total Calls", strconv.Itoa(o.TotalCalls)},
		[]string{"Total Duration (seconds)", strconv.Itoa(o.TotalDuration)},
		[]string{"Answered", strconv.Itoa(o.Answered)},
		[]string{"Missed", strconv.Itoa(o.Missed)},
		[]string{"Outgoing", strconv.Itoa(o.Outgoing)},
		[]string{"Incoming", strconv.Itoa(o.Incoming)},
		[]string{"Interested", strconv.Itoa(o.Interested)},
		[]string{"Conversion Rate %", fmt.Sprintf("%.2f", analyze.Percent(o.Interested, o.TotalCalls))},
		[]string{"Skipped Records", strconv.Itoa(snap.Diagnostics.SkippedRecords)},
		[]string{"Duration Parse Fallbacks", strconv.Itoa(snap.Diagnostics.DurationFallbacks)},
		[]string{"Timestamp Parse Fallbacks", strconv.Itoa(snap.Diagnostics.TimestampFallbacks)})
	return w.WriteAll(rows)
}

func writeDaily(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Date", "Day", "Calls", "Duration_Seconds", "Duration_Formatted", "Hours", "Interested"}); err != nil {
		return err
	}
	for _, dayKey := range snap.Days.SortedKeys() {
		stats, _ := snap.Days.Lookup(dayKey)
		dayName := ""
		if d, err := time.Parse("2006-01-02", dayKey); err == nil {
			dayName = d.Weekday().String()
		}
		err := w.Write([]string{
			dayKey, dayName,
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Duration),
			normalize.FormatDuration(stats.Duration),
			fmt.Sprintf("%.2f", float64(stats.Duration)/3600),
			strconv.Itoa(stats.Interested),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeDispositions(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Disposition", "Count", "Percentage", "Total_Duration_Seconds", "Avg_Duration_Seconds"}); err != nil {
		return err
	}
	for _, key := range snap.Dispositions.Ranked(func(d *analyze.DispositionStats) int { return d.Count }) {
		stats, _ := snap.Dispositions.Lookup(key)
		avg := 0.0
		if stats.Count > 0 {
			avg = float64(stats.TotalDuration) / float64(stats.Count)
		}
		err := w.Write([]string{
			key,
			strconv.Itoa(stats.Count),
			fmt.Sprintf("%.1f", analyze.Percent(stats.Count, snap.Overall.TotalCalls)),
			strconv.Itoa(stats.TotalDuration),
			fmt.Sprintf("%.0f", avg),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeSources(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Source", "Calls", "Interested", "Conversion_Rate", "Voicemail_Rate"}); err != nil {
		return err
	}
	for _, key := range snap.Sources.Ranked(func(s *analyze.SourceStats) int { return s.Total }) {
		stats, _ := snap.Sources.Lookup(key)
		err := w.Write([]string{
			key,
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Interested),
			fmt.Sprintf("%.1f", analyze.Percent(stats.Interested, stats.Total)),
			fmt.Sprintf("%.1f", analyze.Percent(stats.Voicemail, stats.Total)),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeCampaigns(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Campaign", "Calls", "Interested", "Conversion_Rate", "Voicemail_Rate", "Avg_Duration_Seconds"}); err != nil {
		return err
	}
	for _, key := range snap.Campaigns.Ranked(func(c *analyze.CampaignStats) int { return c.Total }) {
		stats, _ := snap.Campaigns.Lookup(key)
		avg := 0.0
		if stats.Total > 0 {
			avg = float64(stats.Duration) / float64(stats.Total)
		}
		err := w.Write([]string{
			key,
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Interested),
			fmt.Sprintf("%.1f", analyze.Percent(stats.Interested, stats.Total)),
			fmt.Sprintf("%.1f", analyze.Percent(stats.Voicemail, stats.Total)),
			fmt.Sprintf("%.0f", avg),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeAreaCodes(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Area_Code", "Total_Calls", "Live_Answers", "Live_Answer_Rate", "Voicemail_Rate"}); err != nil {
		return err
	}
	for _, key := range snap.AreaCodes.Ranked(func(a *analyze.AreaCodeStats) int { return a.Total }) {
		stats, _ := snap.AreaCodes.Lookup(key)
		err := w.Write([]string{
			key,
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.LiveAnswer),
			fmt.Sprintf("%.1f", analyze.Percent(stats.LiveAnswer, stats.Total)),
			fmt.Sprintf("%.1f", analyze.Percent(stats.Voicemail, stats.Total)),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeAgents(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Agent", "Total_Calls", "Total_Duration_Seconds", "Answered", "Missed", "Incoming", "Outgoing"}); err != nil {
		return err
	}
	for _, key := range snap.Agents.Ranked(func(a *analyze.AgentStats) int { return a.TotalCalls }) {
		stats, _ := snap.Agents.Lookup(key)
		err := w.Write([]string{
			key,
			strconv.Itoa(stats.TotalCalls),
			strconv.Itoa(stats.TotalDuration),
			strconv.Itoa(stats.Statuses.Get("Answered")),
			strconv.Itoa(stats.Statuses.Get("Missed")),
			strconv.Itoa(stats.CallTypes.Get("Incoming")),
			strconv.Itoa(stats.CallTypes.Get("Outgoing")),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeLeads(w *csv.Writer, snap *analyze.Snapshot) error {
	if err := w.Write([]string{"Date", "Phone_Number", "Duration", "CRM_Contact_ID", "CRM_Link", "Campaign"}); err != nil {
		return err
	}
	for _, lead := range snap.Leads {
		err := w.Write([]string{
			lead.Date, lead.ToNumber, lead.Duration,
			lead.CRMContactID, lead.CRMLink, lead.Campaign,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeSessions(w *csv.Writer, snap *analyze.Snapshot) error {
	header := []string{"Agent", "Date", "First_Call", "Last_Call", "Session_Seconds",
		"Session_Formatted", "Talk_Seconds", "Talk_Formatted", "Efficiency_Pct"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, agent := range snap.SessionAgents() {
		for _, day := range snap.SessionDays(agent) {
			sess := snap.Sessions[analyze.SessionKey{Agent: agent, Day: day}]
			span := sess.SpanSeconds()
			err := w.Write([]string{
				agent, day,
				sess.First.Format("03:04 PM"),
				sess.Last.Format("03:04 PM"),
				strconv.Itoa(span),
				normalize.FormatDuration(span),
				strconv.Itoa(sess.TalkSeconds),
				normalize.FormatDuration(sess.TalkSeconds),
				fmt.Sprintf("%.1f", analyze.Efficiency(sess.TalkSeconds, float64(span))),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
