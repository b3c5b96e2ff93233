package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayout matches the dialer export format, e.g. "11/27/2024, 09:05 AM".
// Single-digit layout fields accept both padded and unpadded input.
const timestampLayout = "1/2/2006, 3:04 PM"

// CallRecord is one raw row from the activity export, fields as they
// appear in the file.
type CallRecord struct {
	Agent        string
	Disposition  string
	Duration     string
	CallType     string
	Status       string
	Source       string
	Campaign     string
	ToNumber     string
	Date         string
	CRMLink      string
	CRMContactID string
}

// Call is a CallRecord with typed and derived fields. Raw fields are kept
// because reports echo them verbatim (lead lists print the original date
// and duration text).
type Call struct {
	CallRecord

	DurationSeconds int
	Timestamp       time.Time
	HasTimestamp    bool
	AreaCode        string

	Interested bool
	Voicemail  bool
	LiveAnswer bool

	// Parse fallbacks, surfaced so runs can report data-quality counters.
	DurationFallback  bool
	TimestampFallback bool
}

// Normalize converts a raw record into a typed Call. Unparseable duration or
// timestamp fields never fail: they fall back to zero / absent and set the
// corresponding fallback flag.
func Normalize(rec CallRecord) Call {
	if rec.Disposition == "" {
		rec.Disposition = "Unknown"
	}
	if rec.Source == "" {
		rec.Source = "Unknown"
	}
	if rec.Campaign == "" {
		rec.Campaign = "No Campaign"
	}

	c := Call{CallRecord: rec}
	c.DurationSeconds, c.DurationFallback = ParseDuration(rec.Duration)
	c.Timestamp, c.HasTimestamp, c.TimestampFallback = ParseTimestamp(rec.Date)
	c.AreaCode = AreaCode(rec.ToNumber)

	c.Interested = rec.Disposition == "Interested"
	c.Voicemail = rec.Disposition == "Voicemail"
	c.LiveAnswer = rec.Status == "Answered" &&
		rec.Disposition != "Voicemail" &&
		rec.Disposition != "No Call Outcome" &&
		rec.Disposition != "Bad Number"
	return c
}

// ParseDuration converts "M:SS" or "H:MM:SS" to seconds. Empty string and
// "0" are legitimate zeros; any other shape yields 0 with fellBack set.
func ParseDuration(text string) (seconds int, fellBack bool) {
	if text == "" || text == "0" {
		return 0, false
	}
	parts := strings.Split(text, ":")
	switch len(parts) {
	case 2:
		m, err1 := strconv.Atoi(parts[0])
		s, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, true
		}
		return m*60 + s, false
	case 3:
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		s, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, true
		}
		return h*3600 + m*60 + s, false
	default:
		return 0, true
	}
}

// FormatDuration renders seconds as "H:MM:SS", or "M:SS" when under an hour.
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// ParseTimestamp parses the export's "MM/DD/YYYY, HH:MM AM" form, stripping
// surrounding quotes first. ok is false when no timestamp could be read;
// fellBack is set only when a non-empty value failed to parse.
func ParseTimestamp(text string) (ts time.Time, ok bool, fellBack bool) {
	trimmed := strings.Trim(text, `"`)
	if trimmed == "" {
		return time.Time{}, false, false
	}
	parsed, err := time.Parse(timestampLayout, trimmed)
	if err != nil {
		return time.Time{}, false, true
	}
	return parsed, true, false
}

// AreaCode extracts the three-digit area code from a phone number. Numbers
// with fewer than ten digits get the "Unknown" sentinel; a single leading
// "1" country code is skipped.
func AreaCode(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) < 10 {
		return "Unknown"
	}
	if digits[0] == '1' {
		return string(digits[1:4])
	}
	return string(digits[:3])
}
