package youtube

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// --- Counts ---

// countRe anchors the multiplier suffix to the number, so the K/M/B
// letters inside surrounding words ("suBscriBers") never apply.
var countRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([KMB])?`)

// ParseCount turns display counts like "1.2M views" or "15,234
// subscribers" into an integer. Reports false when the text carries no
// parseable number, e.g. "No videos".
func ParseCount(s string) (int64, bool) {
	up := strings.ToUpper(strings.ReplaceAll(s, ",", ""))
	m := countRe.FindStringSubmatch(up)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	mult := int64(1)
	switch m[2] {
	case "K":
		mult = 1_000
	case "M":
		mult = 1_000_000
	case "B":
		mult = 1_000_000_000
	}
	return int64(math.Round(f * float64(mult))), true
}

// --- Durations ---

var (
	isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
	clockRe       = regexp.MustCompile(`^\d+(?::\d+)*$`)
)

// ParseDuration turns a duration string into whole seconds. It accepts
// clock text as shown on video tiles ("12:34", "1:02:03", bare seconds),
// the ISO 8601 form used in structured video data ("PT1H2M3S") and Go
// notation ("1h2m3s"). Malformed or negative input yields 0.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if clockRe.MatchString(s) {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0
		}
		total := 0
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return 0
			}
			total = total*60 + n
		}
		return total
	}

	if m := isoDurationRe.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		total := h*3600 + min*60 + sec
		if total == 0 && m[1] == "" && m[2] == "" && m[3] == "" {
			return 0
		}
		return total
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// --- Dates ---

var relativeDateRe = regexp.MustCompile(`(?i)(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago`)

// ParseDate resolves a published-date string to an absolute time.
// Relative phrases ("3 weeks ago", including "Streamed 2 years ago")
// are anchored to ref; anything else goes through a general date
// parser. Reports false when the text stays unresolvable.
func ParseDate(s string, ref time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := relativeDateRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch strings.ToLower(m[2]) {
		case "second":
			return ref.Add(-time.Duration(n) * time.Second), true
		case "minute":
			return ref.Add(-time.Duration(n) * time.Minute), true
		case "hour":
			return ref.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return ref.AddDate(0, 0, -n), true
		case "week":
			return ref.AddDate(0, 0, -7*n), true
		case "month":
			return ref.AddDate(0, -n, 0), true
		case "year":
			return ref.AddDate(-n, 0, 0), true
		}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
