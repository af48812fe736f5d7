package directions

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// UnknownSeconds sorts a duration that could not be determined after every
// known one.
const UnknownSeconds int64 = 1<<53 - 1

var (
	hoursPattern   = regexp.MustCompile(`(\d+)\s*(h|hr|hour|hours)`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*(m|min|minute|minutes)`)
	numberPattern  = regexp.MustCompile(`(\d+)`)
)

// ParseText converts human duration text such as "1 hour 5 mins" into
// seconds. A bare number is read as minutes.
func ParseText(text string) int64 {
	if text == "" {
		return UnknownSeconds
	}
	lower := strings.ToLower(text)

	var hours, minutes int64
	if m := hoursPattern.FindStringSubmatch(lower); m != nil {
		hours, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := minutesPattern.FindStringSubmatch(lower); m != nil {
		minutes, _ = strconv.ParseInt(m[1], 10, 64)
	}

	if hours == 0 && minutes == 0 {
		m := numberPattern.FindStringSubmatch(lower)
		if m == nil {
			return UnknownSeconds
		}
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return n * 60
	}
	return hours*3600 + minutes*60
}

// Format renders seconds as "X h Y min".
func Format(seconds int64) string {
	if seconds < 0 || seconds == UnknownSeconds {
		return "unknown"
	}
	hours := seconds / 3600
	minutes := int64(math.Round(float64(seconds%3600) / 60))
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d h %d min", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%d h", hours)
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}
