package engine

import (
	"fmt"
	"time"

	"github.com/openpredict/wagerd/internal/domain"
)

// TimeLeft renders the remaining betting window of a market against the
// given reference time. See FormatTimeLeft for the format.
func TimeLeft(m domain.Market, now time.Time) string {
	return FormatTimeLeft(m.EndTime - now.Unix())
}

// FormatTimeLeft renders a countdown using the coarsest two non-zero units
// of days, hours, and minutes: "2d 5h left", "3h 12m left", "45m left".
// Non-positive values render as "Ended"; the classifier should have moved
// such a market out of ACTIVE already, but the formatter stays defensive.
func FormatTimeLeft(secondsLeft int64) string {
	if secondsLeft <= 0 {
		return "Ended"
	}

	days := secondsLeft / 86400
	hours := (secondsLeft % 86400) / 3600
	minutes := (secondsLeft % 3600) / 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	default:
		return fmt.Sprintf("%dm left", minutes)
	}
}
