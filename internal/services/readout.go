package services

import (
	"fmt"
	"time"

	"github.com/parkit/server/internal/models"
)

// Thresholds split elapsed parking time into severity tiers
type Thresholds struct {
	Warning time.Duration
	Danger  time.Duration
}

// DefaultThresholds returns warning at 90 minutes and danger at 120
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 90 * time.Minute, Danger: 120 * time.Minute}
}

// FormatElapsed renders a duration as zero-padded HH:MM:SS. Hours do not wrap.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// TierFor classifies whole elapsed minutes against the thresholds
func TierFor(d time.Duration, th Thresholds) models.SeverityTier {
	whole := d.Truncate(time.Minute)
	switch {
	case whole >= th.Danger:
		return models.TierDanger
	case whole >= th.Warning:
		return models.TierWarning
	default:
		return models.TierNormal
	}
}

// ComputeReadout builds the readout for a record stamped at ts
func ComputeReadout(ts, now time.Time, th Thresholds) models.Readout {
	elapsed := max(now.Sub(ts), 0)

	return models.Readout{
		Elapsed:        FormatElapsed(elapsed),
		ElapsedSeconds: int64(elapsed / time.Second),
		Tier:           TierFor(elapsed, th),
		Relative:       FormatRelative(ts, now),
		At:             now.UTC(),
	}
}

// FormatRelative describes ts relative to now in coarse units
func FormatRelative(ts, now time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff/(24*time.Hour)), "day")
	default:
		return ts.Local().Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
