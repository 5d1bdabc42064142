package services

import (
	"fmt"
	"time"

	"github.com/anonto42/notification-engine/internal/models"
)

// IsQuiet reports whether instant falls inside the user's quiet-hours window,
// evaluated on the user's local clock. start > end wraps midnight.
//
// A window that cannot be evaluated (unknown zone, unparsable bound) is never
// quiet; the cause is returned for logging.
func IsQuiet(prefs *models.NotificationPreferences, instant time.Time) (bool, error) {
	if prefs == nil || !prefs.QuietHoursEnabled || prefs.QuietHoursStart == nil || prefs.QuietHoursEnd == nil {
		return false, nil
	}

	start, err := parseClock(*prefs.QuietHoursStart)
	if err != nil {
		return false, err
	}
	end, err := parseClock(*prefs.QuietHoursEnd)
	if err != nil {
		return false, err
	}

	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		return false, fmt.Errorf("unknown timezone %q: %w", prefs.Timezone, err)
	}

	local := instant.In(loc)
	now := local.Hour()*60 + local.Minute()

	if start <= end {
		return start <= now && now < end, nil
	}
	return now >= start || now < end, nil
}

// parseClock converts "HH:MM" into minutes since midnight
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
