package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidFrequency marks a recurrence string that cannot be armed.
var ErrInvalidFrequency = errors.New("invalid schedule frequency")

// FrequencyOnce is the single non-recurring frequency; it is armed as a
// one-shot timer instead of a cron entry.
const FrequencyOnce = "once"

var everyPattern = regexp.MustCompile(`^every_([0-9]+)_(minutes|hours|days)$`)

// CronSpec translates a recurring frequency into a standard cron spec.
// Fixed-time frequencies derive their wall-clock components from
// nextRunAt. "once" has no recurring spec; callers arm it separately.
func CronSpec(frequency string, nextRunAt time.Time) (string, error) {
	switch frequency {
	case "daily":
		return fmt.Sprintf("%d %d * * *", nextRunAt.Minute(), nextRunAt.Hour()), nil
	case "weekly":
		return fmt.Sprintf("%d %d * * %d", nextRunAt.Minute(), nextRunAt.Hour(), int(nextRunAt.Weekday())), nil
	case "monthly":
		return fmt.Sprintf("%d %d %d * *", nextRunAt.Minute(), nextRunAt.Hour(), nextRunAt.Day()), nil
	}

	if expr, ok := strings.CutPrefix(frequency, "cron:"); ok {
		if _, err := cron.ParseStandard(expr); err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidFrequency, frequency, err)
		}
		return expr, nil
	}

	if m := everyPattern.FindStringSubmatch(frequency); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
		}
		switch m[2] {
		case "minutes":
			return fmt.Sprintf("@every %dm", n), nil
		case "hours":
			return fmt.Sprintf("@every %dh", n), nil
		case "days":
			return fmt.Sprintf("@every %dh", n*24), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
}

// ValidateFrequency checks a recurrence string without arming it. The
// API layer runs this before persisting a schedule.
func ValidateFrequency(frequency string) error {
	if frequency == FrequencyOnce {
		return nil
	}
	_, err := CronSpec(frequency, time.Now())
	return err
}
