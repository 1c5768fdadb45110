package analytics

import (
	"time"

	"github.com/conorfennell/studyhash/internal/localday"
)

// ActivityWindowDays is how far back activity is scanned for the streak level.
const ActivityWindowDays = 60

// Level is a coarse study-intensity band.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelFor maps a run of consecutive study days to a level.
func LevelFor(streakDays int) Level {
	switch {
	case streakDays >= 10:
		return LevelHigh
	case streakDays >= 7:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Burnout is the streak-based burnout indicator.
type Burnout struct {
	StreakDays int   `json:"streak_days"`
	ActiveDays int   `json:"active_days"`
	Level      Level `json:"level"`
}

// StreakLevel counts the consecutive local days, ending today, that contain
// at least one activity timestamp. A day without activity today yields 0.
func StreakLevel(activity []time.Time, now time.Time, offsetMinutes int) Burnout {
	since := localday.WindowStart(now, offsetMinutes, ActivityWindowDays)

	days := make(map[time.Time]struct{})
	for _, at := range activity {
		if at.Before(since) || at.After(now) {
			continue
		}
		days[localday.Start(at, offsetMinutes)] = struct{}{}
	}

	streak := 0
	for day := localday.Start(now, offsetMinutes); !day.Before(since); day = localday.Previous(day) {
		if _, ok := days[day]; !ok {
			break
		}
		streak++
	}

	return Burnout{StreakDays: streak, ActiveDays: len(days), Level: LevelFor(streak)}
}
