package schedule

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DefaultSleepStart is the assumed beginning of the nightly sleep window.
	DefaultSleepStart = "22:00"
	// DefaultWakeUp is the assumed end of the nightly sleep window.
	DefaultWakeUp = "07:00"
	// RecommendedSleepHours is the threshold below which an estimate is flagged.
	RecommendedSleepHours = 7.0
)

// SleepEstimate summarizes the rest window left open by a schedule.
type SleepEstimate struct {
	EstimatedSleepHours float64
	LastEventEnd        time.Time
	FirstEventStart     time.Time
	BelowRecommended    bool
}

// EstimateSleep computes the gap between the latest event's end and the
// earliest event's start of the next day. When the earliest start is not
// already after the latest end it is treated as occurring the following
// calendar day. An empty event list means no constraints: the estimate falls
// back to the full configured sleep window.
func EstimateSleep(events []Event, sleepStart, wakeUp string) SleepEstimate {
	if len(events) == 0 {
		hours := sleepWindowHours(sleepStart, wakeUp)
		return SleepEstimate{
			EstimatedSleepHours: hours,
			BelowRecommended:    hours < RecommendedSleepHours,
		}
	}

	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start.Before(ordered[j].Start) })

	firstStart := ordered[0].Start
	lastEnd := ordered[0].End
	for _, event := range ordered[1:] {
		if event.End.After(lastEnd) {
			lastEnd = event.End
		}
	}

	nextStart := firstStart
	if !nextStart.After(lastEnd) {
		nextStart = nextStart.Add(24 * time.Hour)
	}

	hours := nextStart.Sub(lastEnd).Hours()
	if hours < 0 {
		hours = 0
	}

	return SleepEstimate{
		EstimatedSleepHours: hours,
		LastEventEnd:        lastEnd,
		FirstEventStart:     firstStart,
		BelowRecommended:    hours < RecommendedSleepHours,
	}
}

// sleepWindowHours derives the unconstrained rest duration from the
// configured HH:MM window, wrapping across midnight when needed.
func sleepWindowHours(sleepStart, wakeUp string) float64 {
	start, okStart := parseClock(sleepStart)
	wake, okWake := parseClock(wakeUp)
	if !okStart || !okWake {
		start, _ = parseClock(DefaultSleepStart)
		wake, _ = parseClock(DefaultWakeUp)
	}
	window := wake - start
	if window <= 0 {
		window += 24 * time.Hour
	}
	return window.Hours()
}

func parseClock(value string) (time.Duration, bool) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, true
}
