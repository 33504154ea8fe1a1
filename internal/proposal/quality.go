package proposal

import (
	"fmt"
	"time"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

// QualityReport carries advisory findings about an otherwise valid proposal.
// It never gates control flow; callers log it and move on.
type QualityReport struct {
	Score    int
	Warnings []string
}

const (
	shortEventMinutes = 5
	longEventMinutes  = 8 * 60

	plausibleSleepMin = 3.0
	plausibleSleepMax = 11.0
)

// AssessQuality computes a 0-100 heuristic score from warning counts. The
// reference time decides whether an event is past-dated.
func AssessQuality(p Proposal, now time.Time) QualityReport {
	report := QualityReport{Score: 100}

	for i, change := range p.Changes {
		if change.Kind == schedule.ChangeRemove {
			continue
		}
		event := change.Event
		minutes := schedule.DurationMinutes(event.Start, event.End)
		switch {
		case minutes > 0 && minutes < shortEventMinutes:
			report.warn("changes[%d]: %q is unusually short (%d minutes)", i, event.Title, minutes)
		case minutes > longEventMinutes:
			report.warn("changes[%d]: %q is unusually long (%d minutes)", i, event.Title, minutes)
		}
		if !event.Start.IsZero() && event.Start.Before(now) {
			report.warn("changes[%d]: %q starts in the past", i, event.Title)
		}
	}

	hours := p.SleepAssessment.EstimatedSleepHours
	if hours < plausibleSleepMin || hours > plausibleSleepMax {
		report.warn("sleep estimate of %.1f hours is implausible", hours)
	}

	return report
}

func (r *QualityReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	r.Score -= 10
	if r.Score < 0 {
		r.Score = 0
	}
}
