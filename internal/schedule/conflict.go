package schedule

// Conflict details a positive time overlap between two events. Event1 always
// carries the lower original index, so the pair set is order-independent.
type Conflict struct {
	Event1         Event
	Event2         Event
	OverlapMinutes int
}

// FindTimeConflicts runs a pairwise interval-overlap check across the event
// list and reports every pair whose [start, end) windows strictly overlap.
// Events sharing only a boundary instant do not conflict.
func FindTimeConflicts(events []Event) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			overlap := overlapMinutes(events[i], events[j])
			if overlap > 0 {
				conflicts = append(conflicts, Conflict{
					Event1:         events[i],
					Event2:         events[j],
					OverlapMinutes: overlap,
				})
			}
		}
	}
	return conflicts
}

func overlapMinutes(a, b Event) int {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !end.After(start) {
		return 0
	}
	return DurationMinutes(start, end)
}
