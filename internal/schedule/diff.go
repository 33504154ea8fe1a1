package schedule

// DiffResult classifies events by how the proposed view departs from the
// current one. Matching is by stable event id, never by content: two events
// with identical times but different ids are never unified.
type DiffResult struct {
	Added    []Event
	Removed  []Event
	Moved    []Event
	Adjusted []Event
}

// Empty reports whether the diff carries no changes in any category.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Moved) == 0 && len(d.Adjusted) == 0
}

// Diff compares the current and proposed event sets. Events present only in
// proposed are added; present only in current are removed; present in both
// with only the time window differing are moved; present in both with a title
// or other field difference are adjusted.
func Diff(current, proposed []Event) DiffResult {
	var result DiffResult

	currentByID := make(map[string]Event, len(current))
	for _, event := range current {
		currentByID[event.ID] = event
	}
	proposedIDs := make(map[string]struct{}, len(proposed))

	for _, candidate := range proposed {
		proposedIDs[candidate.ID] = struct{}{}
		existing, ok := currentByID[candidate.ID]
		if !ok {
			result.Added = append(result.Added, candidate)
			continue
		}
		timeChanged := !existing.Start.Equal(candidate.Start) || !existing.End.Equal(candidate.End)
		fieldChanged := existing.Title != candidate.Title
		switch {
		case fieldChanged:
			result.Adjusted = append(result.Adjusted, candidate)
		case timeChanged:
			result.Moved = append(result.Moved, candidate)
		}
	}

	for _, existing := range current {
		if _, ok := proposedIDs[existing.ID]; !ok {
			result.Removed = append(result.Removed, existing)
		}
	}

	return result
}
