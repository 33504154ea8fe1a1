package schedule

// ApplyAcceptedChanges folds accepted changes into a copy of the current
// event list. Pending and rejected changes are ignored. The input slice is
// never mutated.
func ApplyAcceptedChanges(current []Event, changes []Change) []Event {
	return fold(current, changes, false)
}

// PreviewChanges folds every change into a copy of the current event list
// regardless of acceptance state. The conflict gate uses this to evaluate the
// tentative post-change schedule before a proposal is surfaced.
func PreviewChanges(current []Event, changes []Change) []Event {
	return fold(current, changes, true)
}

func fold(current []Event, changes []Change, includeAll bool) []Event {
	events := make([]Event, len(current))
	copy(events, current)

	for _, change := range changes {
		if !includeAll && change.Accepted != AcceptanceAccepted {
			continue
		}
		switch change.Kind {
		case ChangeAdd:
			added := change.Event
			added.Source = SourceProposed
			added.ChangeType = ChangeTypeAdd
			events = append(events, added)
		case ChangeRemove:
			events = removeByID(events, removalTarget(change))
		case ChangeMove, ChangeAdjust:
			events = replaceByID(events, change)
		}
	}

	return events
}

func removalTarget(change Change) string {
	if change.TargetEventID != "" {
		return change.TargetEventID
	}
	return change.Event.ID
}

func removeByID(events []Event, id string) []Event {
	if id == "" {
		return events
	}
	filtered := events[:0]
	for _, event := range events {
		if event.ID != id {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func replaceByID(events []Event, change Change) []Event {
	for i, event := range events {
		if event.ID != change.TargetEventID {
			continue
		}
		event.Title = change.Event.Title
		event.Start = change.Event.Start
		event.End = change.Event.End
		event.DurationMinutes = change.Event.DurationMinutes
		if change.Kind == ChangeMove {
			event.ChangeType = ChangeTypeMove
		} else {
			event.ChangeType = ChangeTypeAdjust
		}
		events[i] = event
	}
	return events
}
