package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/Axelpuff/schedassist/internal/schedule"
)

// promptEventLimit bounds how many current events are inlined into a prompt.
const promptEventLimit = 10

func buildClarifyPrompt(problem string, answered []string, events []schedule.Event) string {
	var b strings.Builder
	b.WriteString("You are a calendar scheduling assistant helping a user untangle a scheduling problem.\n\n")
	fmt.Fprintf(&b, "PROBLEM STATEMENT: %s\n", problem)

	if len(answered) > 0 {
		b.WriteString("\nANSWERS SO FAR:\n")
		for i, answer := range answered {
			fmt.Fprintf(&b, "A%d: %s\n", i+1, answer)
		}
	}

	writeEventContext(&b, events)

	b.WriteString("\nAsk exactly one short clarifying question that would most improve a schedule proposal. ")
	b.WriteString("Return only the question text, nothing else.\n")
	return b.String()
}

func buildProposalPrompt(conversation Conversation, events []schedule.Event) string {
	var b strings.Builder
	b.WriteString("You are a calendar scheduling assistant. Produce a schedule change proposal as JSON.\n\n")
	fmt.Fprintf(&b, "PROBLEM STATEMENT: %s\n", conversation.Problem.Text)

	if len(conversation.Questions) > 0 {
		b.WriteString("\nCLARIFICATIONS:\n")
		for i, question := range conversation.Questions {
			fmt.Fprintf(&b, "Q%d: %s\n", i+1, question.Text)
			if question.Answered {
				fmt.Fprintf(&b, "A%d: %s\n", i+1, question.Answer)
			}
		}
	}

	prefs := conversation.Preferences
	fmt.Fprintf(&b, "\nPREFERENCES: sleep target %.1f hours", prefs.SleepTargetHours)
	if len(prefs.Priorities) > 0 {
		fmt.Fprintf(&b, "; priorities: %s", strings.Join(prefs.Priorities, ", "))
	}
	if len(prefs.ProtectedWindows) > 0 {
		fmt.Fprintf(&b, "; protected windows: %s", strings.Join(prefs.ProtectedWindows, ", "))
	}
	b.WriteString("\n")

	writeEventContext(&b, events)

	b.WriteString(`
Respond with a single JSON object and no surrounding prose:
{
  "summary": "<one sentence describing the plan>",
  "changes": [
    {
      "type": "add|move|remove|adjust",
      "target_event_id": "<required for move/adjust/remove>",
      "event": {"title": "...", "start": "<RFC3339>", "end": "<RFC3339>"},
      "rationale": "<why this change helps>"
    }
  ],
  "sleep_assessment": {"estimated_sleep_hours": <0-12>, "below_target": <bool>}
}
Use between 1 and 5 changes. Never overlap proposed events with existing ones.
`)
	return b.String()
}

func writeEventContext(b *strings.Builder, events []schedule.Event) {
	if len(events) == 0 {
		b.WriteString("\nCURRENT CALENDAR: empty\n")
		return
	}
	b.WriteString("\nCURRENT CALENDAR EVENTS:\n")
	for i, event := range events {
		if i >= promptEventLimit {
			fmt.Fprintf(b, "... and %d more\n", len(events)-promptEventLimit)
			break
		}
		fmt.Fprintf(b, "- [%s] %s: %s to %s\n",
			event.ID, event.Title,
			event.Start.Format(time.RFC3339), event.End.Format(time.RFC3339))
	}
}
