package testfixtures

import (
	"context"
	"fmt"
	"sync"

	"github.com/Axelpuff/schedassist/internal/calendar"
)

// CalendarCall records one provider invocation for later assertions.
type CalendarCall struct {
	Method  string
	EventID string
	Event   calendar.Event
}

// FakeCalendarProvider is an in-memory calendar.Provider with scriptable
// failures. FailNext queues errors per method; each call consumes one queued
// error before falling through to the in-memory behaviour, which lets tests
// drive retry loops deterministically.
type FakeCalendarProvider struct {
	mu      sync.Mutex
	events  map[string]calendar.Event
	order   []string
	queued  map[string][]error
	calls   []CalendarCall
	created uint64
}

// NewFakeCalendarProvider seeds the provider with the given events.
func NewFakeCalendarProvider(events ...calendar.Event) *FakeCalendarProvider {
	p := &FakeCalendarProvider{
		events: make(map[string]calendar.Event, len(events)),
		queued: make(map[string][]error),
	}
	for _, event := range events {
		p.events[event.ID] = event
		p.order = append(p.order, event.ID)
	}
	return p
}

// FailNext queues errors for the named method ("list", "create", "update",
// "delete"). Each subsequent call to that method consumes one error.
func (p *FakeCalendarProvider) FailNext(method string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued[method] = append(p.queued[method], errs...)
}

// Calls returns a copy of the recorded invocations in order.
func (p *FakeCalendarProvider) Calls() []CalendarCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CalendarCall(nil), p.calls...)
}

// CallCount reports how many times the named method was invoked.
func (p *FakeCalendarProvider) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, call := range p.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// Event returns the stored event and whether it exists.
func (p *FakeCalendarProvider) Event(id string) (calendar.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	event, ok := p.events[id]
	return event, ok
}

func (p *FakeCalendarProvider) takeQueued(method string) error {
	queue := p.queued[method]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	p.queued[method] = queue[1:]
	return err
}

// List implements calendar.Provider.
func (p *FakeCalendarProvider) List(ctx context.Context, cred calendar.Credential, window calendar.Range) ([]calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, CalendarCall{Method: "list"})
	if err := p.takeQueued("list"); err != nil {
		return nil, err
	}
	listed := make([]calendar.Event, 0, len(p.order))
	for _, id := range p.order {
		event := p.events[id]
		if !window.From.IsZero() && event.End.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && event.Start.After(window.To) {
			continue
		}
		listed = append(listed, event)
	}
	return listed, nil
}

// Create implements calendar.Provider.
func (p *FakeCalendarProvider) Create(ctx context.Context, cred calendar.Credential, event calendar.Event) (calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, CalendarCall{Method: "create", Event: event})
	if err := p.takeQueued("create"); err != nil {
		return calendar.Event{}, err
	}
	if event.ID == "" {
		p.created++
		event.ID = fmt.Sprintf("created-%d", p.created)
	}
	p.events[event.ID] = event
	p.order = append(p.order, event.ID)
	return event, nil
}

// Update implements calendar.Provider.
func (p *FakeCalendarProvider) Update(ctx context.Context, cred calendar.Credential, id string, event calendar.Event) (calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, CalendarCall{Method: "update", EventID: id, Event: event})
	if err := p.takeQueued("update"); err != nil {
		return calendar.Event{}, err
	}
	if _, ok := p.events[id]; !ok {
		return calendar.Event{}, &calendar.ProviderError{StatusCode: 404, Message: "event not found"}
	}
	event.ID = id
	p.events[id] = event
	return event, nil
}

// Delete implements calendar.Provider.
func (p *FakeCalendarProvider) Delete(ctx context.Context, cred calendar.Credential, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, CalendarCall{Method: "delete", EventID: id})
	if err := p.takeQueued("delete"); err != nil {
		return err
	}
	if _, ok := p.events[id]; !ok {
		return &calendar.ProviderError{StatusCode: 404, Message: "event not found"}
	}
	delete(p.events, id)
	for i, existing := range p.order {
		if existing == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// FakeGenerator replays scripted completions in order and records every
// prompt it receives.
type FakeGenerator struct {
	mu      sync.Mutex
	scripts []scriptedCompletion
	prompts []string
}

type scriptedCompletion struct {
	output string
	err    error
}

// NewFakeGenerator constructs an empty generator; queue completions with
// Enqueue or EnqueueError before use.
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{}
}

// Enqueue appends a completion to the script.
func (g *FakeGenerator) Enqueue(output string) {
	g.mu.Lock()
	g.scripts = append(g.scripts, scriptedCompletion{output: output})
	g.mu.Unlock()
}

// EnqueueError appends a failing completion to the script.
func (g *FakeGenerator) EnqueueError(err error) {
	g.mu.Lock()
	g.scripts = append(g.scripts, scriptedCompletion{err: err})
	g.mu.Unlock()
}

// Prompts returns the prompts received so far.
func (g *FakeGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Generate implements genai.Generator.
func (g *FakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.scripts) == 0 {
		return "", fmt.Errorf("testfixtures: generator script exhausted after %d prompts", len(g.prompts))
	}
	next := g.scripts[0]
	g.scripts = g.scripts[1:]
	return next.output, next.err
}
