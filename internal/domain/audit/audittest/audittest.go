// Package audittest provides an in-memory audit sink for service tests.
package audittest

import (
	"context"
	"sync"

	"workforce/internal/domain/audit"
)

// Sink keeps recorded events in memory. When Err is set every Record call
// fails with it and nothing is kept.
type Sink struct {
	mu     sync.Mutex
	Events []audit.Event
	Err    error
}

var _ audit.Sink = (*Sink)(nil)

func (s *Sink) Record(_ context.Context, evt audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Events = append(s.Events, evt)
	return nil
}

// Actions lists the recorded actions in order.
func (s *Sink) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Events))
	for _, evt := range s.Events {
		out = append(out, evt.Action)
	}
	return out
}
