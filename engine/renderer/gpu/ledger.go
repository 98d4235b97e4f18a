package gpu

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/core"
)

// StateLedger tracks the declared state of every resource along a command
// stream. A resource has exactly one declared state at any point.
type StateLedger struct {
	states map[uint64]ResourceState
	names  map[uint64]string
}

func NewStateLedger() *StateLedger {
	return &StateLedger{
		states: make(map[uint64]ResourceState),
		names:  make(map[uint64]string),
	}
}

// Declare sets the state of r, as done at creation time.
func (l *StateLedger) Declare(r Resource, s ResourceState) {
	l.states[r.ID()] = s
	l.names[r.ID()] = r.Name()
}

func (l *StateLedger) Forget(r Resource) {
	delete(l.states, r.ID())
	delete(l.names, r.ID())
}

func (l *StateLedger) State(r Resource) (ResourceState, bool) {
	s, ok := l.states[r.ID()]
	return s, ok
}

// Apply moves a resource along a transition. Before must match the
// currently declared state.
func (l *StateLedger) Apply(t Transition) error {
	cur, ok := l.states[t.Resource.ID()]
	if !ok {
		return fmt.Errorf("%w: %s is not a tracked resource", core.ErrInvalidTransition, t.Resource.Name())
	}
	if cur != t.Before {
		return fmt.Errorf("%w: %s is %s, barrier expects %s", core.ErrInvalidTransition, t.Resource.Name(), cur, t.Before)
	}
	if t.Before == t.After {
		return fmt.Errorf("%w: %s transitions to its own state %s", core.ErrInvalidTransition, t.Resource.Name(), t.After)
	}
	l.states[t.Resource.ID()] = t.After
	return nil
}

// Require fails unless r is currently in one of the allowed states.
func (l *StateLedger) Require(r Resource, allowed ...ResourceState) error {
	cur, ok := l.states[r.ID()]
	if !ok {
		return fmt.Errorf("%w: %s is not a tracked resource", core.ErrInvalidState, r.Name())
	}
	for _, s := range allowed {
		if cur == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s, need one of %v", core.ErrInvalidState, r.Name(), cur, allowed)
}

func (l *StateLedger) Clone() *StateLedger {
	c := NewStateLedger()
	for id, s := range l.states {
		c.states[id] = s
		c.names[id] = l.names[id]
	}
	return c
}

// Diff lists the resources whose state differs between l and other.
func (l *StateLedger) Diff(other *StateLedger) []string {
	var out []string
	for id, s := range l.states {
		o, ok := other.states[id]
		if !ok {
			out = append(out, fmt.Sprintf("%s: %s -> untracked", l.names[id], s))
			continue
		}
		if o != s {
			out = append(out, fmt.Sprintf("%s: %s -> %s", l.names[id], s, o))
		}
	}
	for id, s := range other.states {
		if _, ok := l.states[id]; !ok {
			out = append(out, fmt.Sprintf("%s: untracked -> %s", other.names[id], s))
		}
	}
	return out
}
