package pipeline

import (
	"time"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// State is a step of the run state machine.
type State string

const (
	StateIdle          State = "Idle"
	StateExtracting    State = "Extracting"
	StateResolving     State = "Resolving"
	StateTransforming  State = "Transforming"
	StateValidating    State = "Validating"
	StateSynchronizing State = "Synchronizing"
	StateReporting     State = "Reporting"
	StateDone          State = "Done"
	StateFailed        State = "Failed"
)

var stateOrder = map[State]int{
	StateIdle:          0,
	StateExtracting:    1,
	StateResolving:     2,
	StateTransforming:  3,
	StateValidating:    4,
	StateSynchronizing: 5,
	StateReporting:     6,
	StateDone:          7,
	StateFailed:        7,
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Machine tracks the current state and every transition taken. Transitions
// only move forward; a stage may be skipped to reach Reporting, and Done or
// Failed are reached from Reporting only.
type Machine struct {
	current State
	history []report.Transition
	now     func() time.Time
}

func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{current: StateIdle, now: now}
}

func (m *Machine) Current() State { return m.current }

// History returns the transitions taken so far.
func (m *Machine) History() []report.Transition {
	return append([]report.Transition(nil), m.history...)
}

// Transition moves to next or returns a pipeline error when the move would
// go backwards or leave a terminal state.
func (m *Machine) Transition(next State) error {
	from, to := m.current, next
	toOrder, known := stateOrder[to]
	switch {
	case !known:
		return invalidTransition(from, to, "unknown state")
	case from.Terminal():
		return invalidTransition(from, to, "run already finished")
	case to.Terminal() && from != StateReporting:
		return invalidTransition(from, to, "terminal states are reached from Reporting")
	case toOrder <= stateOrder[from]:
		return invalidTransition(from, to, "transitions only move forward")
	}
	m.history = append(m.history, report.Transition{From: string(from), To: string(to), At: m.now()})
	m.current = to
	return nil
}

func invalidTransition(from, to State, reason string) error {
	return errors.PipelineError("invalid state transition: "+reason).
		WithContext("from", string(from)).
		WithContext("to", string(to)).
		Build()
}
