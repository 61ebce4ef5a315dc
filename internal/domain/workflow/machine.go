package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachine tracks the current wizard stage and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is configured in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured in the current state
	PermittedTriggers() []Trigger
}

// transition is a target state with an optional guard
type transition struct {
	toState State
	guard   GuardFunc
}

// Builder configures the transition table for a state machine
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

// NewBuilder creates a new state machine builder
func NewBuilder() *Builder {
	return &Builder{
		transitions: make(map[State]map[Trigger][]transition),
	}
}

// Permit allows a trigger to transition from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	return b.PermitIf(from, trigger, to, nil)
}

// PermitIf allows a trigger to transition if the guard condition passes
func (b *Builder) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	if b.transitions[from] == nil {
		b.transitions[from] = make(map[Trigger][]transition)
	}
	b.transitions[from][trigger] = append(b.transitions[from][trigger], transition{
		toState: to,
		guard:   guard,
	})

	return b
}

// Build creates a state machine instance with the given initial state.
// The builder's transition table is shared, so Build may be called once per
// session without re-configuring.
func (b *Builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	return &stateMachine{
		currentState: initialState,
		transitions:  b.transitions,
	}
}

// stateMachine implements StateMachine
type stateMachine struct {
	currentState State
	transitions  map[State]map[Trigger][]transition
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger is configured in the current state.
// Guards are not evaluated here; a guarded transition still reports true.
func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.transitions[m.currentState][trigger]) > 0
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	transitions := m.transitions[m.currentState][trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

// PermittedTriggers returns all triggers configured in the current state
func (m *stateMachine) PermittedTriggers() []Trigger {
	config := m.transitions[m.currentState]

	triggers := make([]Trigger, 0, len(config))
	for trigger := range config {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
