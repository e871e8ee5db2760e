package editor

import "errors"

// MutationState phase of an optimistic mutation
type MutationState int

const (
	MutationIdle MutationState = iota
	MutationPending
	MutationCommitted
	MutationRolledBack
)

func (s MutationState) String() string {
	switch s {
	case MutationIdle:
		return "idle"
	case MutationPending:
		return "pending"
	case MutationCommitted:
		return "committed"
	case MutationRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

var (
	ErrMutationStarted    = errors.New("mutation already started")
	ErrMutationNotStarted = errors.New("mutation not started")
	ErrMutationSettled    = errors.New("mutation already settled")
)

// Mutation runs one optimistic change: Begin records a snapshot before the
// tentative state is applied, then exactly one of Commit (drop the snapshot)
// or Revert (hand the snapshot to restore) settles it. Not safe for
// concurrent use; the editor drives each mutation from a single goroutine.
type Mutation[S any] struct {
	state    MutationState
	snapshot S
	restore  func(S)
}

// NewMutation creates an idle mutation whose Revert calls restore.
func NewMutation[S any](restore func(S)) *Mutation[S] {
	return &Mutation[S]{restore: restore}
}

// State returns the current phase.
func (m *Mutation[S]) State() MutationState {
	return m.state
}

// Begin stores the snapshot and moves to pending.
func (m *Mutation[S]) Begin(snapshot S) error {
	if m.state != MutationIdle {
		return ErrMutationStarted
	}
	m.snapshot = snapshot
	m.state = MutationPending
	return nil
}

// Commit keeps the tentative state.
func (m *Mutation[S]) Commit() error {
	if err := m.settle(); err != nil {
		return err
	}
	var zero S
	m.snapshot = zero
	m.state = MutationCommitted
	return nil
}

// Revert restores the snapshot.
func (m *Mutation[S]) Revert() error {
	if err := m.settle(); err != nil {
		return err
	}
	snapshot := m.snapshot
	var zero S
	m.snapshot = zero
	m.state = MutationRolledBack
	if m.restore != nil {
		m.restore(snapshot)
	}
	return nil
}

func (m *Mutation[S]) settle() error {
	switch m.state {
	case MutationPending:
		return nil
	case MutationIdle:
		return ErrMutationNotStarted
	default:
		return ErrMutationSettled
	}
}
