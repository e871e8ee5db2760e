package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationCommit(t *testing.T) {
	restored := false
	m := NewMutation(func(int) { restored = true })
	assert.Equal(t, MutationIdle, m.State())

	require.NoError(t, m.Begin(1))
	assert.Equal(t, MutationPending, m.State())
	require.NoError(t, m.Commit())

	assert.Equal(t, MutationCommitted, m.State())
	assert.False(t, restored)
}

func TestMutationRevertRestoresSnapshot(t *testing.T) {
	state := []string{"a", "b"}
	m := NewMutation(func(s []string) { state = s })

	require.NoError(t, m.Begin(append([]string(nil), state...)))
	state = append(state, "tmp")
	require.NoError(t, m.Revert())

	assert.Equal(t, []string{"a", "b"}, state)
	assert.Equal(t, MutationRolledBack, m.State())
}

func TestMutationTransitions(t *testing.T) {
	m := NewMutation[int](nil)
	assert.ErrorIs(t, m.Commit(), ErrMutationNotStarted)
	assert.ErrorIs(t, m.Revert(), ErrMutationNotStarted)

	require.NoError(t, m.Begin(0))
	assert.ErrorIs(t, m.Begin(0), ErrMutationStarted)
	require.NoError(t, m.Revert())

	assert.ErrorIs(t, m.Commit(), ErrMutationSettled)
	assert.ErrorIs(t, m.Revert(), ErrMutationSettled)
	assert.ErrorIs(t, m.Begin(0), ErrMutationStarted)
}

func TestMutationStateString(t *testing.T) {
	assert.Equal(t, "pending", MutationPending.String())
	assert.Equal(t, "rolled-back", MutationRolledBack.String())
	assert.Equal(t, "unknown", MutationState(42).String())
}
