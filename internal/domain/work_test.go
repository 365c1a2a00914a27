package domain

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkIDShapeAndUniqueness(t *testing.T) {
	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewWorkID()
		assert.Regexp(t, hex32, id)
		assert.False(t, seen[id], "duplicate work id %s", id)
		seen[id] = true
	}
}

func TestNewWorkItemDefaults(t *testing.T) {
	item := NewWorkItem(noopCallable, Params{"a": 1}, PriorityImmediate)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, PriorityImmediate, item.Priority)
	assert.False(t, item.EnqueuedAt.IsZero())
}

func TestTypedCallable(t *testing.T) {
	double := Typed(func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})

	out, err := double(context.Background(), Params{"input": 21})
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	_, err = double(context.Background(), Params{"input": "not an int"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected input type")

	// Missing input falls back to the zero value.
	out, err = double(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}

func TestStateAndPriorityStrings(t *testing.T) {
	assert.Equal(t, "normal", PriorityNormal.String())
	assert.Equal(t, "immediate", PriorityImmediate.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopping.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
