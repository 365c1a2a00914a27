package tasks

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdept/pipeworks/internal/domain"
)

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), []string{"*"})
	require.NoError(t, tasksRegister(r, "double"))

	fn, err := r.Resolve("double")
	require.NoError(t, err)

	out, err := fn(context.Background(), domain.Params{"n": 4})
	require.NoError(t, err)
	assert.Equal(t, 8, out)

	_, err = r.Resolve("missing")
	require.Error(t, err)
}

func tasksRegister(r *Registry, name string) error {
	return r.Register(name, "doubles n", func(_ context.Context, params domain.Params) (domain.Result, error) {
		n, _ := params["n"].(int)
		return n * 2, nil
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), []string{"*"})
	require.NoError(t, tasksRegister(r, "double"))
	require.Error(t, tasksRegister(r, "double"))
}

func TestAllowListFiltersKinds(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), []string{"echo"})
	require.NoError(t, tasksRegister(r, "echo"))
	require.Error(t, tasksRegister(r, "forbidden"))
	assert.ElementsMatch(t, []string{"echo"}, r.List())
}

func TestInvalidRegistrations(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), []string{"*"})
	require.Error(t, r.Register("", "no name", Echo))
	require.Error(t, r.Register("nil-fn", "nil callable", nil))
}

func TestBuiltins(t *testing.T) {
	r := NewRegistry(zerolog.Nop(), []string{"*"})
	require.NoError(t, RegisterBuiltins(r))
	assert.ElementsMatch(t, []string{"echo", "sleep"}, r.List())

	echo, err := r.Resolve("echo")
	require.NoError(t, err)
	out, err := echo(context.Background(), domain.Params{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Params{"a": 1}, out)

	sleep, err := r.Resolve("sleep")
	require.NoError(t, err)
	_, err = sleep(context.Background(), domain.Params{"for": "1ms"})
	require.NoError(t, err)
	_, err = sleep(context.Background(), domain.Params{})
	require.Error(t, err)
	_, err = sleep(context.Background(), domain.Params{"for": "not-a-duration"})
	require.Error(t, err)
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sleep(ctx, domain.Params{"for": "10s"})
	require.ErrorIs(t, err, context.Canceled)
}
