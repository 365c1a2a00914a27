package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/artdept/pipeworks/internal/domain"
)

// RegisterBuiltins adds the small diagnostic kinds shipped with the engine.
// They are handy for smoke-testing a wired-up worker from the CLI.
func RegisterBuiltins(r *Registry) error {
	if err := r.Register("echo", "Return the given params unchanged", Echo); err != nil {
		return err
	}
	if err := r.Register("sleep", "Sleep for the duration under the \"for\" key", Sleep); err != nil {
		return err
	}
	return nil
}

// Echo returns its params as the result.
func Echo(_ context.Context, params domain.Params) (domain.Result, error) {
	return params, nil
}

// Sleep blocks for the duration given under the "for" key (string form, e.g.
// "250ms"). It honors cancellation, returning early when the worker stops.
func Sleep(ctx context.Context, params domain.Params) (domain.Result, error) {
	raw, ok := params["for"].(string)
	if !ok {
		return nil, fmt.Errorf("sleep: missing or non-string \"for\" param")
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("sleep: %w", err)
	}

	select {
	case <-time.After(d):
		return domain.Params{"slept": raw}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
