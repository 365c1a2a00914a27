package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/artdept/pipeworks/internal/adapters/eventbus"
	"github.com/artdept/pipeworks/internal/adapters/tasks"
	"github.com/artdept/pipeworks/internal/adapters/worker"
	"github.com/artdept/pipeworks/internal/domain"
	"github.com/artdept/pipeworks/internal/utils"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Exercise the engine with a few example work items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemoExamples()
	},
}

// runDemoExamples queues a handful of items that show off serialized FIFO
// execution, priority jumps and fault isolation, then shuts down cleanly.
func runDemoExamples() error {
	started := time.Now()

	bus := eventbus.NewSimpleEventBus(logger)
	w := worker.New(bus, logger, worker.Opts{
		EventBufferSize: cfg.Worker.EventBufferSize,
		ShutdownTimeout: cfg.Worker.ShutdownTimeout,
	})

	const totalItems = 5
	var mu sync.Mutex
	remaining := totalItems
	allDone := make(chan struct{})
	settle := func() {
		mu.Lock()
		remaining--
		if remaining == 0 {
			close(allDone)
		}
		mu.Unlock()
	}

	if err := w.SubscribeCompleted(func(id string, result domain.Result) {
		logger.Info().Str("work_id", id).Interface("result", result).Msg("demo work completed")
		settle()
	}); err != nil {
		return err
	}
	if err := w.SubscribeFailed(func(id, errMsg, _ string) {
		logger.Warn().Str("work_id", id).Str("error", errMsg).Msg("demo work failed")
		settle()
	}); err != nil {
		return err
	}

	registry := tasks.NewRegistry(logger, cfg.Tasks.AllowedKinds)
	if err := tasks.RegisterBuiltins(registry); err != nil {
		return err
	}

	if err := w.Start(); err != nil {
		return err
	}

	sleep, err := registry.Resolve("sleep")
	if err != nil {
		return err
	}
	echo, err := registry.Resolve("echo")
	if err != nil {
		return err
	}

	enqueue := func(fn domain.Callable, params domain.Params, prio domain.Priority) error {
		_, err := w.EnqueueWork(fn, params, prio)
		return err
	}

	// Example 1: FIFO - the slow item still finishes (and reports) first.
	logger.Info().Msg("Example 1: serialized FIFO execution")
	if err := enqueue(sleep, domain.Params{"for": "50ms"}, domain.PriorityNormal); err != nil {
		return err
	}
	if err := enqueue(echo, domain.Params{"x": 2}, domain.PriorityNormal); err != nil {
		return err
	}

	// Example 2: an Immediate item jumps every pending Normal item.
	logger.Info().Msg("Example 2: priority jump")
	if err := enqueue(echo, domain.Params{"urgent": true}, domain.PriorityImmediate); err != nil {
		return err
	}

	// Example 3: a failing callable is reported once and the worker moves on.
	logger.Info().Msg("Example 3: fault isolation")
	failing := func(ctx context.Context, _ domain.Params) (domain.Result, error) {
		return nil, fmt.Errorf("bad")
	}
	if err := enqueue(failing, nil, domain.PriorityNormal); err != nil {
		return err
	}
	if err := enqueue(echo, domain.Params{"after_failure": true}, domain.PriorityNormal); err != nil {
		return err
	}

	select {
	case <-allDone:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("demo timed out waiting for events")
	}

	if err := w.Stop(true); err != nil {
		return err
	}
	bus.Stop()

	logger.Info().Str("took", utils.FormatDuration(time.Since(started))).Msg("demo finished")
	return nil
}
