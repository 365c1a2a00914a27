package domain

import (
	"sync"
	"time"
)

// WorkStatsCollector tallies completion and failure events so the front-end
// can show how the background worker is doing. It consumes the same event
// stream the UI subscribes to; the engine itself is not involved.
type WorkStatsCollector struct {
	completed int
	failed    int
	mu        sync.RWMutex
	startTime time.Time

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWorkStatsCollector creates a collector.
func NewWorkStatsCollector() *WorkStatsCollector {
	return &WorkStatsCollector{
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// Consume tallies events arriving on ch until the channel is closed or the
// collector is stopped. Safe to call for several channels at once (e.g. one
// per topic).
func (sc *WorkStatsCollector) Consume(ch <-chan Event) {
	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				sc.record(ev)
			case <-sc.done:
				return
			}
		}
	}()
}

func (sc *WorkStatsCollector) record(ev Event) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	switch ev.Data.(type) {
	case WorkCompleted:
		sc.completed++
	case WorkFailed:
		sc.failed++
	}
}

// Snapshot returns the current statistics.
func (sc *WorkStatsCollector) Snapshot() map[string]interface{} {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	total := sc.completed + sc.failed
	successRate := 0.0
	if total > 0 {
		successRate = float64(sc.completed) / float64(total)
	}

	return map[string]interface{}{
		"completed":    sc.completed,
		"failed":       sc.failed,
		"total":        total,
		"success_rate": successRate,
		"uptime":       time.Since(sc.startTime),
	}
}

// Stop terminates the consumer goroutines and waits for them to exit.
func (sc *WorkStatsCollector) Stop() {
	sc.once.Do(func() {
		close(sc.done)
	})
	sc.wg.Wait()
}
