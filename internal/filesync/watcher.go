package filesync

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artdept/pipeworks/internal/domain"
	"github.com/artdept/pipeworks/internal/ports"
)

// Watcher observes the server mirror and enqueues a sync job after each burst
// of filesystem changes. Bursts are debounced so one export from the DCC does
// not trigger a sync per file.
type Watcher struct {
	fsw      *fsnotify.Watcher
	worker   ports.BackgroundWorker
	syncer   *Syncer
	src      string
	dst      string
	debounce time.Duration
	log      zerolog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher over src that syncs into dst through the
// given worker.
func NewWatcher(worker ports.BackgroundWorker, syncer *Syncer, src, dst string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		worker:   worker,
		syncer:   syncer,
		src:      src,
		dst:      dst,
		debounce: debounce,
		log:      log.With().Str("component", "watcher").Logger(),
		stopChan: make(chan struct{}),
	}, nil
}

// Start registers src and all its subdirectories and launches the watch loop.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop()
	w.log.Info().Str("source", w.src).Dur("debounce", w.debounce).Msg("watcher started")
	return nil
}

// SyncNow enqueues an Immediate sync, jumping ahead of any pending work.
func (w *Watcher) SyncNow() (string, error) {
	return w.worker.EnqueueWork(w.syncer.SyncJob(w.src, w.dst), nil, domain.PriorityImmediate)
}

// Stop shuts the watcher down. Pending debounced changes are abandoned.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		_ = w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need to be registered before the debounce fires.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			id, err := w.worker.EnqueueWork(w.syncer.SyncJob(w.src, w.dst), nil, domain.PriorityNormal)
			if err != nil {
				w.log.Warn().Err(err).Msg("could not enqueue sync after change burst")
				continue
			}
			w.log.Debug().Str("work_id", id).Msg("sync enqueued after change burst")

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")

		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
