// Package filesync supplies the background worker with its main real-world
// workload: mirroring asset files from a server mirror into the artist's
// local working directory. The engine itself stays content-agnostic; this
// package only builds callables and consumes the worker port.
package filesync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/artdept/pipeworks/internal/domain"
	"github.com/artdept/pipeworks/internal/utils"
)

// Syncer builds file synchronization jobs.
type Syncer struct {
	log zerolog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(log zerolog.Logger) *Syncer {
	return &Syncer{
		log: log.With().Str("component", "filesync").Logger(),
	}
}

// SyncJob returns a callable that copies every file under src that is missing
// or stale under dst. The result reports {"copied", "skipped", "bytes"}.
//
// The callable checks its context between files, so a stopping worker cuts a
// long sync short at the next file boundary instead of being killed mid-copy.
func (s *Syncer) SyncJob(src, dst string) domain.Callable {
	return func(ctx context.Context, _ domain.Params) (domain.Result, error) {
		var copied, skipped int
		var bytes int64

		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)

			stale, err := isStale(path, target)
			if err != nil {
				return err
			}
			if !stale {
				skipped++
				return nil
			}

			n, err := copyFile(path, target)
			if err != nil {
				return fmt.Errorf("copying %s: %w", rel, err)
			}
			copied++
			bytes += n
			s.log.Debug().Str("file", rel).Int64("bytes", n).Msg("file synced")
			return nil
		})
		if err != nil {
			return nil, err
		}

		s.log.Info().
			Str("source", src).
			Str("target", dst).
			Int("copied", copied).
			Int("skipped", skipped).
			Msg("sync finished")
		return domain.Params{
			"copied":  copied,
			"skipped": skipped,
			"bytes":   bytes,
		}, nil
	}
}

// isStale reports whether target is missing or older than source.
func isStale(source, target string) (bool, error) {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Stat(target)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return srcInfo.ModTime().After(dstInfo.ModTime()), nil
}

// copyFile copies source to target, creating parent directories and
// preserving the source modification time so staleness checks stay stable.
func copyFile(source, target string) (int64, error) {
	if err := utils.CreateDirIfNotExists(filepath.Dir(target)); err != nil {
		return 0, err
	}

	in, err := os.Open(source)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	info, err := os.Stat(source)
	if err != nil {
		return n, err
	}
	return n, os.Chtimes(target, info.ModTime(), info.ModTime())
}
