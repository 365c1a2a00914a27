package filesync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdept/pipeworks/internal/domain"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runSync(t *testing.T, src, dst string) domain.Params {
	t.Helper()
	job := NewSyncer(zerolog.Nop()).SyncJob(src, dst)
	out, err := job(context.Background(), nil)
	require.NoError(t, err)
	result, ok := out.(domain.Params)
	require.True(t, ok)
	return result
}

func TestSyncJobCopiesMissingFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "props/chair/model.ma", "chair model")
	writeFile(t, src, "props/chair/textures/wood.png", "texture bytes")
	writeFile(t, src, "notes.txt", "hi")

	result := runSync(t, src, dst)
	assert.Equal(t, 3, result["copied"])
	assert.Equal(t, 0, result["skipped"])

	data, err := os.ReadFile(filepath.Join(dst, "props/chair/model.ma"))
	require.NoError(t, err)
	assert.Equal(t, "chair model", string(data))
}

func TestSyncJobSkipsUpToDateFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.ma", "one")
	writeFile(t, src, "b.ma", "two")

	first := runSync(t, src, dst)
	assert.Equal(t, 2, first["copied"])

	second := runSync(t, src, dst)
	assert.Equal(t, 0, second["copied"])
	assert.Equal(t, 2, second["skipped"])
}

func TestSyncJobRecopiesStaleFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	path := writeFile(t, src, "a.ma", "old")
	runSync(t, src, dst)

	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	result := runSync(t, src, dst)
	assert.Equal(t, 1, result["copied"])

	data, err := os.ReadFile(filepath.Join(dst, "a.ma"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestSyncJobHonorsCancellation(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "a.ma", "one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewSyncer(zerolog.Nop()).SyncJob(src, dst)
	_, err := job(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSyncJobFailsOnMissingSource(t *testing.T) {
	job := NewSyncer(zerolog.Nop()).SyncJob(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	_, err := job(context.Background(), nil)
	require.Error(t, err)
}
