package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "final.mp3")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLocalStore_PutAndOpen(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "audio_out"), nil)
	require.NoError(t, err)

	name := "chronique_0123456789abcdef0123456789abcdef_1000.mp3"
	require.NoError(t, store.Put(ctx, name, writeSource(t, "ID3 data")))

	f, info, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ID3 data", string(data))
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, name, info.Name)
}

func TestLocalStore_OpenRejectsUnknownAndUnsafeNames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "out"), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "chronique_dir"), 0o755))

	for _, name := range []string{"missing.mp3", "../secret.txt", "..", "chronique_dir"} {
		_, _, err := store.Open(ctx, name)
		require.Error(t, err, name)
		assert.True(t, apperrors.IsNotFound(err), name)
		assert.Equal(t, "Not found", apperrors.GetAppError(err).Message)
	}
}

func TestLocalStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	oldName := "chronique_old_1000.wav"
	freshName := "chronique_fresh_1000.wav"
	require.NoError(t, store.Put(ctx, oldName, writeSource(t, "old")))
	require.NoError(t, store.Put(ctx, freshName, writeSource(t, "fresh")))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "keep.txt"), []byte("x"), 0o644))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), oldName), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), "keep.txt"), past, past))

	removed, err := store.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, _, err = store.Open(ctx, oldName)
	assert.True(t, apperrors.IsNotFound(err))
	f, _, err := store.Open(ctx, freshName)
	require.NoError(t, err)
	f.Close()
	assert.FileExists(t, filepath.Join(store.Dir(), "keep.txt"))
}

func TestLocalStore_CheckWritable(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	assert.NoError(t, store.CheckWritable(context.Background()))
}

func TestJanitor_SweepsOnStart(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	name := "chronique_expired_1000.mp3"
	require.NoError(t, store.Put(ctx, name, writeSource(t, "old")))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), name), past, past))

	var swept atomic.Int32
	janitor := NewJanitor(store, time.Minute, time.Hour, nil)
	janitor.OnSweep(func(n int) { swept.Add(int32(n)) })
	janitor.Start()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(store.Dir(), name))
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return swept.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	janitor.Stop()
	janitor.Stop()
}

func TestJanitor_StopWithoutStart(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		NewJanitor(store, time.Minute, time.Hour, nil).Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a janitor that never started")
	}
}
