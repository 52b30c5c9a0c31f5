package billtext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastWatcher(opts ...WatchOption) *Watcher {
	return NewWatcher(append([]WatchOption{WithPollInterval(10 * time.Millisecond)}, opts...)...)
}

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestWatcher_AcceptsFinishedDownload(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "fatura.pdf")
	writeSized(t, want, 500)

	got, err := fastWatcher().Wait(context.Background(), dir, time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWatcher_ExtensionIgnoresCase(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "FATURA.PDF")
	writeSized(t, want, 500)

	got, err := fastWatcher().Wait(context.Background(), dir, time.Second)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWatcher_WaitsWhileInProgress(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "fatura.pdf.crdownload")
	writeSized(t, marker, 10)
	writeSized(t, filepath.Join(dir, "old.pdf"), 500)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "fatura.pdf"), make([]byte, 800), 0o644)
		_ = os.Remove(marker)
	}()

	start := time.Now()
	got, err := fastWatcher().Wait(context.Background(), dir, 2*time.Second)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, filepath.Join(dir, "fatura.pdf"), got)
}

func TestWatcher_PicksNewestCandidate(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "a.pdf")
	newer := filepath.Join(dir, "b.pdf")
	writeSized(t, older, 500)
	writeSized(t, newer, 500)

	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-time.Minute), now.Add(-time.Minute)))
	require.NoError(t, os.Chtimes(newer, now, now))

	got, err := fastWatcher().Wait(context.Background(), dir, time.Second)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestWatcher_RejectsSmallFile(t *testing.T) {
	dir := t.TempDir()
	writeSized(t, filepath.Join(dir, "fatura.pdf"), DefaultMinSize)

	_, err := fastWatcher().Wait(context.Background(), dir, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrDownloadTimeout)

	var te *DownloadTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []string{"fatura.pdf"}, te.Candidates)
	assert.False(t, te.Unreadable)
}

func TestWatcher_RejectsStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fatura.pdf")
	writeSized(t, path, 500)
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, stale, stale))

	_, err := fastWatcher().Wait(context.Background(), dir, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestWatcher_GraceExtendsAcceptedAge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fatura.pdf")
	writeSized(t, path, 500)
	mod := time.Now().Add(-5 * time.Second)
	require.NoError(t, os.Chtimes(path, mod, mod))

	got, err := fastWatcher().Wait(context.Background(), dir, time.Second)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = fastWatcher(WithGrace(0)).Wait(context.Background(), dir, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestWatcher_EmptyDirectoryTimesOut(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()
	_, err := fastWatcher().Wait(context.Background(), dir, 150*time.Millisecond)
	require.ErrorIs(t, err, ErrDownloadTimeout)
	assert.Less(t, time.Since(start), time.Second)

	var te *DownloadTimeoutError
	require.True(t, errors.As(err, &te))
	assert.Empty(t, te.Candidates)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	_, err := fastWatcher().Wait(context.Background(), dir, 50*time.Millisecond)

	var te *DownloadTimeoutError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Unreadable)
}

func TestWatcher_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := NewWatcher(WithPollInterval(time.Second)).Wait(ctx, t.TempDir(), 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_CustomSuffixes(t *testing.T) {
	dir := t.TempDir()
	writeSized(t, filepath.Join(dir, "statement.part"), 10)
	writeSized(t, filepath.Join(dir, "statement.txt"), 500)

	w := fastWatcher(WithPendingSuffix(".part"), WithOutputExt(".TXT"))
	_, err := w.Wait(context.Background(), dir, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrDownloadTimeout)

	require.NoError(t, os.Remove(filepath.Join(dir, "statement.part")))
	got, err := w.Wait(context.Background(), dir, time.Second)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "statement.txt"), got)
}
