package billtext

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Watcher defaults.
const (
	DefaultPollInterval  = 3 * time.Second
	DefaultGrace         = 10 * time.Second
	DefaultMinSize       = 100
	DefaultPendingSuffix = ".crdownload"
	DefaultOutputExt     = ".pdf"
)

// Watcher waits for a browser download to finish in a directory.
//
// The browser and the watcher share the directory without locking. A
// download counts as finished when no in-progress marker remains and the
// newest candidate file is both large enough and recent enough.
type Watcher struct {
	interval time.Duration
	grace    time.Duration
	minSize  int64
	pending  string
	ext      string
	log      zerolog.Logger
	now      func() time.Time
}

// WatchOption configures a [Watcher].
type WatchOption func(*Watcher)

// WithPollInterval sets the delay between directory scans.
func WithPollInterval(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithGrace sets how much older than the timeout a candidate may be.
func WithGrace(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.grace = d
	}
}

// WithMinSize sets the size a candidate must exceed, in bytes.
func WithMinSize(n int64) WatchOption {
	return func(w *Watcher) {
		w.minSize = n
	}
}

// WithPendingSuffix sets the suffix of in-progress download files.
func WithPendingSuffix(s string) WatchOption {
	return func(w *Watcher) {
		w.pending = s
	}
}

// WithOutputExt sets the extension of finished files. Matching ignores case.
func WithOutputExt(ext string) WatchOption {
	return func(w *Watcher) {
		w.ext = strings.ToLower(ext)
	}
}

// WithWatchLogger sets the logger for poll progress.
func WithWatchLogger(l zerolog.Logger) WatchOption {
	return func(w *Watcher) {
		w.log = l
	}
}

// NewWatcher returns a Watcher with the given options applied over the
// defaults.
func NewWatcher(opts ...WatchOption) *Watcher {
	w := &Watcher{
		interval: DefaultPollInterval,
		grace:    DefaultGrace,
		minSize:  DefaultMinSize,
		pending:  DefaultPendingSuffix,
		ext:      DefaultOutputExt,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

type candidate struct {
	name    string
	size    int64
	modTime time.Time
}

// scan lists dir and splits it into in-progress markers and candidates,
// newest candidate first.
func (w *Watcher) scan(dir string) (pending []string, cands []candidate, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, w.pending) {
			pending = append(pending, name)
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), w.ext) || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between listing and stat.
			continue
		}
		cands = append(cands, candidate{name: name, size: info.Size(), modTime: info.ModTime()})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].modTime.After(cands[j].modTime)
	})
	return pending, cands, nil
}

// Wait polls dir until a finished download is accepted and returns its
// path. It gives up with a [*DownloadTimeoutError] after timeout. A
// directory that cannot be read mid-poll is logged and polled again.
func (w *Watcher) Wait(ctx context.Context, dir string, timeout time.Duration) (string, error) {
	w.log.Info().Str("dir", dir).Dur("timeout", timeout).Msg("waiting for download")

	start := w.now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if path, ok := w.poll(dir, timeout); ok {
			return path, nil
		}
		if w.now().Sub(start) >= timeout {
			break
		}

		wait := w.interval
		if left := timeout - w.now().Sub(start); left < wait {
			wait = left
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", w.timeoutError(dir)
		case <-time.After(wait):
		}
	}
	return "", w.timeoutError(dir)
}

// poll performs one scan and reports an accepted file.
func (w *Watcher) poll(dir string, timeout time.Duration) (string, bool) {
	pending, cands, err := w.scan(dir)
	if err != nil {
		w.log.Error().Err(err).Str("dir", dir).Msg("reading download directory")
		return "", false
	}
	if len(pending) > 0 {
		w.log.Debug().Str("file", pending[0]).Msg("download in progress")
		return "", false
	}
	if len(cands) == 0 {
		return "", false
	}

	latest := cands[0]
	age := w.now().Sub(latest.modTime)
	if latest.size > w.minSize && age < timeout+w.grace {
		path := filepath.Join(dir, latest.name)
		w.log.Info().Str("path", path).Int64("size", latest.size).Msg("download complete")
		return path, true
	}
	w.log.Debug().
		Str("file", latest.name).
		Int64("size", latest.size).
		Dur("age", age).
		Msg("candidate too small or too old, still waiting")
	return "", false
}

func (w *Watcher) timeoutError(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &DownloadTimeoutError{Dir: dir, Unreadable: true}
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(strings.ToLower(e.Name()), w.ext) {
			names = append(names, e.Name())
		}
	}
	return &DownloadTimeoutError{Dir: dir, Candidates: names}
}
