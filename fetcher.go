package billtext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Credentials identify the portal user and, optionally, the customer
// account whose statement is wanted.
type Credentials struct {
	Email    string
	Password string
	Account  string
}

// Cleaner deletes a downloaded file some time after it was consumed.
type Cleaner interface {
	Schedule(ctx context.Context, path string, delay time.Duration) error
}

// timerCleaner deletes files from in-process timers. Pending deletions are
// lost if the process exits first.
type timerCleaner struct {
	log zerolog.Logger
}

func (c timerCleaner) Schedule(_ context.Context, path string, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Error().Err(err).Str("path", path).Msg("deleting downloaded file")
			return
		}
		_ = os.Remove(filepath.Dir(path))
	})
	return nil
}

// Fetcher defaults.
const (
	DefaultDownloadTimeout = 120 * time.Second
	DefaultSettleDelay     = 15 * time.Second
	DefaultCleanupDelay    = 5 * time.Second
)

// Fetcher retrieves statements: it logs in, navigates, waits for the
// download and extracts its text, one stage after another.
//
// A Fetcher is safe for concurrent use. Each call gets its own browser and
// its own download directory.
type Fetcher struct {
	launcher     Launcher
	watcher      *Watcher
	extractor    *Extractor
	cleaner      Cleaner
	root         string
	timeout      time.Duration
	settle       time.Duration
	cleanupDelay time.Duration
	sem          *semaphore.Weighted
	log          zerolog.Logger
}

// FetchOption configures a [Fetcher].
type FetchOption func(*Fetcher)

// WithDownloadRoot sets the directory under which per-call download
// directories are created. Defaults to the system temp dir.
func WithDownloadRoot(dir string) FetchOption {
	return func(f *Fetcher) {
		f.root = dir
	}
}

// WithDownloadTimeout bounds the wait for the download to finish.
func WithDownloadTimeout(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithSettleDelay sets the pause between requesting the statement and the
// first directory scan.
func WithSettleDelay(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.settle = d
	}
}

// WithCleanup sets who deletes downloaded files and after how long.
func WithCleanup(c Cleaner, delay time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.cleaner = c
		f.cleanupDelay = delay
	}
}

// WithWatcher replaces the default [Watcher].
func WithWatcher(w *Watcher) FetchOption {
	return func(f *Fetcher) {
		f.watcher = w
	}
}

// WithExtractor replaces the default [Extractor].
func WithExtractor(e *Extractor) FetchOption {
	return func(f *Fetcher) {
		f.extractor = e
	}
}

// WithMaxSessions limits how many browsers run at once. Zero means no
// limit.
func WithMaxSessions(n int64) FetchOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.sem = semaphore.NewWeighted(n)
		} else {
			f.sem = nil
		}
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(l zerolog.Logger) FetchOption {
	return func(f *Fetcher) {
		f.log = l
	}
}

// NewFetcher creates a Fetcher that starts sessions with launcher.
func NewFetcher(launcher Launcher, opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		launcher:     launcher,
		root:         filepath.Join(os.TempDir(), "billtext_downloads"),
		timeout:      DefaultDownloadTimeout,
		settle:       DefaultSettleDelay,
		cleanupDelay: DefaultCleanupDelay,
		log:          zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.watcher == nil {
		f.watcher = NewWatcher(WithWatchLogger(f.log))
	}
	if f.extractor == nil {
		f.extractor = NewExtractor(nil)
	}
	if f.cleaner == nil {
		f.cleaner = timerCleaner{log: f.log}
	}
	return f
}

// Fetch retrieves the latest statement for cred.
//
// Failures are returned as [*StageError] wrapping one of the package
// sentinels, so callers can use errors.Is and errors.As. The browser is
// always closed before Fetch returns. The downloaded file, once found, is
// always handed to the cleaner; before that point the per-call directory is
// removed on failure.
func (f *Fetcher) Fetch(ctx context.Context, cred Credentials) (*Statement, error) {
	if f.sem != nil {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer f.sem.Release(1)
	}

	id := uuid.NewString()
	log := f.log.With().Str("fetch_id", id).Logger()
	log.Info().Msg("starting statement retrieval")

	dir := filepath.Join(f.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, stageErr(StageDirectory, fmt.Errorf("%w: %v", ErrDownloadDir, err))
	}

	var downloaded string
	defer func() {
		// Nothing was handed to the cleaner; drop whatever is left.
		if downloaded == "" {
			if err := os.RemoveAll(dir); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("removing download directory")
			}
		}
	}()

	sess, err := f.launcher.Launch(ctx, dir)
	if err != nil {
		return nil, stageErr(StageBrowser, err)
	}
	defer sess.Close()

	if err := sess.Login(ctx, cred.Email, cred.Password); err != nil {
		if errors.Is(err, ErrNavigation) {
			sess.Capture(ctx, "api_debug_login_exception")
		}
		return nil, stageErr(StageLogin, err)
	}

	account, err := f.selectAccount(ctx, log, sess, cred.Account)
	if err != nil {
		return nil, stageErr(StageAccount, err)
	}

	if err := sess.OpenStatements(ctx); err != nil {
		sess.Capture(ctx, "api_debug_2via_exception")
		return nil, stageErr(StageNavigation, err)
	}

	var refDate *string
	if d, err := sess.ReferenceDate(ctx); err != nil {
		log.Warn().Err(err).Msg("reference date unavailable")
	} else if d != "" {
		log.Info().Str("reference_date", d).Msg("reference date found")
		refDate = &d
	}

	if err := sess.RequestStatement(ctx); err != nil {
		sess.Capture(ctx, "api_debug_emission_exception")
		return nil, stageErr(StageEmission, err)
	}

	if f.settle > 0 {
		select {
		case <-ctx.Done():
			return nil, stageErr(StageDownload, ctx.Err())
		case <-time.After(f.settle):
		}
	}

	path, err := f.watcher.Wait(ctx, dir, f.timeout)
	if err != nil {
		sess.Capture(ctx, "api_debug_timeout_exception")
		return nil, stageErr(StageDownload, err)
	}
	downloaded = path

	data, err := os.ReadFile(path)
	if err != nil {
		f.scheduleCleanup(ctx, log, path, 0)
		return nil, stageErr(StageExtraction, fmt.Errorf("billtext: reading download: %w", err))
	}

	log.Info().Str("path", path).Int("bytes", len(data)).Msg("extracting text")
	text, err := f.extractor.Extract(data)
	if err != nil {
		f.scheduleCleanup(ctx, log, path, 0)
		return nil, stageErr(StageExtraction, err)
	}
	log.Info().Int("chars", text.Len()).Int("pages", text.Pages).Msg("text extracted")

	f.scheduleCleanup(ctx, log, path, f.cleanupDelay)
	return &Statement{
		ReferenceDate: refDate,
		Account:       account,
		Text:          text,
		Path:          path,
	}, nil
}

// selectAccount picks the requested account when the portal shows the
// account picker. Without a picker the requested account is returned as is.
func (f *Fetcher) selectAccount(ctx context.Context, log zerolog.Logger, sess Session, account string) (string, error) {
	available, present, err := sess.Accounts(ctx)
	if err != nil {
		return "", err
	}
	if !present {
		log.Info().Msg("no account picker shown")
		return account, nil
	}
	log.Info().Strs("available", available).Msg("account picker shown")

	if account == "" {
		return "", &AccountNotFoundError{Available: available}
	}
	if err := sess.SelectAccount(ctx, account); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", &AccountNotFoundError{Requested: account, Available: available}
		}
		return "", err
	}
	return account, nil
}

// scheduleCleanup hands path to the cleaner. Failed extractions are deleted
// right away; successful ones after the configured delay.
func (f *Fetcher) scheduleCleanup(ctx context.Context, log zerolog.Logger, path string, delay time.Duration) {
	if err := f.cleaner.Schedule(context.WithoutCancel(ctx), path, delay); err != nil {
		log.Error().Err(err).Str("path", path).Msg("scheduling deletion")
		return
	}
	log.Debug().Str("path", path).Dur("delay", delay).Msg("deletion scheduled")
}
