package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler defaults.
const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 5
	DefaultBackoff     = 2 * time.Second
	batchSize          = 100
)

// Scheduler executes deletion tasks once they are due.
type Scheduler struct {
	store       Store
	root        string
	interval    time.Duration
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
	now         func() time.Time
	remove      func(string) error
}

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithRoot bounds empty-directory pruning to dir.
func WithRoot(dir string) Option {
	return func(s *Scheduler) {
		s.root = filepath.Clean(dir)
	}
}

// WithInterval sets how often Run looks for due tasks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithMaxAttempts sets how many times a deletion is tried before the task
// is dropped.
func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) {
		s.maxAttempts = n
	}
}

// WithBackoff sets the delay step between attempts. Attempt n waits n
// steps.
func WithBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		s.backoff = d
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// New creates a Scheduler backed by store.
func New(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		log:         zerolog.Nop(),
		now:         time.Now,
		remove:      os.Remove,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule records that path must be deleted after delay.
func (s *Scheduler) Schedule(ctx context.Context, path string, delay time.Duration) error {
	t := Task{
		ID:    uuid.NewString(),
		Path:  path,
		Root:  s.root,
		DueAt: s.now().Add(delay),
	}
	if err := s.store.Put(ctx, t); err != nil {
		return fmt.Errorf("cleanup: scheduling %s: %w", path, err)
	}
	return nil
}

// Run executes due tasks every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("cleanup scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("cleanup scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunDue(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("running due cleanup tasks")
			}
		}
	}
}

// RunDue executes the tasks due now and returns how many were processed.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	return s.runUntil(ctx, s.now())
}

// Flush executes every stored task regardless of its due time. A task that
// fails is retried right away until it runs out of attempts.
func (s *Scheduler) Flush(ctx context.Context) error {
	for i := 0; i < s.maxAttempts; i++ {
		n, err := s.runUntil(ctx, time.Unix(1<<40, 0))
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

func (s *Scheduler) runUntil(ctx context.Context, until time.Time) (int, error) {
	total := 0
	for {
		tasks, err := s.store.Due(ctx, until, batchSize)
		if err != nil {
			return total, err
		}
		for _, t := range tasks {
			if err := s.execute(ctx, t); err != nil {
				return total, err
			}
		}
		total += len(tasks)
		if len(tasks) < batchSize {
			return total, nil
		}
	}
}

// execute deletes the task's file. Only store failures are returned;
// deletion failures are re-queued.
func (s *Scheduler) execute(ctx context.Context, t Task) error {
	log := s.log.With().Str("task", t.ID).Str("path", t.Path).Logger()

	err := s.remove(t.Path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		log.Debug().Msg("file deleted")
		s.prune(t)
		return s.store.Delete(ctx, t.ID)
	}

	t.Attempts++
	if t.Attempts >= s.maxAttempts {
		log.Error().Err(err).Int("attempts", t.Attempts).Msg("giving up deleting file")
		return s.store.Delete(ctx, t.ID)
	}
	t.DueAt = s.now().Add(time.Duration(t.Attempts) * s.backoff)
	log.Warn().Err(err).Int("attempts", t.Attempts).Time("retry_at", t.DueAt).Msg("deleting file failed")
	return s.store.Put(ctx, t)
}

// prune removes empty parent directories of the task's file, stopping at
// the root. Nothing is pruned when the task has no root.
func (s *Scheduler) prune(t Task) {
	if t.Root == "" {
		return
	}
	root := filepath.Clean(t.Root)
	for dir := filepath.Dir(t.Path); within(root, dir); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

// within reports whether dir is strictly inside root.
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
