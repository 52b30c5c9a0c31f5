package billtext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Session drives one logged-in visit to the customer portal.
//
// Sessions are not safe for concurrent use. Call [Session.Close] when done
// to release the browser.
type Session interface {
	Login(ctx context.Context, email, password string) error
	// Accounts reports whether the account picker is shown and, if so,
	// the account identifiers it lists.
	Accounts(ctx context.Context) (accounts []string, present bool, err error)
	SelectAccount(ctx context.Context, account string) error
	OpenStatements(ctx context.Context) error
	ReferenceDate(ctx context.Context) (string, error)
	RequestStatement(ctx context.Context) error
	// Capture saves a screenshot and the page source for debugging. It is
	// best effort and never fails.
	Capture(ctx context.Context, name string)
	Close() error
}

// Launcher starts sessions whose downloads land in downloadDir.
type Launcher interface {
	Launch(ctx context.Context, downloadDir string) (Session, error)
}

// ChromeLauncher starts headless Chrome sessions over the Chrome DevTools
// Protocol. It is safe for concurrent use; every session gets its own
// browser process.
type ChromeLauncher struct {
	cfg portalConfig
}

// NewChromeLauncher creates a ChromeLauncher with the given options.
func NewChromeLauncher(opts ...Option) *ChromeLauncher {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.baseURL = strings.TrimRight(cfg.baseURL, "/")
	return &ChromeLauncher{cfg: cfg}
}

// Launch starts a browser whose downloads are saved to downloadDir. The
// browser lives until the returned session is closed or ctx is done.
func (l *ChromeLauncher) Launch(ctx context.Context, downloadDir string) (Session, error) {
	dir, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving path: %v", ErrDownloadDir, err)
	}

	chromePath := l.cfg.chromePath
	if chromePath == "" && l.cfg.autoDownload {
		if chromePath, err = resolveBrowser(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBrowser, err)
		}
	}

	var headless any = l.cfg.headless
	if l.cfg.headless == "" {
		headless = false
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", headless),
		chromedp.WindowSize(1920, 1080),
	)
	if chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromePath))
	}
	if l.cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at launch time.
	if err := chromedp.Run(browserCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
	); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: starting browser: %v", ErrBrowser, err)
	}

	log := l.cfg.logger.With().Str("download_dir", dir).Logger()
	log.Info().Msg("browser started")

	return &chromeSession{
		cfg:           l.cfg,
		log:           log,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// chromeSession implements [Session] with chromedp.
type chromeSession struct {
	cfg           portalConfig
	log           zerolog.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Close releases all resources held by the session, including the
// browser process. Close is idempotent.
func (s *chromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.browserCancel()
	s.allocCancel()
	s.log.Info().Msg("browser closed")
	return nil
}

func (s *chromeSession) checkClosed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// run executes actions in the browser tab, bounded by timeout and by ctx.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) url(path string) string {
	return s.cfg.baseURL + path
}

// Capture implements [Session].
func (s *chromeSession) Capture(ctx context.Context, name string) {
	var (
		shot []byte
		html string
	)
	// Failure paths often hold an already cancelled context.
	err := s.run(context.WithoutCancel(ctx), 15*time.Second,
		chromedp.FullScreenshot(&shot, 90),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("name", name).Msg("capturing debug artifacts")
		return
	}

	base := filepath.Join(s.cfg.debugDir, name)
	if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		s.log.Warn().Err(err).Msg("writing screenshot")
	}
	if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		s.log.Warn().Err(err).Msg("writing page source")
	}
	s.log.Info().Str("path", base).Msg("debug artifacts saved")
}
