package billtext

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the portal the statement pages live under.
const DefaultBaseURL = "https://www.eneldistribuicao.com.br"

// portalConfig holds internal configuration for a [ChromeLauncher].
type portalConfig struct {
	chromePath     string
	baseURL        string
	stepTimeout    time.Duration
	accountTimeout time.Duration
	linkSettle     time.Duration
	noSandbox      bool
	headless       string
	autoDownload   bool
	debugDir       string
	logger         zerolog.Logger
}

func defaultConfig() portalConfig {
	return portalConfig{
		baseURL:        DefaultBaseURL,
		stepTimeout:    45 * time.Second,
		accountTimeout: 30 * time.Second,
		linkSettle:     2 * time.Second,
		headless:       "new",
		logger:         zerolog.Nop(),
	}
}

// Option configures a [ChromeLauncher].
type Option func(*portalConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *portalConfig) {
		c.chromePath = path
	}
}

// WithBaseURL points the session at another portal host, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *portalConfig) {
		c.baseURL = u
	}
}

// WithStepTimeout sets how long each page interaction may wait for its
// element. Defaults to 45 seconds.
func WithStepTimeout(d time.Duration) Option {
	return func(c *portalConfig) {
		c.stepTimeout = d
	}
}

// WithAccountTimeout sets how long the account picker may take to load.
// Defaults to 30 seconds.
func WithAccountTimeout(d time.Duration) Option {
	return func(c *portalConfig) {
		c.accountTimeout = d
	}
}

// WithLinkSettle sets the pause after following the statements link.
func WithLinkSettle(d time.Duration) Option {
	return func(c *portalConfig) {
		c.linkSettle = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *portalConfig) {
		c.noSandbox = true
	}
}

// WithHeadful runs Chrome with a visible window.
func WithHeadful() Option {
	return func(c *portalConfig) {
		c.headless = ""
	}
}

// WithAutoDownload fetches a compatible Chromium build when none is
// configured with [WithChromePath].
func WithAutoDownload() Option {
	return func(c *portalConfig) {
		c.autoDownload = true
	}
}

// WithDebugDir sets where screenshots and page sources are written on
// failure. Defaults to the working directory.
func WithDebugDir(dir string) Option {
	return func(c *portalConfig) {
		c.debugDir = dir
	}
}

// WithLogger sets the logger used by sessions.
func WithLogger(l zerolog.Logger) Option {
	return func(c *portalConfig) {
		c.logger = l
	}
}
