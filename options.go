package docexport

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// exporterConfig holds internal configuration for an Exporter.
type exporterConfig struct {
	backend       Backend
	chromePath    string
	autoDownload  bool
	noSandbox     bool
	headless      bool
	launchTimeout time.Duration
	timeout       time.Duration
	renderTimeout time.Duration
	idle          IdlePolicy
	page          PageConfig
	verify        bool
	strictVerify  bool
	fileMode      os.FileMode
	logger        *slog.Logger
	tracerProv    trace.TracerProvider

	// drv replaces the backend driver; used by tests.
	drv driver
}

func defaultConfig() exporterConfig {
	return exporterConfig{
		backend:       BackendChromedp,
		headless:      true,
		launchTimeout: DefaultTimeout,
		timeout:       DefaultTimeout,
		renderTimeout: DefaultTimeout,
		idle:          NetworkIdle0,
		page:          DefaultPageConfig(),
		verify:        true,
		fileMode:      0o644,
		logger:        slog.New(slog.DiscardHandler),
	}
}

// Option configures an [Exporter].
type Option func(*exporterConfig)

// WithBackend selects the browser automation library. Defaults to
// [BackendChromedp].
func WithBackend(b Backend) Option {
	return func(c *exporterConfig) {
		c.backend = b
	}
}

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *exporterConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload downloads a compatible Chromium build when no browser
// is installed. The binary is cached for subsequent runs.
func WithAutoDownload() Option {
	return func(c *exporterConfig) {
		c.autoDownload = true
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *exporterConfig) {
		c.noSandbox = true
	}
}

// WithHeadless controls whether the browser runs without a window.
// Defaults to true.
func WithHeadless(enabled bool) Option {
	return func(c *exporterConfig) {
		c.headless = enabled
	}
}

// WithLaunchTimeout bounds browser startup. Defaults to 30 seconds.
// A zero or negative value disables the timeout.
func WithLaunchTimeout(d time.Duration) Option {
	return func(c *exporterConfig) {
		c.launchTimeout = d
	}
}

// WithTimeout bounds navigation, from the first request until the network
// is idle. Defaults to 30 seconds. A zero or negative value disables the
// timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *exporterConfig) {
		c.timeout = d
	}
}

// WithRenderTimeout bounds PDF printing. Defaults to 30 seconds.
// A zero or negative value disables the timeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(c *exporterConfig) {
		c.renderTimeout = d
	}
}

// WithIdlePolicy sets the network quiescence condition used by
// [Exporter.Export]. Defaults to [NetworkIdle0].
func WithIdlePolicy(p IdlePolicy) Option {
	return func(c *exporterConfig) {
		c.idle = p
	}
}

// WithPageConfig sets the print settings used by [Exporter.Export].
func WithPageConfig(pc PageConfig) Option {
	return func(c *exporterConfig) {
		c.page = pc
	}
}

// WithVerify toggles structural verification of the rendered PDF before it
// is written. Enabled by default.
func WithVerify(enabled bool) Option {
	return func(c *exporterConfig) {
		c.verify = enabled
	}
}

// WithStrictVerify additionally runs a full PDF validator over the output.
// Implies WithVerify(true).
func WithStrictVerify() Option {
	return func(c *exporterConfig) {
		c.verify = true
		c.strictVerify = true
	}
}

// WithFileMode sets the permissions of the written PDF. Defaults to 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(c *exporterConfig) {
		c.fileMode = mode
	}
}

// WithLogger sets the structured logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *exporterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for step spans.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *exporterConfig) {
		c.tracerProv = tp
	}
}

func withDriver(d driver) Option {
	return func(c *exporterConfig) {
		c.drv = d
	}
}

func (c *exporterConfig) validate() error {
	if _, err := ParseBackend(string(c.backend)); err != nil {
		return err
	}
	if err := c.idle.validate(); err != nil {
		return err
	}
	if c.backend == BackendPlaywright && c.idle != NetworkIdle0 {
		return fmt.Errorf("docexport: %w: the playwright backend only supports %s", ErrInvalidConfig, NetworkIdle0)
	}
	if err := c.page.Validate(); err != nil {
		return err
	}
	if c.fileMode&^os.ModePerm != 0 {
		return fmt.Errorf("docexport: %w: file mode %v has non-permission bits", ErrInvalidConfig, c.fileMode)
	}
	return nil
}
