// Package config resolves the command-line tool's settings from defaults,
// a YAML file, a .env file and the environment, and turns them into
// exporter options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	docexport "github.com/porticus-lab/go-docexport"
)

// Sentinel errors for loading configuration.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
)

// Config holds everything the export command can be told.
// Durations are kept as strings ("30s", "1m") so YAML, environment and
// flags share one syntax.
type Config struct {
	URL           string        `yaml:"url"`
	Output        string        `yaml:"output"`
	Backend       string        `yaml:"backend"`
	Timeout       string        `yaml:"timeout"`
	LaunchTimeout string        `yaml:"launchTimeout"`
	RenderTimeout string        `yaml:"renderTimeout"`
	Idle          IdleConfig    `yaml:"idle"`
	Page          PageConfig    `yaml:"page"`
	Browser       BrowserConfig `yaml:"browser"`
	Verify        VerifyConfig  `yaml:"verify"`
	Log           LogConfig     `yaml:"log"`
	Trace         bool          `yaml:"trace"`
}

// IdleConfig selects when the page counts as settled. Policy names a preset
// ("networkidle0", "networkidle2"); Window and MaxInflight override it.
type IdleConfig struct {
	Policy      string `yaml:"policy"`
	Window      string `yaml:"window"`
	MaxInflight *int   `yaml:"maxInflight"`
}

// PageConfig defines print settings. Margins are in centimeters.
type PageConfig struct {
	Size              string  `yaml:"size"`        // "a4", "letter", ... (default: "a4")
	Orientation       string  `yaml:"orientation"` // "portrait", "landscape"
	Margin            float64 `yaml:"margin"`
	Scale             float64 `yaml:"scale"`
	PrintBackground   bool    `yaml:"printBackground"`
	PreferCSSPageSize bool    `yaml:"preferCSSPageSize"`
}

// BrowserConfig controls which browser is started and how.
type BrowserConfig struct {
	Path         string `yaml:"path"`
	NoSandbox    bool   `yaml:"noSandbox"`
	Headless     bool   `yaml:"headless"`
	AutoDownload bool   `yaml:"autoDownload"`
}

// VerifyConfig controls checks on the rendered PDF.
type VerifyConfig struct {
	Enabled bool `yaml:"enabled"`
	Strict  bool `yaml:"strict"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		URL:           docexport.DefaultURL,
		Output:        docexport.DefaultOutput,
		Backend:       string(docexport.BackendChromedp),
		Timeout:       docexport.DefaultTimeout.String(),
		LaunchTimeout: docexport.DefaultTimeout.String(),
		RenderTimeout: docexport.DefaultTimeout.String(),
		Idle:          IdleConfig{Policy: "networkidle0"},
		Page:          PageConfig{Size: "a4", Orientation: "portrait", Scale: 1},
		Browser:       BrowserConfig{Headless: true},
		Verify:        VerifyConfig{Enabled: true},
		Log:           LogConfig{Level: "warn", Format: "text"},
	}
}

// LoadFile reads a YAML file over the defaults. Keys missing from the file
// keep their default values; unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := decodeYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigParse, path, err)
	}
	return cfg, nil
}

// Validate reports settings that cannot be turned into exporter options.
// Errors wrap [docexport.ErrInvalidConfig].
func (c *Config) Validate() error {
	_, err := c.ToOptions()
	return err
}

// ToOptions maps the configuration to exporter options.
func (c *Config) ToOptions() ([]docexport.Option, error) {
	backend, err := docexport.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.URL) == "" {
		return nil, invalid("url must not be empty")
	}
	if strings.TrimSpace(c.Output) == "" {
		return nil, invalid("output must not be empty")
	}

	var timeouts [3]time.Duration
	for i, f := range []struct{ name, value string }{
		{"timeout", c.Timeout},
		{"launchTimeout", c.LaunchTimeout},
		{"renderTimeout", c.RenderTimeout},
	} {
		if timeouts[i], err = parseDuration(f.name, f.value); err != nil {
			return nil, err
		}
	}

	idle, err := c.Idle.policy()
	if err != nil {
		return nil, err
	}
	page, err := c.Page.pageConfig()
	if err != nil {
		return nil, err
	}
	if _, err := c.Log.level(); err != nil {
		return nil, err
	}
	if _, err := c.Log.format(); err != nil {
		return nil, err
	}

	opts := []docexport.Option{
		docexport.WithBackend(backend),
		docexport.WithTimeout(timeouts[0]),
		docexport.WithLaunchTimeout(timeouts[1]),
		docexport.WithRenderTimeout(timeouts[2]),
		docexport.WithIdlePolicy(idle),
		docexport.WithPageConfig(page),
		docexport.WithHeadless(c.Browser.Headless),
		docexport.WithVerify(c.Verify.Enabled),
	}
	if c.Browser.Path != "" {
		opts = append(opts, docexport.WithChromePath(c.Browser.Path))
	}
	if c.Browser.NoSandbox {
		opts = append(opts, docexport.WithNoSandbox())
	}
	if c.Browser.AutoDownload {
		opts = append(opts, docexport.WithAutoDownload())
	}
	if c.Verify.Strict {
		opts = append(opts, docexport.WithStrictVerify())
	}

	// Catch combinations only the exporter knows about.
	if _, err := docexport.NewExporter(opts...); err != nil {
		return nil, err
	}
	return opts, nil
}

// TimeoutDuration returns the parsed navigation timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := parseDuration("timeout", c.Timeout)
	return d
}

// SlogLevel returns the configured log level, defaulting to warn.
func (c *Config) SlogLevel() slog.Level {
	l, err := c.Log.level()
	if err != nil {
		return slog.LevelWarn
	}
	return l
}

// JSONLogs reports whether logs should be written as JSON.
func (c *Config) JSONLogs() bool {
	f, _ := c.Log.format()
	return f == "json"
}

func (i IdleConfig) policy() (docexport.IdlePolicy, error) {
	p, err := docexport.ParseIdlePolicy(i.Policy)
	if err != nil {
		return p, err
	}
	if i.Window != "" {
		if p.Window, err = parseDuration("idle.window", i.Window); err != nil {
			return p, err
		}
		if p.Window <= 0 {
			return p, invalid("idle.window must be positive")
		}
	}
	if i.MaxInflight != nil {
		if *i.MaxInflight < 0 {
			return p, invalid("idle.maxInflight must not be negative")
		}
		p.MaxInflight = *i.MaxInflight
	}
	return p, nil
}

func (p PageConfig) pageConfig() (docexport.PageConfig, error) {
	size, err := docexport.ParsePageSize(p.Size)
	if err != nil {
		return docexport.PageConfig{}, err
	}
	orient, err := docexport.ParseOrientation(p.Orientation)
	if err != nil {
		return docexport.PageConfig{}, err
	}
	pc := docexport.PageConfig{
		Size:              size,
		Orientation:       orient,
		Margin:            docexport.UniformMargin(p.Margin),
		Scale:             p.Scale,
		PrintBackground:   p.PrintBackground,
		PreferCSSPageSize: p.PreferCSSPageSize,
	}
	if err := pc.Validate(); err != nil {
		return docexport.PageConfig{}, err
	}
	return pc, nil
}

func (l LogConfig) level() (slog.Level, error) {
	name := strings.TrimSpace(l.Level)
	if name == "" {
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, invalid("log.level %q is not one of debug, info, warn, error", l.Level)
	}
	return lvl, nil
}

func (l LogConfig) format() (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(l.Format)); f {
	case "", "text":
		return "text", nil
	case "json":
		return f, nil
	}
	return "", invalid("log.format %q is not text or json", l.Format)
}

func parseDuration(field, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, invalid("%s: %v", field, err)
	}
	if d < 0 {
		return 0, invalid("%s must not be negative", field)
	}
	return d, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config: %w: %s", docexport.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
