package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix marks the environment variables read by [Config.ApplyEnv].
const EnvPrefix = "DOCEXPORT_"

// EnvConfigPath names the variable holding a YAML config file path.
const EnvConfigPath = EnvPrefix + "CONFIG"

// envSetters maps each recognized variable to the field it overrides.
var envSetters = map[string]func(c *Config, v string) error{
	EnvPrefix + "URL":            func(c *Config, v string) error { c.URL = v; return nil },
	EnvPrefix + "OUTPUT":         func(c *Config, v string) error { c.Output = v; return nil },
	EnvPrefix + "BACKEND":        func(c *Config, v string) error { c.Backend = v; return nil },
	EnvPrefix + "TIMEOUT":        func(c *Config, v string) error { c.Timeout = v; return nil },
	EnvPrefix + "LAUNCH_TIMEOUT": func(c *Config, v string) error { c.LaunchTimeout = v; return nil },
	EnvPrefix + "RENDER_TIMEOUT": func(c *Config, v string) error { c.RenderTimeout = v; return nil },
	EnvPrefix + "IDLE":           func(c *Config, v string) error { c.Idle.Policy = v; return nil },
	EnvPrefix + "PAGE_SIZE":      func(c *Config, v string) error { c.Page.Size = v; return nil },
	EnvPrefix + "ORIENTATION":    func(c *Config, v string) error { c.Page.Orientation = v; return nil },
	EnvPrefix + "MARGIN":         floatSetter(func(c *Config, f float64) { c.Page.Margin = f }),
	EnvPrefix + "SCALE":          floatSetter(func(c *Config, f float64) { c.Page.Scale = f }),
	EnvPrefix + "BACKGROUND":     boolSetter(func(c *Config, b bool) { c.Page.PrintBackground = b }),
	EnvPrefix + "BROWSER":        func(c *Config, v string) error { c.Browser.Path = v; return nil },
	EnvPrefix + "NO_SANDBOX":     boolSetter(func(c *Config, b bool) { c.Browser.NoSandbox = b }),
	EnvPrefix + "HEADLESS":       boolSetter(func(c *Config, b bool) { c.Browser.Headless = b }),
	EnvPrefix + "AUTO_DOWNLOAD":  boolSetter(func(c *Config, b bool) { c.Browser.AutoDownload = b }),
	EnvPrefix + "VERIFY":         boolSetter(func(c *Config, b bool) { c.Verify.Enabled = b }),
	EnvPrefix + "STRICT":         boolSetter(func(c *Config, b bool) { c.Verify.Strict = b }),
	EnvPrefix + "LOG_LEVEL":      func(c *Config, v string) error { c.Log.Level = v; return nil },
	EnvPrefix + "LOG_FORMAT":     func(c *Config, v string) error { c.Log.Format = v; return nil },
	EnvPrefix + "TRACE":          boolSetter(func(c *Config, b bool) { c.Trace = b }),
}

// LookupFunc reads one environment variable, like [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides c with DOCEXPORT_* variables. The browser settings
// shared with rod (ROD_BROWSER_BIN, ROD_NO_SANDBOX) are honored when the
// DOCEXPORT_ form is not set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup("ROD_BROWSER_BIN"); ok && v != "" {
		c.Browser.Path = v
	}
	if v, ok := lookup("ROD_NO_SANDBOX"); ok && v != "" {
		if err := boolSetter(func(c *Config, b bool) { c.Browser.NoSandbox = b })(c, v); err != nil {
			return fmt.Errorf("ROD_NO_SANDBOX: %w", err)
		}
	}

	keys := make([]string, 0, len(envSetters))
	for k := range envSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := lookup(k)
		if !ok || v == "" {
			continue
		}
		if err := envSetters[k](c, v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	return nil
}

// UnknownEnvVars returns DOCEXPORT_* names in environ that are not
// recognized, usually typos.
func UnknownEnvVars(environ []string) []string {
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, EnvPrefix) || name == EnvConfigPath {
			continue
		}
		if _, ok := envSetters[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. With no
// paths it loads ./.env if present.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

func boolSetter(set func(*Config, bool)) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return invalid("%q is not a boolean", v)
		}
		set(c, b)
		return nil
	}
}

func floatSetter(set func(*Config, float64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return invalid("%q is not a number", v)
		}
		set(c, f)
		return nil
	}
}
