package main

import (
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	docexport "github.com/porticus-lab/go-docexport"
	"github.com/porticus-lab/go-docexport/internal/config"
)

// exportFlags holds the flags shared by export and doctor. Only flags the
// user actually set override the file and environment.
type exportFlags struct {
	config  string
	envFile string
	quiet   bool

	url           string
	output        string
	backend       string
	timeout       string
	launchTimeout string
	renderTimeout string
	idle          string
	idleWindow    string

	format     string
	landscape  bool
	margin     float64
	scale      float64
	background bool
	preferCSS  bool
	browser    string
	noSandbox  bool
	headful    bool
	autoDL     bool
	noVerify   bool
	strict     bool
	logLevel   string
	logFormat  string
	trace      bool
}

func addExportFlags(fs *flag.FlagSet, f *exportFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "YAML config file (default: $DOCEXPORT_CONFIG)")
	fs.StringVar(&f.envFile, "env-file", "", "load environment variables from this file (default: ./.env if present)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only print errors")

	fs.StringVarP(&f.url, "url", "u", "", "page to export (default: "+config.DefaultConfig().URL+")")
	fs.StringVarP(&f.output, "output", "o", "", "PDF file to write (default: "+config.DefaultConfig().Output+")")
	fs.StringVarP(&f.backend, "backend", "b", "", "browser automation: "+backendNames())
	fs.StringVarP(&f.timeout, "timeout", "t", "", "navigation timeout, including the idle wait (e.g. 30s, 2m)")
	fs.StringVar(&f.launchTimeout, "launch-timeout", "", "browser startup timeout")
	fs.StringVar(&f.renderTimeout, "render-timeout", "", "PDF printing timeout")
	fs.StringVar(&f.idle, "wait-until", "", "idle policy: networkidle0, networkidle2")
	fs.StringVar(&f.idleWindow, "idle-window", "", "quiet period required before printing (default: 500ms)")

	fs.StringVarP(&f.format, "format", "f", "", "paper format: A0-A6, Letter, Legal, Tabloid, Ledger")
	fs.BoolVar(&f.landscape, "landscape", false, "print in landscape orientation")
	fs.Float64Var(&f.margin, "margin", 0, "page margin in centimeters")
	fs.Float64Var(&f.scale, "scale", 0, "rendering scale (0.1-2.0)")
	fs.BoolVar(&f.background, "print-background", false, "print background graphics")
	fs.BoolVar(&f.preferCSS, "prefer-css-page-size", false, "let CSS @page size win over --format")
	fs.StringVar(&f.browser, "browser", "", "Chrome/Chromium executable (default: $ROD_BROWSER_BIN or auto-detect)")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (needed as root or in containers)")
	fs.BoolVar(&f.headful, "headful", false, "show the browser window")
	fs.BoolVar(&f.autoDL, "auto-download", false, "download Chromium when none is installed")
	fs.BoolVar(&f.noVerify, "no-verify", false, "skip checking the rendered PDF")
	fs.BoolVar(&f.strict, "strict", false, "run the full PDF validator on the output")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
	fs.BoolVar(&f.trace, "trace", false, "write OpenTelemetry spans to stderr")
}

// backendNames lists the supported backends, default first.
func backendNames() string {
	var names []string
	for _, b := range docexport.Backends() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

// applyExportFlags copies explicitly set flags onto cfg.
func applyExportFlags(fs *flag.FlagSet, f *exportFlags, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("url", func() { cfg.URL = f.url })
	set("output", func() { cfg.Output = f.output })
	set("backend", func() { cfg.Backend = f.backend })
	set("timeout", func() { cfg.Timeout = f.timeout })
	set("launch-timeout", func() { cfg.LaunchTimeout = f.launchTimeout })
	set("render-timeout", func() { cfg.RenderTimeout = f.renderTimeout })
	set("wait-until", func() { cfg.Idle.Policy = f.idle })
	set("idle-window", func() { cfg.Idle.Window = f.idleWindow })
	set("format", func() { cfg.Page.Size = f.format })
	set("landscape", func() {
		cfg.Page.Orientation = "portrait"
		if f.landscape {
			cfg.Page.Orientation = "landscape"
		}
	})
	set("margin", func() { cfg.Page.Margin = f.margin })
	set("scale", func() { cfg.Page.Scale = f.scale })
	set("print-background", func() { cfg.Page.PrintBackground = f.background })
	set("prefer-css-page-size", func() { cfg.Page.PreferCSSPageSize = f.preferCSS })
	set("browser", func() { cfg.Browser.Path = f.browser })
	set("no-sandbox", func() { cfg.Browser.NoSandbox = f.noSandbox })
	set("headful", func() { cfg.Browser.Headless = !f.headful })
	set("auto-download", func() { cfg.Browser.AutoDownload = f.autoDL })
	set("no-verify", func() { cfg.Verify.Enabled = !f.noVerify })
	set("strict", func() { cfg.Verify.Strict = f.strict })
	set("log-level", func() { cfg.Log.Level = f.logLevel })
	set("log-format", func() { cfg.Log.Format = f.logFormat })
	set("trace", func() { cfg.Trace = f.trace })
}

// resolveConfig builds the effective configuration: defaults, then the
// YAML file, then .env and the environment, then flags.
func resolveConfig(fs *flag.FlagSet, f *exportFlags, env *Environment) (*config.Config, error) {
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
	} else if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	path := f.config
	if path == "" {
		path, _ = env.LookupEnv(config.EnvConfigPath)
	}
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(env.LookupEnv); err != nil {
		return nil, err
	}
	applyExportFlags(fs, f, cfg)
	return cfg, nil
}
