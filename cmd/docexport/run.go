package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/porticus-lab/go-docexport/internal/config"
)

// runMain dispatches to a command and returns the process exit code.
// args excludes the program name. A leading URL selects export.
func runMain(args []string, env *Environment) int {
	cmd, rest := "export", args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") && !strings.Contains(args[0], "://") {
		cmd, rest = args[0], args[1:]
	}

	switch cmd {
	case "export":
		return runExportCmd(rest, env)
	case "inspect":
		return report(env, runInspect(rest, env))
	case "doctor":
		return runDoctorCmd(rest, env)
	case "version":
		fmt.Fprintf(env.Stdout, "docexport %s\n", Version)
		return ExitSuccess
	case "help":
		printUsage(env.Stdout)
		return ExitSuccess
	}
	fmt.Fprintf(env.Stderr, "unknown command: %s\n\n", cmd)
	printUsage(env.Stderr)
	return ExitUsage
}

// report prints err, if any, and returns its exit code.
func report(env *Environment, err error) int {
	if err != nil {
		fmt.Fprintf(env.Stderr, "docexport: %v\n", trimPrefix(err))
	}
	return exitCodeFor(err)
}

// trimPrefix drops the library's own "docexport: " prefix so it is not
// printed twice.
func trimPrefix(err error) string {
	return strings.TrimPrefix(err.Error(), "docexport: ")
}

func runExportCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printExportUsage(env.Stderr, fs) }

	var f exportFlags
	addExportFlags(fs, &f)
	printConfig := fs.Bool("print-config", false, "print the effective configuration as YAML and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printExportUsage(env.Stdout, fs)
			return ExitSuccess
		}
		return ExitUsage
	}
	if fs.NArg() > 1 {
		return report(env, fmt.Errorf("%w: unexpected arguments %q", errUsage, fs.Args()[1:]))
	}
	if fs.NArg() == 1 && fs.Changed("url") {
		return report(env, fmt.Errorf("%w: URL given both as argument %q and --url", errUsage, fs.Arg(0)))
	}

	cfg, err := resolveConfig(fs, &f, env)
	if err != nil {
		return report(env, err)
	}
	if fs.NArg() == 1 {
		cfg.URL = fs.Arg(0)
	}
	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			return report(env, err)
		}
		_, _ = env.Stdout.Write(data)
		return ExitSuccess
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()
	return report(env, runExport(ctx, cfg, f.quiet, env))
}

// runExport renders cfg.URL to cfg.Output.
func runExport(ctx context.Context, cfg *config.Config, quiet bool, env *Environment) (err error) {
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}

	logger := newLogger(env.Stderr, cfg)
	for _, name := range config.UnknownEnvVars(env.Environ()) {
		logger.Warn("unknown environment variable", "name", name)
	}
	opts = append(opts, loggerOption(logger))

	if cfg.Trace {
		tp, shutdown, err := newTracerProvider(env.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if serr := shutdown(context.WithoutCancel(ctx)); serr != nil {
				logger.Warn("flushing traces", "error", serr)
			}
		}()
		opts = append(opts, tracerOption(tp))
	}

	logger.Info("exporting", "url", cfg.URL, "output", cfg.Output, "backend", cfg.Backend)
	res, err := env.Export(ctx, cfg.URL, cfg.Output, opts...)
	if err != nil {
		logger.Error("export failed", "error", err)
		if res == nil {
			return err
		}
	}
	if !quiet {
		fmt.Fprintf(env.Stdout, "Wrote %s (%d pages, %d bytes)\n", res.Path(), res.PageCount(), res.Len())
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: docexport [command] [flags]

Render a locally served API documentation page to PDF with a headless browser.

Commands:
  export    Export a page to PDF (default command)
  inspect   Show version, page count and page sizes of a PDF
  doctor    Check the browser and the target server
  version   Print the version
  help      Show this help

Examples:
  docexport
  docexport -o docs/api.pdf --format Letter --landscape
  docexport http://localhost:8000/redoc/ --wait-until networkidle2
  docexport inspect api-docs.pdf
  docexport doctor

Run 'docexport export --help' for export flags.
`)
}

func printExportUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(w, "Usage: docexport export [url] [flags]\n\nFlags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprint(w, `
Settings are read from defaults, the config file, .env, DOCEXPORT_* variables
and flags, later sources winning.

Exit codes:
  0  PDF written
  1  unexpected error
  2  invalid flags or configuration
  3  output could not be written
  4  browser failed to start, open a page or print
  5  page unreachable or network never settled
`)
}
