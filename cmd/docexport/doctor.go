package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/porticus-lab/go-docexport/internal/config"
	"github.com/porticus-lab/go-docexport/internal/fileutil"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo `json:"chrome"`
	Target   targetInfo `json:"target"`
	Env      envInfo    `json:"environment"`
	Output   outputInfo `json:"output"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

type targetInfo struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
}

type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

type outputInfo struct {
	Path     string `json:"path"`
	Writable bool   `json:"writable"`
	Exists   bool   `json:"exists"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var f exportFlags
	addExportFlags(fs, &f)
	jsonOutput := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	cfg, err := resolveConfig(fs, &f, env)
	if err != nil {
		return report(env, err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()
	result := runDoctor(ctx, cfg, env)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env:    envInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	if err := cfg.Validate(); err != nil {
		result.Errors = append(result.Errors, "Invalid configuration: "+trimPrefix(err))
	}
	checkChrome(ctx, result, cfg, env)
	checkEnvironment(result, cfg, env)
	checkTarget(ctx, result, cfg, env)
	checkOutput(result, cfg)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkChrome detects the browser that an export would launch.
func checkChrome(ctx context.Context, result *doctorResult, cfg *config.Config, env *Environment) {
	result.Chrome.Sandbox = !cfg.Browser.NoSandbox

	if cfg.Backend == "playwright" && cfg.Browser.Path == "" {
		result.Warnings = append(result.Warnings,
			"playwright backend uses its own Chromium; run with --auto-download on first use")
	}

	chromePath := cfg.Browser.Path
	if chromePath == "" {
		var found bool
		if chromePath, found = env.LookupBrowser(); !found {
			if cfg.Browser.AutoDownload {
				result.Warnings = append(result.Warnings,
					"Chrome/Chromium not installed; it will be downloaded on first export")
				return
			}
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome, set --browser or ROD_BROWSER_BIN, or pass --auto-download")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}
	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(vctx, chromePath, "--version").Output() // #nosec G204 -- configured browser path
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Chrome.Version = strings.TrimSpace(string(out))
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, cfg *config.Config, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if val, ok := env.LookupEnv(v); ok && val != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && !cfg.Browser.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is enabled. Pass --no-sandbox or set DOCEXPORT_NO_SANDBOX=1")
	}
	for _, name := range config.UnknownEnvVars(env.Environ()) {
		result.Warnings = append(result.Warnings, "Unknown environment variable "+name)
	}
}

// isContainer reports whether we run in a container, and which signal
// said so.
func isContainer(env *Environment) (bool, string) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v, ok := env.LookupEnv("container"); ok && v != "" {
		return true, "container=" + v
	}
	if v, ok := env.LookupEnv("KUBERNETES_SERVICE_HOST"); ok && v != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkTarget requests the page to be exported. A refused connection is
// the usual sign that the documentation server is not running.
func checkTarget(ctx context.Context, result *doctorResult, cfg *config.Config, env *Environment) {
	result.Target.URL = cfg.URL
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		result.Target.Reachable = true
		return
	}

	if d := cfg.TimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid URL %s: %v", cfg.URL, err))
		return
	}
	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Cannot reach %s; is the documentation server running? (%v)", cfg.URL, err))
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()

	result.Target.Status = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		result.Errors = append(result.Errors, fmt.Sprintf("%s returned %s", cfg.URL, resp.Status))
		return
	}
	result.Target.Reachable = true
}

// checkOutput verifies the output directory accepts new files.
func checkOutput(result *doctorResult, cfg *config.Config) {
	result.Output.Path = cfg.Output
	dir := filepath.Dir(cfg.Output)
	f, err := os.CreateTemp(dir, ".docexport-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Output directory not writable: %s", dir))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	result.Output.Writable = true
	result.Output.Exists = fileutil.FileExists(cfg.Output)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docexport doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Target")
	switch {
	case r.Target.Reachable && r.Target.Status == 0:
		fmt.Fprintf(w, "  [OK] %s (not checked)\n", r.Target.URL)
	case r.Target.Reachable:
		fmt.Fprintf(w, "  [OK] %s (HTTP %d)\n", r.Target.URL, r.Target.Status)
	case r.Target.Status != 0:
		fmt.Fprintf(w, "  [ERROR] %s (HTTP %d)\n", r.Target.URL, r.Target.Status)
	default:
		fmt.Fprintf(w, "  [ERROR] %s unreachable\n", r.Target.URL)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	switch {
	case r.Output.Writable && r.Output.Exists:
		fmt.Fprintf(w, "  [OK] Output: %s exists and will be replaced\n", r.Output.Path)
	case r.Output.Writable:
		fmt.Fprintf(w, "  [OK] Output: %s is writable\n", r.Output.Path)
	default:
		fmt.Fprintf(w, "  [ERROR] Output: %s is not writable\n", r.Output.Path)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: ready")
	case "warnings":
		fmt.Fprintln(w, "Status: ready with warnings")
	default:
		fmt.Fprintln(w, "Status: not ready")
	}
}
