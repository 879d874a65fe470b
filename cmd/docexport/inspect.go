package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	docexport "github.com/porticus-lab/go-docexport"
)

// inspectReport is the JSON form of the inspect command's output.
type inspectReport struct {
	File     string            `json:"file"`
	Version  string            `json:"version"`
	Pages    int               `json:"pages"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Sizes    []pageSize        `json:"page_sizes"`
}

type pageSize struct {
	Page     int     `json:"page"`
	Width    float64 `json:"width_pt"`
	Height   float64 `json:"height_pt"`
	Rotation int     `json:"rotation,omitempty"`
}

// runInspect implements the "inspect" command.
func runInspect(args []string, env *Environment) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.StringP("format", "f", "text", "output format: text, json")
	pages := fs.StringP("pages", "p", "", `pages to list, e.g. "1", "1-5", "1,3,5" (default: all)`)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(env.Stdout, "Usage: docexport inspect [--format text|json] [--pages RANGE] <file.pdf>")
			fs.SetOutput(env.Stdout)
			fs.PrintDefaults()
			return nil
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: inspect needs exactly one PDF file", errUsage)
	}
	if *format != "text" && *format != "json" {
		return fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}
	inputFile := fs.Arg(0)

	data, err := os.ReadFile(inputFile) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}
	info, err := docexport.Inspect(data)
	if err != nil {
		return fmt.Errorf("%s: %w", inputFile, err)
	}

	indices, err := parsePageRange(*pages, len(info.Pages))
	if err != nil {
		return fmt.Errorf("%w: invalid page range %q: %w", errUsage, *pages, err)
	}

	rep := inspectReport{
		File:     inputFile,
		Version:  info.Version,
		Pages:    len(info.Pages),
		Metadata: info.Metadata,
		Sizes:    make([]pageSize, 0, len(indices)),
	}
	for _, i := range indices {
		p := info.Pages[i]
		rep.Sizes = append(rep.Sizes, pageSize{Page: i + 1, Width: p.Width, Height: p.Height, Rotation: p.Rotation})
	}

	if *format == "json" {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printInspectReport(env.Stdout, &rep)
	return nil
}

func printInspectReport(w io.Writer, r *inspectReport) {
	fmt.Fprintf(w, "File:    %s\n", r.File)
	fmt.Fprintf(w, "Version: PDF-%s\n", r.Version)
	fmt.Fprintf(w, "Pages:   %d\n", r.Pages)

	if len(r.Metadata) > 0 {
		keys := make([]string, 0, len(r.Metadata))
		for k := range r.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Metadata:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, r.Metadata[k])
		}
	}

	if len(r.Sizes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Page dimensions:")
		for _, p := range r.Sizes {
			fmt.Fprintf(w, "  Page %d: %.0f x %.0f pt", p.Page, p.Width, p.Height)
			if p.Rotation != 0 {
				fmt.Fprintf(w, " (rotated %d°)", p.Rotation)
			}
			fmt.Fprintln(w)
		}
	}
}

// parsePageRange converts a page range string to a slice of 0-based page indices.
// Supported formats: "" (all), "3" (single page), "1-5" (range), "1,3,5" (list).
func parsePageRange(spec string, total int) ([]int, error) {
	if spec == "" {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	add := func(p int) {
		if !seen[p] {
			indices = append(indices, p-1)
			seen[p] = true
		}
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid page number: %s", hi)
			}
			if start < 1 || end > total || start > end {
				return nil, fmt.Errorf("page range %d-%d out of bounds (1-%d)", start, end, total)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if p < 1 || p > total {
			return nil, fmt.Errorf("page %d out of bounds (1-%d)", p, total)
		}
		add(p)
	}
	return indices, nil
}
