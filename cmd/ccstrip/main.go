package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/danshapiro/ccstrip/internal/job"
	"github.com/danshapiro/ccstrip/internal/version"
)

func signalCancelContext() (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigCh := make(chan os.Signal, 1)
	stopCh := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				cancel(fmt.Errorf("stopped by signal %s", sig.String()))
			case <-stopCh:
				return
			}
		}
	}()
	cleanup := func() {
		signal.Stop(sigCh)
		close(stopCh)
		cancel(nil)
	}
	return ctx, cleanup
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("ccstrip %s\n", version.Version)
		os.Exit(0)
	case "strip":
		stripCmd(os.Args[2:])
	case "run":
		runCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  ccstrip --version")
	fmt.Fprintln(os.Stderr, "  ccstrip strip [--encoding <name>] [--force] [--json] <input.c> <output.c>")
	fmt.Fprintln(os.Stderr, "  ccstrip run --config <run.yaml> [--run-id <id>] [--report <file.json>] [--dry-run] [--json]")
	fmt.Fprintln(os.Stderr, "  ccstrip check [--encoding <name>] [--json] <file> [<file> ...]")
}

func stripCmd(args []string) {
	var encoding string
	var force bool
	var jsonOutput bool
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--encoding":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--encoding requires a value")
				os.Exit(1)
			}
			encoding = args[i]
		case "--force":
			force = true
		case "--json":
			jsonOutput = true
		default:
			if strings.HasPrefix(args[i], "--") {
				fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
				os.Exit(1)
			}
			positional = append(positional, args[i])
		}
	}
	if len(positional) != 2 {
		usage()
		os.Exit(1)
	}
	input, output := positional[0], positional[1]

	runID, err := job.NewRunID()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cleanupSignalCtx := signalCancelContext()
	res, err := job.StripFile(ctx, input, output, job.FileOptions{Encoding: encoding, Overwrite: force})
	cleanupSignalCtx()
	if err != nil {
		reportStripError(err)
		os.Exit(1)
	}

	if jsonOutput {
		writeJSON(struct {
			RunID string `json:"run_id"`
			*job.FileResult
		}{runID, res})
	} else {
		fmt.Printf("Total comment lines in %s: %d\n", input, res.CommentLines)
		fmt.Printf("run_id=%s\n", runID)
		fmt.Printf("output=%s\n", output)
	}
	if res.Unterminated() {
		fmt.Fprintf(os.Stderr, "WARNING: %s ends in %s\n", input, res.FinalState)
	}
	os.Exit(0)
}

func reportStripError(err error) {
	var inErr *job.InputOpenError
	var outErr *job.OutputCreateError
	switch {
	case errors.As(err, &inErr):
		fmt.Fprintf(os.Stderr, "Unable to open input file: %v\n", inErr.Err)
	case errors.As(err, &outErr):
		if errors.Is(outErr.Err, fs.ErrExist) {
			fmt.Fprintf(os.Stderr, "Unable to open output file: %s already exists (use --force to replace it)\n", outErr.Path)
			return
		}
		fmt.Fprintf(os.Stderr, "Unable to open output file: %v\n", outErr.Err)
	default:
		fmt.Fprintln(os.Stderr, err)
	}
}

func runCmd(args []string) {
	var configPath string
	var runID string
	var reportPath string
	var dryRun bool
	var jsonOutput bool

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--run-id":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--run-id requires a value")
				os.Exit(1)
			}
			runID = args[i]
		case "--report":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--report requires a value")
				os.Exit(1)
			}
			reportPath = args[i]
		case "--dry-run":
			dryRun = true
		case "--json":
			jsonOutput = true
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}
	if configPath == "" {
		usage()
		os.Exit(1)
	}
	cfg, err := job.LoadConfigFile(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if reportPath != "" {
		if reportPath, err = filepath.Abs(reportPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	ctx, cleanupSignalCtx := signalCancelContext()
	rep, err := job.Run(ctx, cfg, job.RunOptions{
		RunID:      runID,
		ReportPath: reportPath,
		DryRun:     dryRun,
	})
	cleanupSignalCtx()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if jsonOutput {
		writeJSON(rep)
	} else {
		printReportTable(rep)
	}
	os.Exit(exitCode(rep.Outcome))
}

func checkCmd(args []string) {
	var encoding string
	var jsonOutput bool
	var files []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--encoding":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--encoding requires a value")
				os.Exit(1)
			}
			encoding = args[i]
		case "--json":
			jsonOutput = true
		default:
			if strings.HasPrefix(args[i], "--") {
				fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
				os.Exit(1)
			}
			files = append(files, args[i])
		}
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "check requires at least one file path")
		usage()
		os.Exit(1)
	}

	ctx, cleanupSignalCtx := signalCancelContext()
	results := make([]*job.FileResult, 0, len(files))
	anyErrors := false
	anyWarnings := false
	for _, f := range files {
		res, err := job.CheckFile(ctx, f, encoding)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(os.Stderr, err)
				cleanupSignalCtx()
				os.Exit(1)
			}
			res = &job.FileResult{Input: f, Error: err.Error()}
			anyErrors = true
		} else if res.Unterminated() {
			anyWarnings = true
		}
		results = append(results, res)
	}

	if jsonOutput {
		writeJSON(results)
	} else {
		fmt.Printf("%-50s  %8s  %s\n", "FILE", "COMMENTS", "STATE")
		fmt.Println(strings.Repeat("-", 78))
		for _, r := range results {
			printFileRow(r)
		}
		fmt.Println(strings.Repeat("-", 78))
		fmt.Printf("Total files: %d\n", len(results))
	}

	cleanupSignalCtx()
	switch {
	case anyErrors:
		os.Exit(1)
	case anyWarnings:
		os.Exit(2)
	default:
		os.Exit(0)
	}
}

func printReportTable(rep *job.Report) {
	fmt.Printf("run_id=%s\n", rep.RunID)
	if rep.OutputDir != "" {
		fmt.Printf("output_dir=%s\n", rep.OutputDir)
	}
	fmt.Printf("%-50s  %8s  %s\n", "FILE", "COMMENTS", "STATE")
	fmt.Println(strings.Repeat("-", 78))
	for _, r := range rep.Files {
		printFileRow(r)
	}
	fmt.Println(strings.Repeat("-", 78))
	fmt.Printf("Total files: %d\n", rep.TotalFiles)
	fmt.Printf("Total comment lines: %d\n", rep.TotalCommentLines)
	for _, w := range rep.Warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}
}

func printFileRow(r *job.FileResult) {
	name := shortenPath(r.Input, 50)
	if r.Error != "" {
		fmt.Printf("%-50s  %8s  [FAIL]\n", name, "-")
		fmt.Printf("  error: %s\n", r.Error)
		return
	}
	status := r.FinalState.String()
	if r.Unterminated() {
		status += " [warn]"
	}
	fmt.Printf("%-50s  %8d  %s\n", name, r.CommentLines, status)
}

// shortenPath keeps the tail of p, cutting on a rune boundary so the result
// is at most limit runes.
func shortenPath(p string, limit int) string {
	runes := []rune(p)
	if len(runes) <= limit {
		return p
	}
	return "..." + string(runes[len(runes)-(limit-3):])
}

func exitCode(o job.Outcome) int {
	switch o {
	case job.OutcomeOK:
		return 0
	case job.OutcomeWarn:
		return 2
	default:
		return 1
	}
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "json encode:", err)
		os.Exit(1)
	}
}
