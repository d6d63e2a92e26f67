package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type RunOptions struct {
	RunID string
	// ReportPath overrides cfg.Report.Path when set.
	ReportPath string
	// DryRun scans inputs without writing outputs.
	DryRun bool
	// Now defaults to time.Now.
	Now func() time.Time
}

type Outcome string

const (
	OutcomeOK   Outcome = "ok"
	OutcomeWarn Outcome = "warn"
	OutcomeFail Outcome = "fail"
)

type Report struct {
	RunID             string        `json:"run_id"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
	Root              string        `json:"root"`
	OutputDir         string        `json:"output_dir,omitempty"`
	DryRun            bool          `json:"dry_run,omitempty"`
	Files             []*FileResult `json:"files"`
	TotalFiles        int           `json:"total_files"`
	TotalCommentLines int           `json:"total_comment_lines"`
	Failed            int           `json:"failed"`
	Warnings          []string      `json:"warnings"`
	Missing           []string      `json:"missing_patterns"`
	Outcome           Outcome       `json:"outcome"`
}

// Run strips every file selected by cfg into cfg.Output.Dir, mirroring the
// input tree. Per-file failures are recorded in the report and do not stop
// the run; context cancellation does.
func Run(ctx context.Context, cfg *Config, opts RunOptions) (*Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		id, err := NewRunID()
		if err != nil {
			return nil, err
		}
		runID = id
	}
	if strings.ContainsAny(runID, `/\`) {
		return nil, fmt.Errorf("run id %q contains a path separator", runID)
	}

	exclude := append([]string(nil), cfg.Inputs.Exclude...)
	if pat, ok := outputExclude(cfg.Inputs.Root, cfg.Output.Dir); ok {
		exclude = append(exclude, pat)
	}
	exp, err := ExpandInputs(cfg.Inputs.Root, cfg.Inputs.Include, exclude)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:     runID,
		StartedAt: now().UTC(),
		Root:      cfg.Inputs.Root,
		DryRun:    opts.DryRun,
		Files:     make([]*FileResult, 0, len(exp.Files)),
		Warnings:  []string{},
		Missing:   exp.Missing,
	}
	if !opts.DryRun {
		rep.OutputDir = cfg.Output.Dir
	}
	for _, pat := range exp.Missing {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("include pattern %q matched no files", pat))
	}

	for _, rel := range exp.Files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		in := filepath.Join(cfg.Inputs.Root, filepath.FromSlash(rel))
		var (
			res  *FileResult
			ferr error
		)
		if opts.DryRun {
			res, ferr = CheckFile(ctx, in, cfg.Inputs.Encoding)
		} else {
			out := filepath.Join(cfg.Output.Dir, filepath.FromSlash(rel)) + cfg.Output.Suffix
			res, ferr = StripFile(ctx, in, out, FileOptions{
				Encoding:  cfg.Inputs.Encoding,
				Overwrite: cfg.Output.Overwrite,
			})
		}
		if ferr != nil {
			if errors.Is(ferr, context.Canceled) || errors.Is(ferr, context.DeadlineExceeded) {
				return rep, ferr
			}
			res = &FileResult{Input: in, Error: ferr.Error()}
			rep.Failed++
		} else {
			rep.TotalCommentLines += res.CommentLines
			if res.Unterminated() {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: input ends in %s", rel, res.FinalState))
			}
		}
		rep.Files = append(rep.Files, res)
	}
	rep.TotalFiles = len(rep.Files)
	rep.FinishedAt = now().UTC()
	rep.Outcome = rep.outcome(cfg.Report.FailOnUnterminated)

	reportPath := cfg.Report.Path
	if strings.TrimSpace(opts.ReportPath) != "" {
		reportPath = opts.ReportPath
	}
	if reportPath != "" {
		if err := WriteReport(reportPath, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Report) outcome(failOnUnterminated bool) Outcome {
	unterminated := false
	for _, f := range r.Files {
		if f.Unterminated() {
			unterminated = true
			break
		}
	}
	switch {
	case r.Failed > 0:
		return OutcomeFail
	case unterminated && failOnUnterminated:
		return OutcomeFail
	case len(r.Warnings) > 0:
		return OutcomeWarn
	default:
		return OutcomeOK
	}
}

// WriteReport writes rep as indented JSON, creating parent directories.
func WriteReport(path string, rep *Report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
