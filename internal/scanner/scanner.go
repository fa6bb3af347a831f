// Package scanner finds dice notation in a tree of Markdown sources.
//
// The scanner walks a directory, skipping excluded directories and files
// without a Markdown extension, and hands every file to a pool of workers
// that run the notation scan. Results are ordered by file path so output is
// stable regardless of which worker finished first. A file that cannot be
// read is recorded and skipped; the rest of the tree is still scanned.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/conneroisu/mdbook-dice/internal/config"
	dverrors "github.com/conneroisu/mdbook-dice/internal/errors"
	"github.com/conneroisu/mdbook-dice/internal/notation"
)

// Finding is one notation found in a source file
type Finding struct {
	File     string           `json:"file" yaml:"file"`
	Line     int              `json:"line" yaml:"line"`
	Variant  notation.Variant `json:"variant" yaml:"variant"`
	Notation string           `json:"notation" yaml:"notation"`
	Body     string           `json:"body" yaml:"body"`
	Markup   string           `json:"markup,omitempty" yaml:"markup,omitempty"`
}

// Result is the outcome of scanning a tree
type Result struct {
	Findings []Finding
	// Files is the number of Markdown files that were read
	Files int
}

// scanJob is one file handed to a worker
type scanJob struct {
	path string
	name string
}

// scanResult is what a worker sends back for a job
type scanResult struct {
	name     string
	findings []Finding
	err      error
}

// SourceScanner scans Markdown sources for dice notation
type SourceScanner struct {
	config      *config.Config
	rewriter    *notation.Rewriter
	workerCount int
}

// NewSourceScanner creates a scanner using cfg's classes and scan settings.
// A workerCount below one means one worker per CPU, capped at 8.
func NewSourceScanner(cfg *config.Config, workerCount int) (*SourceScanner, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	rewriter, err := notation.NewRewriter(cfg.Classes)
	if err != nil {
		return nil, dverrors.NewConfigError("invalid classes", err)
	}

	if workerCount < 1 {
		workerCount = runtime.NumCPU()
		if workerCount > 8 {
			workerCount = 8
		}
	}

	return &SourceScanner{
		config:      cfg,
		rewriter:    rewriter,
		workerCount: workerCount,
	}, nil
}

// Rewriter returns the rewriter used to render findings
func (s *SourceScanner) Rewriter() *notation.Rewriter {
	return s.rewriter
}

// SkipDir reports whether the walk should not descend into dir
func (s *SourceScanner) SkipDir(dir string) bool {
	return s.config.IsExcluded(filepath.Base(dir))
}

// CollectFiles lists the Markdown files under root in lexical order.
// Directories for which skip returns true are not entered; a nil skip uses
// SkipDir. Unreadable entries are added to collector.
func (s *SourceScanner) CollectFiles(
	root string,
	skip func(dir string) bool,
	collector *dverrors.ErrorCollector,
) ([]string, error) {
	if skip == nil {
		skip = s.SkipDir
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			collector.Add(dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to read", err).
				WithLocation(path, 0))
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && skip(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.config.IsMarkdown(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ScanDirectory scans root, which may also be a single file. Files are
// named relative to root in the findings.
func (s *SourceScanner) ScanDirectory(
	ctx context.Context,
	root string,
	collector *dverrors.ErrorCollector,
) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to scan", err).
			WithLocation(root, 0)
	}

	if !info.IsDir() {
		findings, err := s.ScanFile(root, filepath.ToSlash(root))
		if err != nil {
			return nil, err
		}
		return &Result{Findings: findings, Files: 1}, nil
	}

	files, err := s.CollectFiles(root, nil, collector)
	if err != nil {
		return nil, err
	}

	jobs := make([]scanJob, 0, len(files))
	for _, path := range files {
		name, relErr := filepath.Rel(root, path)
		if relErr != nil {
			name = path
		}
		jobs = append(jobs, scanJob{path: path, name: filepath.ToSlash(name)})
	}

	results, err := s.processBatch(ctx, jobs)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, r := range results {
		if r.err != nil {
			collector.Add(r.err)
			continue
		}
		result.Files++
		result.Findings = append(result.Findings, r.findings...)
	}

	return result, nil
}

// processBatch runs jobs on the worker pool and returns their results
// sorted by file name.
func (s *SourceScanner) processBatch(ctx context.Context, jobs []scanJob) ([]scanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// For very small batches, process synchronously to avoid overhead
	if len(jobs) <= s.workerCount {
		results := make([]scanResult, 0, len(jobs))
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			findings, err := s.ScanFile(job.path, job.name)
			results = append(results, scanResult{name: job.name, findings: findings, err: err})
		}
		sortResults(results)
		return results, nil
	}

	jobQueue := make(chan scanJob, s.workerCount*2)
	resultChan := make(chan scanResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobQueue {
				findings, err := s.ScanFile(job.path, job.name)
				resultChan <- scanResult{name: job.name, findings: findings, err: err}
			}
		}()
	}

	var cancelled error
submit:
	for _, job := range jobs {
		select {
		case jobQueue <- job:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break submit
		}
	}
	close(jobQueue)
	wg.Wait()
	close(resultChan)

	if cancelled != nil {
		return nil, cancelled
	}

	results := make([]scanResult, 0, len(jobs))
	for r := range resultChan {
		results = append(results, r)
	}
	sortResults(results)

	return results, nil
}

func sortResults(results []scanResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })
}

// ScanFile scans one file. name is the file name reported in findings.
func (s *SourceScanner) ScanFile(path, name string) ([]Finding, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to read", err).
			WithLocation(path, 0)
	}

	tokens := s.rewriter.Scan(string(content))
	findings := make([]Finding, 0, len(tokens))
	for _, tok := range tokens {
		findings = append(findings, Finding{
			File:     name,
			Line:     tok.Line,
			Variant:  tok.Variant,
			Notation: tok.Raw,
			Body:     tok.Body,
			Markup:   s.rewriter.Fragment(tok.Variant, tok.Body),
		})
	}
	return findings, nil
}
