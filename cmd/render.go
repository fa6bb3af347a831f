package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mdbook-dice/internal/config"
	dverrors "github.com/conneroisu/mdbook-dice/internal/errors"
	"github.com/conneroisu/mdbook-dice/internal/logging"
	"github.com/conneroisu/mdbook-dice/internal/notation"
	"github.com/conneroisu/mdbook-dice/internal/scanner"
	"github.com/conneroisu/mdbook-dice/internal/watcher"
)

var renderCmd = &cobra.Command{
	Use:     "render <file|dir>...",
	Aliases: []string{"r"},
	Short:   "Rewrite dice notation in Markdown files outside of mdBook",
	Long: `Apply the dice notation rewrite to Markdown files directly. Files are
printed to stdout, or written under --out keeping their path relative to
the directory argument they were found in.

With --watch the sources are watched and changed files are rendered again
until interrupted.

Examples:
  mdbook-dice render src/combat.md          # Print the rewritten chapter
  mdbook-dice render src --out preview      # Render a whole source tree
  mdbook-dice render src -o preview --watch # Keep preview/ up to date`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var renderFlags *StandardFlags

func init() {
	rootCmd.AddCommand(renderCmd)

	renderFlags = AddStandardFlags(renderCmd, "render")
}

// renderSource is one command-line argument
type renderSource struct {
	path  string
	isDir bool
}

// markdownRenderer rewrites files from a set of sources
type markdownRenderer struct {
	config   *config.Config
	scanner  *scanner.SourceScanner
	rewriter *notation.Rewriter
	sources  []renderSource
	outDir   string
	stdout   io.Writer
	logger   logging.Logger
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := renderFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := ValidateFileExists(args...); err != nil {
		return dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to render", err)
	}

	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	r, err := newMarkdownRenderer(e.config, args, renderFlags.OutDir, cmd.OutOrStdout(), e.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	op := e.logger.StartOperation("render")
	if err := r.renderAll(); err != nil {
		op.EndWithError(ctx, err)
		if !renderFlags.Watch {
			return err
		}
	} else {
		op.End(ctx)
	}

	if !renderFlags.Watch {
		return nil
	}
	return r.watch(ctx, e.config)
}

func newMarkdownRenderer(
	cfg *config.Config,
	paths []string,
	outDir string,
	stdout io.Writer,
	logger logging.Logger,
) (*markdownRenderer, error) {
	sourceScanner, err := scanner.NewSourceScanner(cfg, 1)
	if err != nil {
		return nil, err
	}

	sources := make([]renderSource, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to render", err).
				WithLocation(path, 0)
		}
		sources = append(sources, renderSource{path: filepath.Clean(path), isDir: info.IsDir()})
	}

	if logger == nil {
		logger = logging.Nop()
	}

	return &markdownRenderer{
		config:   cfg,
		scanner:  sourceScanner,
		rewriter: sourceScanner.Rewriter(),
		sources:  sources,
		outDir:   outDir,
		stdout:   stdout,
		logger:   logger.WithComponent("render"),
	}, nil
}

// renderAll renders every Markdown file of every source, continuing past
// per-file failures.
func (r *markdownRenderer) renderAll() error {
	collector := dverrors.NewErrorCollector()

	for _, src := range r.sources {
		if !src.isDir {
			collector.Add(r.renderFile(src.path, src))
			continue
		}

		files, err := r.scanner.CollectFiles(src.path, r.skipDir, collector)
		if err != nil {
			collector.Add(err)
			continue
		}
		for _, path := range files {
			collector.Add(r.renderFile(path, src))
		}
	}

	return collector.Err()
}

// skipDir reports whether a directory is excluded or is the output directory
func (r *markdownRenderer) skipDir(path string) bool {
	if r.scanner.SkipDir(path) {
		return true
	}
	return r.outDir != "" && samePath(path, r.outDir)
}

func (r *markdownRenderer) renderFile(path string, src renderSource) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to read", err).
			WithLocation(path, 0)
	}

	rendered := r.rewriter.Rewrite(string(content))

	if r.outDir == "" {
		if _, err := io.WriteString(r.stdout, rendered); err != nil {
			return dverrors.NewOutputError("unable to write rendered file", err).WithLocation(path, 0)
		}
		return nil
	}

	target, err := r.targetPath(path, src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return dverrors.NewIOError(dverrors.ErrCodeFileWrite, "unable to create output directory", err).
			WithLocation(target, 0)
	}
	if err := os.WriteFile(target, []byte(rendered), 0o644); err != nil {
		return dverrors.NewIOError(dverrors.ErrCodeFileWrite, "unable to write rendered file", err).
			WithLocation(target, 0)
	}

	r.logger.Debug(context.Background(), "Rendered file", "source", path, "target", target)
	return nil
}

// targetPath maps a source file to its location under the output directory
func (r *markdownRenderer) targetPath(path string, src renderSource) (string, error) {
	if !src.isDir {
		return filepath.Join(r.outDir, filepath.Base(path)), nil
	}
	rel, err := filepath.Rel(src.path, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", dverrors.NewInternalError(
			fmt.Sprintf("%s is outside of %s", path, src.path), err)
	}
	return filepath.Join(r.outDir, rel), nil
}

// sourceFor finds the source a watched path belongs to
func (r *markdownRenderer) sourceFor(path string) (renderSource, bool) {
	for _, src := range r.sources {
		if !src.isDir {
			if samePath(src.path, path) {
				return src, true
			}
			continue
		}
		rel, err := filepath.Rel(src.path, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return src, true
		}
	}
	return renderSource{}, false
}

// handleChanges re-renders the files of a debounced batch of events
func (r *markdownRenderer) handleChanges(events []watcher.ChangeEvent) error {
	collector := dverrors.NewErrorCollector()

	for _, event := range events {
		if event.Type == watcher.EventTypeDeleted || event.Type == watcher.EventTypeRenamed {
			continue
		}
		if info, err := os.Stat(event.Path); err != nil || info.IsDir() {
			continue
		}
		src, ok := r.sourceFor(event.Path)
		if !ok {
			continue
		}

		r.logger.Info(context.Background(), "Source changed", "path", event.Path, "event", event.Type.String())
		collector.Add(r.renderFile(event.Path, src))
	}

	return collector.Err()
}

// watch re-renders changed sources until ctx is done
func (r *markdownRenderer) watch(ctx context.Context, cfg *config.Config) error {
	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, r.logger)
	if err != nil {
		return dverrors.NewInternalError("unable to create file watcher", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.ExtensionFilter(cfg.Scan.Extensions...))
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddFilter(watcher.NoEditorTempFilter)
	fileWatcher.AddHandler(r.handleChanges)

	for _, src := range r.sources {
		var err error
		if src.isDir {
			err = fileWatcher.AddRecursive(src.path, r.skipDir)
		} else {
			err = fileWatcher.AddPath(src.path)
		}
		if err != nil {
			return dverrors.NewIOError(dverrors.ErrCodeFileNotFound, "unable to watch", err).
				WithLocation(src.path, 0)
		}
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return dverrors.NewInternalError("unable to start file watcher", err)
	}

	r.logger.Info(ctx, "Watching for changes", "sources", len(r.sources), "debounce", cfg.Watch.Debounce.String())
	<-ctx.Done()
	r.logger.Info(context.Background(), "Stopping file watcher")

	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
