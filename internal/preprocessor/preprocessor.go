// Package preprocessor implements the mdBook preprocessor protocol for the
// dice notation rewriter.
//
// mdBook calls a preprocessor twice per build and renderer: once as
// `<cmd> supports <renderer>`, answered through the exit code, and once with
// no arguments, exchanging JSON over stdin and stdout.
package preprocessor

import (
	"context"
	"io"

	"github.com/conneroisu/mdbook-dice/internal/book"
	"github.com/conneroisu/mdbook-dice/internal/config"
	dverrors "github.com/conneroisu/mdbook-dice/internal/errors"
	"github.com/conneroisu/mdbook-dice/internal/logging"
	"github.com/conneroisu/mdbook-dice/internal/notation"
	"github.com/conneroisu/mdbook-dice/internal/version"
)

// Name is the preprocessor's table name in book.toml.
const Name = "dice"

// Preprocessor is a book transformation driven by mdBook.
type Preprocessor interface {
	// Name returns the name used in book.toml
	Name() string

	// Run transforms the book and returns the result
	Run(ctx *book.Context, b *book.Book) (*book.Book, error)

	// SupportsRenderer reports whether the preprocessor should run for renderer
	SupportsRenderer(renderer string) bool
}

// Dice rewrites dice notation in every chapter.
type Dice struct {
	config *config.Config
	logger logging.Logger
}

// NewDice creates the dice preprocessor. A nil config means defaults.
func NewDice(cfg *config.Config, logger logging.Logger) *Dice {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dice{
		config: cfg,
		logger: logger.WithComponent("preprocessor"),
	}
}

// Name implements Preprocessor
func (d *Dice) Name() string {
	return Name
}

// SupportsRenderer implements Preprocessor. The rewrite injects plain
// markup, so every renderer is accepted.
func (d *Dice) SupportsRenderer(renderer string) bool {
	return true
}

// Run implements Preprocessor
func (d *Dice) Run(ctx *book.Context, b *book.Book) (*book.Book, error) {
	cfg, err := d.config.WithBookTable(ctx.PreprocessorTable(Name))
	if err != nil {
		return nil, dverrors.NewConfigError("invalid book configuration", err)
	}

	rewriter, err := notation.NewRewriter(cfg.Classes)
	if err != nil {
		return nil, dverrors.NewConfigError("invalid classes", err)
	}

	chapters, changed := 0, 0
	b.ForEachChapter(func(ch *book.Chapter) {
		chapters++
		rewritten := rewriter.Rewrite(ch.Content)
		if rewritten != ch.Content {
			changed++
			d.logger.Debug(context.Background(), "Rewrote chapter", "chapter", ch.Name, "path", ch.Path())
		}
		ch.Content = rewritten
	})

	d.logger.Debug(context.Background(), "Rewrote dice notation",
		"renderer", ctx.Renderer,
		"chapters", chapters,
		"changed", changed,
	)

	return b, nil
}

// HandlePreprocessing runs one request/response cycle: it reads the
// `[context, book]` pair from in, warns on a host version mismatch, runs
// pre and writes the resulting book to out.
func HandlePreprocessing(pre Preprocessor, in io.Reader, out io.Writer, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx := context.Background()

	bookCtx, b, err := book.ParseInput(in)
	if err != nil {
		return dverrors.NewInputError("unable to parse the preprocessor input", err)
	}

	compat, err := version.CheckHostCompatibility(bookCtx.MdbookVersion)
	if err != nil {
		return err
	}
	if !compat.Compatible {
		logger.Notice(ctx, compat.Warning(),
			"required", compat.Required,
			"actual", compat.Actual,
		)
	}

	processed, err := pre.Run(bookCtx, b)
	if err != nil {
		return err
	}

	if err := book.WriteBook(out, processed); err != nil {
		return dverrors.NewOutputError("unable to write the processed book", err)
	}
	return nil
}

// HandleSupports returns the exit code for `supports <renderer>`: 0 when
// pre supports the renderer, 1 otherwise.
func HandleSupports(pre Preprocessor, renderer string) int {
	if pre.SupportsRenderer(renderer) {
		return 0
	}
	return 1
}
