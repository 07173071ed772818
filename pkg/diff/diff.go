package diff

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aymanbagabas/go-udiff"
	"github.com/muesli/termenv"
)

// DefaultStyle is the chroma style used by [Renderer].
const DefaultStyle = "monokai"

// Unified returns a unified diff from oldText to newText.
// It returns an empty string if the texts are equal.
func Unified(oldLabel, newLabel, oldText, newText string) string {
	return udiff.Unified(oldLabel, newLabel, oldText, newText)
}

// Renderer writes diffs (or other text, see [WithLexer]), highlighted for
// the terminal if color is enabled.
type Renderer struct {
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
}

// RendererOpt configures a [Renderer].
type RendererOpt func(*Renderer)

// WithColorProfile selects a terminal formatter for the given profile.
// [termenv.Ascii] disables highlighting.
func WithColorProfile(p termenv.Profile) RendererOpt {
	return func(r *Renderer) {
		name := "noop"
		switch p {
		case termenv.TrueColor:
			name = "terminal16m"
		case termenv.ANSI256:
			name = "terminal256"
		case termenv.ANSI:
			name = "terminal8"
		case termenv.Ascii:
		}

		r.formatter = formatters.Get(name)
	}
}

// WithLexer sets the chroma lexer by name. The default is "diff".
func WithLexer(name string) RendererOpt {
	return func(r *Renderer) {
		if l := lexers.Get(name); l != nil {
			r.lexer = chroma.Coalesce(l)
		}
	}
}

// WithStyle sets the chroma style by name.
func WithStyle(name string) RendererOpt {
	return func(r *Renderer) {
		r.style = styles.Get(name)
	}
}

// NewRenderer creates a new [Renderer]. Without options it writes plain
// text.
func NewRenderer(opts ...RendererOpt) *Renderer {
	r := &Renderer{
		lexer:     chroma.Coalesce(lexers.Get("diff")),
		formatter: formatters.Get("noop"),
		style:     styles.Get(DefaultStyle),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render writes text to w.
func (r *Renderer) Render(w io.Writer, text string) error {
	it, err := r.lexer.Tokenise(nil, text)
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}

	err = r.formatter.Format(w, r.style, it)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}

	return nil
}
