package template

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Template is a compiled template. It is immutable and safe to render from
// many goroutines at once.
type Template struct {
	name   string
	root   *SectionNode
	delims Delimiters
	trace  string
}

// options configures Compile.
type options struct {
	name     string
	delims   Delimiters
	traceID  string
	maxDepth   int
	lineOffset int
	logger     *slog.Logger
}

// Option is a functional option for Compile.
type Option func(*options)

// WithName sets the name reported in error positions, usually a file path.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDelimiters sets the initial open/close markers.
func WithDelimiters(open, close string) Option {
	return func(o *options) { o.delims = Delimiters{Open: open, Close: close} }
}

// WithTraceID sets the trace ID attached to compile errors.
// Without it a random ID is generated per Compile call.
func WithTraceID(id string) Option {
	return func(o *options) { o.traceID = id }
}

// WithMaxDepth bounds section nesting. 0 means unlimited.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithLineOffset makes positions count n lines that precede source,
// such as a frontmatter block.
func WithLineOffset(n int) Option {
	return func(o *options) { o.lineOffset = n }
}

// WithLogger sets the logger for compile diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// ValidateDelimiters checks that a delimiter pair is usable.
func ValidateDelimiters(d Delimiters) error {
	for _, m := range []string{d.Open, d.Close} {
		if m == "" {
			return errors.New("delimiters must not be empty")
		}
		if strings.ContainsAny(m, " \t\r\n=") {
			return fmt.Errorf("delimiter %q must not contain whitespace or '='", m)
		}
	}
	return nil
}

// Compile tokenizes and parses source. The returned error, if any, is a
// *Error carrying the position of the offending directive.
func Compile(source string, opts ...Option) (*Template, error) {
	o := options{delims: DefaultDelimiters}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.traceID == "" {
		o.traceID = uuid.NewString()
	}
	if err := ValidateDelimiters(o.delims); err != nil {
		return nil, err
	}

	lex := NewLexer(source, o.name, o.delims)
	lex.SetLineOffset(o.lineOffset)
	defer lex.Close()

	root, err := NewParser(lex, o.maxDepth).Parse()
	if err != nil {
		var tErr *Error
		if errors.As(err, &tErr) {
			tErr.TraceID = o.traceID
		}
		o.logger.Debug("template compile failed", "name", o.name, "trace_id", o.traceID, "error", err)
		return nil, err
	}

	o.logger.Debug("template compiled", "name", o.name, "trace_id", o.traceID, "nodes", len(root.Body))
	return &Template{name: o.name, root: root, delims: o.delims, trace: o.traceID}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(source string, opts ...Option) *Template {
	t, err := Compile(source, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the name given at compile time.
func (t *Template) Name() string { return t.name }

// Root returns the root section of the parsed tree. Callers must not modify it.
func (t *Template) Root() *SectionNode { return t.root }

// TraceID returns the trace ID of the compile that produced t.
func (t *Template) TraceID() string { return t.trace }

// Render evaluates the template against ctx. Missing variables render empty;
// rendering never fails.
func (t *Template) Render(ctx Map) string {
	return render(t.root, ctx)
}

// RenderTo writes the rendered template to w.
func (t *Template) RenderTo(w io.Writer, ctx Map) error {
	_, err := io.WriteString(w, t.Render(ctx))
	return err
}

// RenderString compiles source and renders it against ctx in one step.
func RenderString(source string, ctx Map) (string, error) {
	t, err := Compile(source)
	if err != nil {
		return "", err
	}
	return t.Render(ctx), nil
}
