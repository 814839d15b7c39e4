package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/stache/internal/template"
)

// Source is a template file split into frontmatter and body.
type Source struct {
	// Path is the file the source was read from, if any.
	Path string

	// Name identifies the template in error positions and registries.
	Name string

	// Body is the template text after the frontmatter block.
	Body string

	// Frontmatter holds the parsed header; never nil.
	Frontmatter *Frontmatter

	// bodyLine is the number of lines preceding Body in the file.
	bodyLine int
}

// ReadSource reads a template file and extracts its frontmatter.
func ReadSource(path string) (*Source, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: template paths are user-supplied
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	src, err := ParseSource(path, string(content))
	if err != nil {
		return nil, err
	}
	src.Path = path
	return src, nil
}

// ParseSource builds a Source from in-memory content.
func ParseSource(name, content string) (*Source, error) {
	fm, err := ExtractFrontmatter(content)
	if err != nil {
		var pe *FrontmatterParseError
		var ue *UnknownFieldError
		switch {
		case errors.As(err, &pe):
			pe.File = name
		case errors.As(err, &ue):
			ue.File = name
		}
		return nil, err
	}

	if fm.Config.Name != "" {
		name = fm.Config.Name
	}
	return &Source{
		Name:        name,
		Body:        fm.Body,
		Frontmatter: fm.Config,
		bodyLine:    fm.Lines,
	}, nil
}

// Defaults returns the variables declared in the frontmatter.
func (s *Source) Defaults() template.Map {
	return template.NewContext(s.Frontmatter.Vars)
}

// Delimiters returns the frontmatter delimiters, or fallback if the
// frontmatter declares none.
func (s *Source) Delimiters(fallback template.Delimiters) template.Delimiters {
	if d := s.Frontmatter.Delimiters; d != nil {
		return template.Delimiters{Open: d.Open, Close: d.Close}
	}
	return fallback
}

// Compile compiles the body. Frontmatter delimiters take precedence over
// any given in opts. Error positions are reported against the whole file.
func (s *Source) Compile(opts ...template.Option) (*template.Template, error) {
	opts = append(opts[:len(opts):len(opts)], template.WithName(s.Name), template.WithLineOffset(s.bodyLine))
	if d := s.Frontmatter.Delimiters; d != nil {
		opts = append(opts, template.WithDelimiters(d.Open, d.Close))
	}
	return template.Compile(s.Body, opts...)
}

// Lexer returns a lexer over the body whose positions count from the top
// of the file.
func (s *Source) Lexer(fallback template.Delimiters) *template.Lexer {
	lex := template.NewLexer(s.Body, s.Name, s.Delimiters(fallback))
	lex.SetLineOffset(s.bodyLine)
	return lex
}

// TemplateName derives a registry name from a path relative to root:
// the slash-separated path without its extension.
func TemplateName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// LoadError represents an error loading a template or vars file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}
