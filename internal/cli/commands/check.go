package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/registry"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/spf13/cobra"
)

// Diagnostic codes for problems found before compilation.
const (
	codeLoadError   = "LOAD_ERROR"
	codeFrontmatter = "FRONTMATTER_ERROR"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [path]...",
		Short: "Compile templates and report errors",
		Long: `Compile templates without rendering them and report every error with
its file, line, column and code.

Paths may be files or directories; directories are searched recursively for
template files. With no arguments the configured templates directory is
checked. Exits non-zero if any template fails.`,
		Example: `  # Check the templates directory
  stache check

  # Check specific files
  stache check templates/page.mustache emails/

  # Machine-readable diagnostics
  stache check -o json`,
		RunE: runCheck,
	}
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	paths := args
	if len(paths) == 0 {
		if err := cc.Cfg.ValidateDirectories(); err != nil {
			return err
		}
		paths = []string{cc.Cfg.TemplatesDir}
	}

	files, err := collectTemplateFiles(paths)
	if err != nil {
		return err
	}

	result := output.CheckOutput{Files: len(files), Diagnostics: []output.Diagnostic{}}
	opts := cc.CompileOptions()
	for _, file := range files {
		src, err := loader.ReadSource(file)
		if err == nil {
			_, err = src.Compile(opts...)
		}
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, diagnose(file, err))
		}
	}
	result.OK = len(result.Diagnostics) == 0
	cc.Logger.Debug("check finished", "files", result.Files, "errors", len(result.Diagnostics))

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(result); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Template Check"))
		r.Println("")
		r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d", result.Files)))
		r.Println(output.FormatKeyValue("Errors", fmt.Sprintf("%d", len(result.Diagnostics))))
		if !result.OK {
			r.Println("")
			for _, d := range result.Diagnostics {
				r.Printf("- `%s` %s: %s\n", location(d), d.Code, d.Message)
			}
		}
	default:
		for _, d := range result.Diagnostics {
			r.StatusLine(location(d), "error", d.Code+": "+d.Message)
		}
		if result.OK {
			r.Success(fmt.Sprintf("%d templates OK", result.Files))
		}
	}

	if !result.OK {
		return fmt.Errorf("%d of %d templates failed to compile", len(result.Diagnostics), result.Files)
	}
	return nil
}

// diagnose converts a load or compile error into a Diagnostic.
func diagnose(file string, err error) output.Diagnostic {
	d := output.Diagnostic{File: file, Code: codeLoadError, Message: err.Error()}

	var tErr *template.Error
	var fmErr *loader.FrontmatterParseError
	var ufErr *loader.UnknownFieldError
	var lErr *loader.LoadError
	switch {
	case errors.As(err, &tErr):
		d.Code = string(tErr.Code)
		d.Message = tErr.Message
		d.Line = tErr.Pos.Line
		d.Column = tErr.Pos.Column
		d.TraceID = tErr.TraceID
	case errors.As(err, &fmErr):
		d.Code = codeFrontmatter
		d.Message = fmErr.Message
		d.Line = fmErr.Line
	case errors.As(err, &ufErr):
		d.Code = codeFrontmatter
		d.Message = fmt.Sprintf("unknown field %q", ufErr.Field)
	case errors.As(err, &lErr):
		d.Message = lErr.Message
	}
	return d
}

func location(d output.Diagnostic) string {
	switch {
	case d.Column > 0:
		return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	default:
		return d.File
	}
}

// collectTemplateFiles expands directories into the template files under
// them. Files named explicitly are kept whatever their extension.
func collectTemplateFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot check %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && registry.TemplateExtensions[filepath.Ext(path)] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
