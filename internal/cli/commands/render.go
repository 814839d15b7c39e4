package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// templateSuffixes are stripped from file names when writing to --out-dir.
var templateSuffixes = []string{".mustache", ".tmpl", ".tpl"}

type renderOptions struct {
	outDir string
	watch  bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <file>...",
		Short: "Render template files",
		Long: `Render one or more template files against the loaded variables.

Variables are layered, lowest first: template frontmatter, --vars files
(.json, .yaml, .toml, .env, .star) in order, the config file's set map, and --set flags.

Output is the rendered text unless --output markdown or --output json is
given. Several files are rendered in parallel and printed in argument order.`,
		Example: `  # Render a template to stdout
  stache render templates/hello.mustache --set name=World

  # Render with variables from files
  stache render page.html.mustache --vars vars/site.yaml --vars vars/derived.star

  # Write results into a directory (page.html.mustache -> out/page.html)
  stache render templates/*.mustache --out-dir out

  # Re-render whenever a template or vars file changes
  stache render page.mustache --watch

  # Use ERB-style delimiters
  stache render page.tpl --delims "<% %>"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Write each result into this directory instead of stdout")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-render when templates or vars files change")

	return cmd
}

func runRender(cmd *cobra.Command, files []string, opts *renderOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	if !opts.watch {
		return renderFiles(ctx, cc, cmd, files, opts.outDir)
	}

	if err := renderFiles(ctx, cc, cmd, files, opts.outDir); err != nil {
		cc.Renderer.Error(err.Error())
	}

	paths := slices.Concat(files, cc.Cfg.Vars)
	_, _ = fmt.Fprintf(cc.Renderer.ErrWriter(), "Watching %d files for changes (Ctrl+C to stop)\n", len(paths))

	w := loader.NewWatcher(paths, cc.Logger)
	return w.Run(ctx, func(path string) {
		cc.Logger.Info("change detected, re-rendering", "file", path)
		if err := renderFiles(ctx, cc, cmd, files, opts.outDir); err != nil {
			cc.Renderer.Error(err.Error())
		}
	})
}

// renderFiles renders files in parallel and prints the results in order.
// Vars are reloaded on every call so watch mode sees edits to vars files.
func renderFiles(ctx context.Context, cc *CommandContext, cmd *cobra.Command, files []string, outDir string) error {
	vars, err := cc.LoadVars(cmd)
	if err != nil {
		return err
	}

	outPaths, err := outputPaths(files, outDir)
	if err != nil {
		return err
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
		}
	}

	results := make([]output.RenderOutput, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			res, err := renderFile(cc, file, vars, outPaths[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return printRenderResults(cc.Renderer, results)
}

// renderFile renders one template. An empty outPath keeps the text in the
// result instead of writing it.
func renderFile(cc *CommandContext, file string, vars template.Map, outPath string) (output.RenderOutput, error) {
	src, err := loader.ReadSource(file)
	if err != nil {
		return output.RenderOutput{}, err
	}
	tmpl, err := src.Compile(cc.CompileOptions()...)
	if err != nil {
		return output.RenderOutput{}, err
	}

	text := tmpl.Render(template.Merge(src.Defaults(), vars))
	res := output.RenderOutput{File: file, TraceID: tmpl.TraceID()}
	if outPath == "" {
		res.Output = text
		return res, nil
	}

	res.OutPath = outPath
	if err := os.WriteFile(res.OutPath, []byte(text), 0600); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", res.OutPath, err)
	}
	cc.Logger.Debug("rendered template", "file", file, "out", res.OutPath, "trace_id", res.TraceID)
	return res, nil
}

// outputPaths maps each file to its path under outDir. Two different
// templates mapping to one output path are an error. With no outDir every
// path is empty.
func outputPaths(files []string, outDir string) ([]string, error) {
	paths := make([]string, len(files))
	if outDir == "" {
		return paths, nil
	}

	owners := make(map[string]string, len(files))
	for i, file := range files {
		out := filepath.Join(outDir, outputName(file))
		if prev, ok := owners[out]; ok && filepath.Clean(prev) != filepath.Clean(file) {
			return nil, fmt.Errorf("%s and %s both render to %s", prev, file, out)
		}
		owners[out] = file
		paths[i] = out
	}
	return paths, nil
}

// outputName is the file name a template renders to: page.html.mustache
// becomes page.html.
func outputName(file string) string {
	base := filepath.Base(file)
	for _, suffix := range templateSuffixes {
		if trimmed, ok := strings.CutSuffix(base, suffix); ok && trimmed != "" {
			return trimmed
		}
	}
	return base
}

func printRenderResults(r *output.Renderer, results []output.RenderOutput) error {
	// Rendered text is the product, so auto mode stays raw even when piped.
	switch r.Mode() {
	case output.ModeJSON:
		return r.JSON(results)
	case output.ModeMarkdown:
		for _, res := range results {
			r.Println(output.FormatHeader(1, "Rendered: "+res.File))
			r.Println("")
			if res.OutPath != "" {
				r.Println(output.FormatKeyValue("Written to", res.OutPath))
			} else {
				r.Println(output.FormatCodeBlock("", res.Output))
			}
			r.Println("")
		}
	default:
		for _, res := range results {
			if res.OutPath != "" {
				r.StatusLine(res.File, "success", "-> "+res.OutPath)
				continue
			}
			if _, err := io.WriteString(r.Writer(), res.Output); err != nil {
				return err
			}
		}
	}
	return nil
}
