package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/stache/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/stache/internal/config"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/starlark"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "stache> "
	replContinuePrompt = "   ...> "
	historyFileName    = ".stache_history"
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Render templates interactively",
		Long: `Start an interactive session. Each line entered is compiled as a
template and rendered against the loaded variables. End a line with \ to
continue the template on the next line.

Type .help for the dot-commands that inspect and change variables.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
	return cmd
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)

	vars, err := cc.LoadVars(cmd)
	if err != nil {
		return err
	}

	var historyFile string
	if cc.Cfg.ProjectRoot != "" {
		historyFile = filepath.Join(cc.Cfg.ProjectRoot, historyFileName)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(vars),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "stache REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	s := newREPLSession(cc, vars)
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if body, ok := strings.CutSuffix(line, `\`); ok {
			buf.WriteString(body)
			buf.WriteString("\n")
			rl.SetPrompt(replContinuePrompt)
			continue
		}
		buf.WriteString(line)
		input := buf.String()
		buf.Reset()
		rl.SetPrompt(replPrompt)

		if s.handle(input) {
			break
		}
	}
	return nil
}

// replSession is the state behind one REPL: the variables templates see
// and the delimiters new lines are compiled with.
type replSession struct {
	r      *output.Renderer
	opts   []template.Option
	delims *sharedcfg.DelimiterConfig
	vars   template.Map
	eval   *starlark.Evaluator
}

func newREPLSession(cc *CommandContext, vars template.Map) *replSession {
	return &replSession{
		r:      cc.Renderer,
		opts:   cc.CompileOptions(),
		delims: cc.Cfg.Delimiters,
		vars:   vars,
		eval:   starlark.NewEvaluator(cc.Logger),
	}
}

// handle processes one complete input and reports whether to exit.
func (s *replSession) handle(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ".") {
		return s.handleDotCommand(trimmed)
	}

	opts := append(s.opts[:len(s.opts):len(s.opts)], template.WithName("<repl>"))
	if s.delims.IsSet() {
		opts = append(opts, template.WithDelimiters(s.delims.Open, s.delims.Close))
	}
	tmpl, err := template.Compile(input, opts...)
	if err != nil {
		s.r.Error(err.Error())
		return false
	}
	s.r.Println(tmpl.Render(s.vars))
	return false
}

func (s *replSession) handleDotCommand(line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.r.Writer())

	case ".vars":
		if err := s.r.JSON(s.vars); err != nil {
			s.r.Error(err.Error())
		}

	case ".set":
		if rest == "" {
			s.r.Error("usage: .set key.path=value")
			return false
		}
		set, err := loader.ParseSet([]string{rest})
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.vars = template.Merge(s.vars, set)

	case ".let":
		name, expr, ok := strings.Cut(rest, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			s.r.Error("usage: .let key.path = <starlark expression>")
			return false
		}
		value, err := s.eval.Eval(strings.TrimSpace(expr), s.vars)
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		if err := loader.SetPath(s.vars, name, value); err != nil {
			s.r.Error(err.Error())
		}

	case ".delims":
		if rest == "" {
			s.r.Println(s.delims.Delimiters().Open + " " + s.delims.Delimiters().Close)
			return false
		}
		d, err := sharedcfg.ParseDelimiters(rest)
		if err != nil {
			s.r.Error(err.Error())
			return false
		}
		s.delims = d

	default:
		s.r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .vars                 Print the current variables as JSON
  .set key.path=value   Set a variable (same rules as --set)
  .let key.path = expr  Set a variable to the result of a Starlark expression
  .delims [open close]  Show or change the delimiters for new lines
  .quit / .exit         Exit the REPL

Tips:
  - Every other line is rendered as a template, e.g. Hello {{name}}!
  - End a line with \ to continue the template on the next line
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newREPLCompleter completes dot-commands and the top-level variable names
// they take.
func newREPLCompleter(vars template.Map) *readline.PrefixCompleter {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	varItems := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		varItems = append(varItems, readline.PcItem(name))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".vars"),
		readline.PcItem(".set", varItems...),
		readline.PcItem(".let", varItems...),
		readline.PcItem(".delims"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
