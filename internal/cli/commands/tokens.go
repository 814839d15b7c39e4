package commands

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/spf13/cobra"
)

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the token stream of a template",
		Long: `Tokenize a template and print each token with its kind, text and
position. Positions count lines from the top of the file, frontmatter
included. Delimiter changes are applied but produce no token.`,
		Example: `  stache tokens templates/page.mustache
  stache tokens page.tpl --delims "<% %>" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args[0])
		},
	}
	return cmd
}

func runTokens(cmd *cobra.Command, file string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	src, err := loader.ReadSource(file)
	if err != nil {
		return err
	}

	tokens, err := src.Lexer(cc.Delimiters()).Tokenize()
	if err != nil {
		return err
	}

	infos := make([]output.TokenInfo, len(tokens))
	for i, tok := range tokens {
		infos[i] = output.TokenInfo{
			Kind:   tok.Kind.String(),
			Text:   tok.Text,
			Line:   tok.Pos.Line,
			Column: tok.Pos.Column,
		}
	}

	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(infos)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.AppendHeader(table.Row{"#", "Kind", "Text", "Position"})
	for i, info := range infos {
		t.AppendRow(table.Row{i, info.Kind, tokenText(info), fmt.Sprintf("%d:%d", info.Line, info.Column)})
	}

	if mode == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Tokens: "+file))
		r.Println("")
		t.RenderMarkdown()
		return nil
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}

// tokenText quotes literal text so whitespace and newlines stay visible.
func tokenText(info output.TokenInfo) string {
	if info.Kind == template.TokenLiteral.String() {
		return strconv.Quote(info.Text)
	}
	return info.Text
}
