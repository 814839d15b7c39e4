package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/spf13/cobra"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the parsed node tree of a template",
		Long: `Parse a template and print its node tree: text, variables, sections
and comments with their positions.`,
		Example: `  stache tree templates/page.mustache
  stache tree templates/page.mustache -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args[0])
		},
	}
	return cmd
}

func runTree(cmd *cobra.Command, file string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	src, err := loader.ReadSource(file)
	if err != nil {
		return err
	}
	tmpl, err := src.Compile(cc.CompileOptions()...)
	if err != nil {
		return err
	}

	root := nodeInfo(tmpl.Root())

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(root)
	case output.ModeMarkdown:
		var sb strings.Builder
		writeTree(&sb, root, 0)
		r.Println(output.FormatHeader(1, "Tree: "+file))
		r.Println("")
		r.Println(output.FormatCodeBlock("", sb.String()))
	default:
		writeTree(r.Writer(), root, 0)
	}
	return nil
}

// nodeInfo converts a parsed node and its children.
func nodeInfo(n template.Node) output.NodeInfo {
	pos := n.Pos()
	info := output.NodeInfo{Line: pos.Line, Column: pos.Column}

	switch n := n.(type) {
	case *template.TextNode:
		info.Type = "text"
		info.Text = n.Text
	case *template.VariableNode:
		info.Type = "variable"
		info.Path = n.Path
		escape := n.Escape
		info.Escape = &escape
	case *template.CommentNode:
		info.Type = "comment"
		info.Text = n.Text
	case *template.SectionNode:
		info.Type = "section"
		if n.Path == "" && n.Helper == template.HelperNone {
			info.Type = "root"
		}
		info.Path = n.Path
		info.Helper = string(n.Helper)
		info.Negated = n.Negated
		for _, child := range n.Body {
			info.Children = append(info.Children, nodeInfo(child))
		}
	}
	return info
}

func writeTree(w io.Writer, n output.NodeInfo, depth int) {
	indent := strings.Repeat("  ", depth)
	var desc string
	switch n.Type {
	case "root":
		desc = "root"
	case "text", "comment":
		desc = n.Type + " " + strconv.Quote(n.Text)
	case "variable":
		desc = "variable " + n.Path
		if n.Escape != nil && !*n.Escape {
			desc += " (raw)"
		}
	case "section":
		desc = "section " + n.Path
		if n.Helper != "" {
			desc = "section #" + n.Helper + " " + n.Path
		}
		if n.Negated {
			desc += " (inverted)"
		}
	}

	if n.Type == "root" {
		_, _ = fmt.Fprintln(w, indent+desc)
	} else {
		_, _ = fmt.Fprintf(w, "%s%s @%d:%d\n", indent, desc, n.Line, n.Column)
	}
	for _, child := range n.Children {
		writeTree(w, child, depth+1)
	}
}
