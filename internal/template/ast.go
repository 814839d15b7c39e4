// Package template implements a Mustache-style template engine.
// It supports {{ name }} interpolation, {{# }} / {{^ }} sections,
// {{! }} comments, raw output and delimiter changes.
package template

// Node is the interface for all template AST nodes.
type Node interface {
	Pos() Position
	node() // marker method to restrict implementation
}

// nodeBase provides common Position handling for all nodes.
type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// TextNode represents literal text (passed through unchanged).
type TextNode struct {
	nodeBase
	Text string
}

// VariableNode represents a {{ path }} or {{{ path }}} reference.
type VariableNode struct {
	nodeBase
	Path   string
	Escape bool // HTML-escape the output
}

// Helper names the block-helper spelling of a section.
type Helper string

// Helper constants. HelperNone is a plain Mustache section.
const (
	HelperNone   Helper = ""
	HelperIf     Helper = "if"
	HelperUnless Helper = "unless"
	HelperEach   Helper = "each"
	HelperWith   Helper = "with"
)

func parseHelper(s string) (Helper, bool) {
	switch h := Helper(s); h {
	case HelperIf, HelperUnless, HelperEach, HelperWith:
		return h, true
	}
	return HelperNone, false
}

// SectionNode represents a {{# path }} ... {{/ path }} block, or its
// negated {{^ path }} form. The root of every template is a SectionNode
// with an empty Path.
type SectionNode struct {
	nodeBase
	Path    string
	Negated bool
	Helper  Helper
	Body    []Node
}

// name is the identifier a closing tag has to repeat.
func (s *SectionNode) name() string {
	if s.Helper != HelperNone {
		return string(s.Helper)
	}
	return s.Path
}

// CommentNode represents a {{! text }} comment. It never renders.
type CommentNode struct {
	nodeBase
	Text string
}
