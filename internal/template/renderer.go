package template

import (
	"sort"
	"strings"
)

// htmlEscaper replaces the five markup-significant characters.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML returns s with &, <, >, " and ' replaced by entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// renderer walks a node tree. It holds all per-call state, so a tree can be
// rendered by many renderers at once.
type renderer struct {
	out   *strings.Builder
	scope *scope
}

func render(root *SectionNode, ctx Map) string {
	r := &renderer{out: &strings.Builder{}, scope: newScope(ctx)}
	r.renderNodes(root.Body)
	return r.out.String()
}

func (r *renderer) renderNodes(nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			r.out.WriteString(n.Text)
		case *VariableNode:
			r.renderVariable(n)
		case *SectionNode:
			r.renderSection(n)
		case *CommentNode:
			// never rendered
		}
	}
}

func (r *renderer) renderVariable(n *VariableNode) {
	v, ok := r.scope.lookup(n.Path)
	if !ok {
		return
	}
	s := v.String()
	if n.Escape {
		s = EscapeHTML(s)
	}
	r.out.WriteString(s)
}

func (r *renderer) renderSection(s *SectionNode) {
	v, ok := r.scope.lookup(s.Path)
	truthy := ok && v.Truth()

	if s.Negated {
		if !truthy {
			r.renderNodes(s.Body)
		}
		return
	}
	if !truthy {
		return
	}

	switch s.Helper {
	case HelperIf:
		r.renderNodes(s.Body)
	case HelperWith:
		r.renderWith(v, s.Body, nil)
	case HelperEach:
		switch t := v.(type) {
		case List:
			r.renderList(t, s.Body)
		case Map:
			r.renderMap(t, s.Body)
		default:
			r.renderWith(v, s.Body, nil)
		}
	default:
		switch t := v.(type) {
		case List:
			r.renderList(t, s.Body)
		case Map:
			r.renderWith(t, s.Body, nil)
		default:
			// Truthy scalar: render once, scope unchanged
			r.renderNodes(s.Body)
		}
	}
}

func (r *renderer) renderWith(v Value, body []Node, loop *loopMeta) {
	r.scope.push(v, loop)
	r.renderNodes(body)
	r.scope.pop()
}

func (r *renderer) renderList(items List, body []Node) {
	for i, item := range items {
		r.renderWith(item, body, &loopMeta{index: i, count: len(items)})
	}
}

// renderMap iterates map values in key order so output is deterministic.
func (r *renderer) renderMap(m Map, body []Node) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		r.renderWith(m[k], body, &loopMeta{index: i, count: len(keys), key: k, byKey: true})
	}
}
