package template

import (
	"strings"
)

// frame is an open section on the parser stack.
type frame struct {
	section *SectionNode
}

// Parser builds a node tree from a token stream.
// Open sections are tracked on an explicit stack, so nesting depth does not
// grow the Go call stack.
type Parser struct {
	lex      *Lexer
	maxDepth int
}

// NewParser creates a parser reading from lex.
// maxDepth bounds section nesting; 0 means unlimited.
func NewParser(lex *Lexer, maxDepth int) *Parser {
	return &Parser{lex: lex, maxDepth: maxDepth}
}

// Parse consumes the whole token stream and returns the root section.
func (p *Parser) Parse() (*SectionNode, error) {
	root := &SectionNode{nodeBase: nodeBase{pos: Position{Name: p.lex.name, Line: 1, Column: 1}}}
	stack := []frame{{section: root}}

	for {
		tok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}

		top := stack[len(stack)-1].section

		switch tok.Kind {
		case TokenLiteral:
			top.Body = append(top.Body, &TextNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Text})

		case TokenVariable, TokenRawVariable:
			top.Body = append(top.Body, &VariableNode{
				nodeBase: nodeBase{pos: tok.Pos},
				Path:     tok.Text,
				Escape:   tok.Kind == TokenVariable,
			})

		case TokenComment:
			top.Body = append(top.Body, &CommentNode{nodeBase: nodeBase{pos: tok.Pos}, Text: tok.Text})

		case TokenSectionOpen, TokenInvertedOpen:
			if p.maxDepth > 0 && len(stack) > p.maxDepth {
				return nil, NewErrorf(CodeNestingTooDeep, tok.Pos, "sections nested deeper than %d", p.maxDepth)
			}
			section, err := openSection(tok)
			if err != nil {
				return nil, err
			}
			stack = append(stack, frame{section: section})

		case TokenSectionClose:
			if len(stack) == 1 {
				return nil, NewErrorf(CodeMismatchedSection, tok.Pos, "closing %q without an open section", tok.Text)
			}
			if !closes(top, tok.Text) {
				return nil, NewErrorf(CodeMismatchedSection, tok.Pos,
					"section %q opened at %s is closed by %q", displayName(top), top.pos, tok.Text)
			}
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1].section
			parent.Body = append(parent.Body, top)

		case TokenEOF:
			if len(stack) > 1 {
				return nil, NewErrorf(CodeUnclosedSection, top.pos, "unclosed section %q", displayName(top))
			}
			return root, nil

		default:
			return nil, NewErrorf(CodeMalformedDirective, tok.Pos, "unexpected %s token", tok.Kind)
		}
	}
}

// openSection builds the section for an open token. A two-word name is the
// helper spelling, e.g. "if user.admin".
func openSection(tok Token) (*SectionNode, error) {
	section := &SectionNode{
		nodeBase: nodeBase{pos: tok.Pos},
		Negated:  tok.Kind == TokenInvertedOpen,
	}

	fields := strings.Fields(tok.Text)
	switch len(fields) {
	case 1:
		section.Path = fields[0]
	case 2:
		helper, ok := parseHelper(fields[0])
		if !ok {
			return nil, NewErrorf(CodeMalformedDirective, tok.Pos, "unknown section helper %q", fields[0])
		}
		section.Helper = helper
		section.Path = fields[1]
		section.Negated = section.Negated != (helper == HelperUnless)
	default:
		return nil, NewErrorf(CodeMalformedDirective, tok.Pos, "malformed section %q", tok.Text)
	}
	return section, nil
}

// closes reports whether a close tag with the given text ends s.
func closes(s *SectionNode, text string) bool {
	fields := strings.Fields(text)
	switch len(fields) {
	case 1:
		return fields[0] == s.name()
	case 2:
		return s.Helper != HelperNone && fields[0] == string(s.Helper) && fields[1] == s.Path
	default:
		return false
	}
}

func displayName(s *SectionNode) string {
	if s.Helper != HelperNone {
		return string(s.Helper) + " " + s.Path
	}
	return s.Path
}
