package template

// TokenKind identifies the type of token.
type TokenKind int

// TokenKind constants for template token types.
const (
	TokenLiteral        TokenKind = iota // Literal text
	TokenVariable                        // {{ name }}
	TokenRawVariable                     // {{{ name }}} or {{& name }}
	TokenSectionOpen                     // {{# name }}
	TokenInvertedOpen                    // {{^ name }}
	TokenSectionClose                    // {{/ name }}
	TokenComment                         // {{! text }}
	TokenClosure                         // {{=<% %>=}}, consumed by the lexer
	TokenEOF                             // End of input
)

func (k TokenKind) String() string {
	switch k {
	case TokenLiteral:
		return "LITERAL"
	case TokenVariable:
		return "VARIABLE"
	case TokenRawVariable:
		return "RAW_VARIABLE"
	case TokenSectionOpen:
		return "SECTION_OPEN"
	case TokenInvertedOpen:
		return "INVERTED_OPEN"
	case TokenSectionClose:
		return "SECTION_CLOSE"
	case TokenComment:
		return "COMMENT"
	case TokenClosure:
		return "CLOSURE"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

// LexState is the active state of the lexer's state machine.
type LexState int

// Lexical states.
const (
	StateValue     LexState = iota // reading literal text
	StateOperator1                 // just past an open delimiter
	StateOperator2                 // past the operator, skipping blanks
	StateVariable                  // reading a variable or section name
	StateComment                   // reading comment text
	StateClosure                   // reading a delimiter change
)

func (s LexState) String() string {
	switch s {
	case StateValue:
		return "value"
	case StateOperator1:
		return "operator1"
	case StateOperator2:
		return "operator2"
	case StateVariable:
		return "variable"
	case StateComment:
		return "comment"
	case StateClosure:
		return "closure"
	default:
		return "unknown"
	}
}

// Delimiters is the open/close marker pair bounding a directive.
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters are the Mustache markers.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// IsZero reports whether neither marker is set.
func (d Delimiters) IsZero() bool {
	return d.Open == "" && d.Close == ""
}
