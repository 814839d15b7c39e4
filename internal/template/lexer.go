package template

import (
	"strings"
	"unicode/utf8"
)

// Lexer tokenizes a template string one token at a time.
// It is forward-only: once Close is called it cannot be restarted.
type Lexer struct {
	input  string
	name   string
	delims Delimiters
	state  LexState

	pos    int  // current byte offset in input
	line   int  // current line number (1-based)
	col    int  // current column number (1-based)
	lastCR bool // previous rune was '\r', so a following '\n' is the same break

	// directive being scanned
	kind     TokenKind
	start    Position // position of the open delimiter
	rawClose bool     // a triple brace expects "}" before the close delimiter

	err    error
	closed bool
}

// NewLexer creates a new lexer for the given input.
// A zero Delimiters value selects the default "{{" / "}}" pair.
func NewLexer(input, name string, delims Delimiters) *Lexer {
	if delims.IsZero() {
		delims = DefaultDelimiters
	}
	return &Lexer{
		input:  input,
		name:   name,
		delims: delims,
		state:  StateValue,
		line:   1,
		col:    1,
	}
}

// SetLineOffset shifts reported lines by n, for input that starts partway
// into a file. Call it before the first Next.
func (l *Lexer) SetLineOffset(n int) {
	l.line = 1 + n
}

// State returns the active lexical state.
func (l *Lexer) State() LexState { return l.state }

// Delimiters returns the delimiter pair currently in effect.
func (l *Lexer) Delimiters() Delimiters { return l.delims }

// Close stops the lexer. Later calls to Next return ErrLexerClosed.
func (l *Lexer) Close() {
	l.closed = true
}

// Next returns the next token. After the input is exhausted it keeps
// returning an EOF token. A lexing error is sticky.
func (l *Lexer) Next() (Token, error) {
	if l.closed {
		return Token{}, ErrLexerClosed
	}
	if l.err != nil {
		return Token{}, l.err
	}

	for {
		var (
			tok  Token
			emit bool
			err  error
		)
		switch l.state {
		case StateValue:
			tok, emit = l.lexValue()
		case StateOperator1:
			err = l.lexOperator()
		case StateOperator2:
			l.lexBlanks()
		case StateVariable:
			tok, err = l.lexDirective()
			emit = err == nil
		case StateComment:
			tok, err = l.lexComment()
			emit = err == nil
		case StateClosure:
			err = l.lexClosure()
		}
		if err != nil {
			l.err = err
			return Token{}, err
		}
		if emit {
			return tok, nil
		}
	}
}

// Tokenize converts the remaining input into a slice of tokens ending in EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// lexValue scans literal text up to the next open delimiter or EOF.
func (l *Lexer) lexValue() (Token, bool) {
	startPos := l.position()
	start := l.pos

	for r := l.peek(); !IsEOF(r); r = l.peek() {
		if l.matchString(l.delims.Open) {
			break
		}
		l.advance()
	}

	text := l.input[start:l.pos]

	if !IsEOF(l.peek()) {
		// Sitting on an open delimiter
		l.start = l.position()
		l.skip(len(l.delims.Open))
		l.state = StateOperator1
	}

	if text != "" {
		return Token{Kind: TokenLiteral, Text: text, Pos: startPos}, true
	}
	if l.state == StateValue {
		return Token{Kind: TokenEOF, Pos: l.position()}, true
	}
	return Token{}, false
}

// lexOperator classifies the directive by the rune after the open delimiter.
func (l *Lexer) lexOperator() error {
	l.rawClose = false
	l.kind = TokenVariable
	l.state = StateOperator2

	switch l.peek() {
	case '#':
		l.kind = TokenSectionOpen
	case '^':
		l.kind = TokenInvertedOpen
	case '/':
		l.kind = TokenSectionClose
	case '!':
		l.kind = TokenComment
	case '{':
		l.kind = TokenRawVariable
		l.rawClose = true
	case '&':
		l.kind = TokenRawVariable
	case '=':
		l.kind = TokenClosure
		l.state = StateClosure
	case '>', '<', '$':
		return NewErrorf(CodeMalformedDirective, l.start, "unsupported directive %q", string(l.peek()))
	default:
		// Plain variable; nothing to consume
		return nil
	}

	l.advance()
	return nil
}

// lexBlanks skips whitespace between the operator and the identifier.
func (l *Lexer) lexBlanks() {
	for IsWhitespace(l.peek()) {
		l.advance()
	}
	if l.kind == TokenComment {
		l.state = StateComment
	} else {
		l.state = StateVariable
	}
}

// lexDirective scans a variable or section name up to the close marker.
func (l *Lexer) lexDirective() (Token, error) {
	closer := l.delims.Close
	if l.rawClose {
		closer = "}" + closer
	}

	body, err := l.scanUntil(closer)
	if err != nil {
		return Token{}, err
	}
	text := strings.TrimSpace(body)

	if err := l.validateName(text); err != nil {
		return Token{}, err
	}

	tok := Token{Kind: l.kind, Text: text, Pos: l.start}
	l.rawClose = false
	l.state = StateValue
	return tok, nil
}

// lexComment scans comment text up to the close marker.
func (l *Lexer) lexComment() (Token, error) {
	body, err := l.scanUntil(l.delims.Close)
	if err != nil {
		return Token{}, err
	}

	tok := Token{Kind: TokenComment, Text: strings.TrimSpace(body), Pos: l.start}
	l.state = StateValue
	return tok, nil
}

// lexClosure scans a delimiter change such as {{=<% %>=}} and installs
// the new pair for the rest of the input.
func (l *Lexer) lexClosure() error {
	body, err := l.scanUntil("=" + l.delims.Close)
	if err != nil {
		return err
	}

	fields := strings.Fields(body)
	if len(fields) != 2 {
		return NewErrorf(CodeMalformedDirective, l.start,
			"delimiter change needs exactly two markers, got %q", strings.TrimSpace(body))
	}
	for _, f := range fields {
		if strings.Contains(f, "=") {
			return NewErrorf(CodeMalformedDirective, l.start, "delimiter %q must not contain '='", f)
		}
	}

	l.delims = Delimiters{Open: fields[0], Close: fields[1]}
	l.state = StateValue
	return nil
}

// scanUntil consumes input up to and including marker and returns the text
// before it. Hitting EOF first is an unterminated directive.
func (l *Lexer) scanUntil(marker string) (string, error) {
	start := l.pos
	for !l.matchString(marker) {
		if IsEOF(l.peek()) {
			return "", NewErrorf(CodeUnexpectedEOF, l.start, "unclosed directive: missing %q", marker)
		}
		l.advance()
	}
	body := l.input[start:l.pos]
	l.skip(len(marker))
	return body, nil
}

// validateName checks the identifier of a variable or section directive.
// Section open and close tags may carry a helper word before the path.
func (l *Lexer) validateName(text string) error {
	if text == "" {
		return NewErrorf(CodeMalformedDirective, l.start, "empty %s directive", kindNoun(l.kind))
	}

	fields := strings.Fields(text)
	maxFields := 1
	if l.kind == TokenSectionOpen || l.kind == TokenSectionClose {
		maxFields = 2
	}
	if len(fields) > maxFields {
		return NewErrorf(CodeMalformedDirective, l.start, "unexpected content in %s directive: %q", kindNoun(l.kind), text)
	}

	for _, f := range fields {
		for _, r := range f {
			if !IsIdentRune(r) {
				return NewErrorf(CodeMalformedDirective, l.start, "invalid character %q in %q", r, text)
			}
		}
	}
	return nil
}

func kindNoun(k TokenKind) string {
	switch k {
	case TokenSectionOpen, TokenInvertedOpen:
		return "section"
	case TokenSectionClose:
		return "section close"
	default:
		return "variable"
	}
}

// Helper methods

// peek returns the current rune without advancing, or EOF.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return EOF
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	switch {
	case r == '\n' && l.lastCR:
		l.lastCR = false
	case IsLineEnd(r):
		l.line++
		l.col = 1
		l.lastCR = r == '\r'
	default:
		l.col++
		l.lastCR = false
	}
}

// skip advances over n bytes of input.
func (l *Lexer) skip(n int) {
	end := l.pos + n
	for l.pos < end && l.pos < len(l.input) {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Name: l.name, Line: l.line, Column: l.col}
}
