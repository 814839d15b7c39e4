package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := NewLexer(input, "test.mustache", Delimiters{}).Tokenize()
	require.NoError(t, err, "unexpected error")
	return tokens
}

func TestLexer_PlainText(t *testing.T) {
	input := "Hello, world\n  indented\ttext"
	tokens := tokenize(t, input)

	require.Len(t, tokens, 2, "expected 2 tokens") // LITERAL + EOF

	assert.Equal(t, TokenLiteral, tokens[0].Kind)
	assert.Equal(t, input, tokens[0].Text, "literal whitespace must be preserved")
	assert.Equal(t, TokenEOF, tokens[1].Kind)
}

func TestLexer_Empty(t *testing.T) {
	tokens := tokenize(t, "")
	require.Len(t, tokens, 1)
	assert.Equal(t, TokenEOF, tokens[0].Kind)
}

func TestLexer_DirectiveKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  TokenKind
		text  string
	}{
		{"variable", "{{ name }}", TokenVariable, "name"},
		{"variable no spaces", "{{name}}", TokenVariable, "name"},
		{"dotted variable", "{{ user.name }}", TokenVariable, "user.name"},
		{"implicit iterator", "{{.}}", TokenVariable, "."},
		{"triple brace", "{{{ html }}}", TokenRawVariable, "html"},
		{"ampersand", "{{& html }}", TokenRawVariable, "html"},
		{"section", "{{# items }}", TokenSectionOpen, "items"},
		{"helper section", "{{#if  admin }}", TokenSectionOpen, "if  admin"},
		{"inverted", "{{^empty}}", TokenInvertedOpen, "empty"},
		{"close", "{{/ items }}", TokenSectionClose, "items"},
		{"comment", "{{! any text { here } }}", TokenComment, "any text { here }"},
		{"loop metadata", "{{@index}}", TokenVariable, "@index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenize(t, tt.input)
			require.Len(t, tokens, 2)
			assert.Equal(t, tt.kind, tokens[0].Kind)
			assert.Equal(t, tt.text, tokens[0].Text)
			assert.Equal(t, Position{Name: "test.mustache", Line: 1, Column: 1}, tokens[0].Pos)
		})
	}
}

func TestLexer_MixedStream(t *testing.T) {
	input := "Hi {{name}}!{{#items}}<{{.}}>{{/items}}"
	tokens := tokenize(t, input)

	expected := []struct {
		kind TokenKind
		text string
	}{
		{TokenLiteral, "Hi "},
		{TokenVariable, "name"},
		{TokenLiteral, "!"},
		{TokenSectionOpen, "items"},
		{TokenLiteral, "<"},
		{TokenVariable, "."},
		{TokenLiteral, ">"},
		{TokenSectionClose, "items"},
		{TokenEOF, ""},
	}

	require.Len(t, tokens, len(expected), "wrong number of tokens")
	for i, exp := range expected {
		assert.Equal(t, exp.kind, tokens[i].Kind, "token[%d] kind", i)
		assert.Equal(t, exp.text, tokens[i].Text, "token[%d] text", i)
	}
}

func TestLexer_Positions(t *testing.T) {
	input := "line one\nab {{x}}\r\n\r\n  {{#s}}\r{{/s}}"
	tokens := tokenize(t, input)

	positions := map[string]Position{}
	for _, tok := range tokens {
		if tok.Kind != TokenLiteral && tok.Kind != TokenEOF {
			positions[tok.Kind.String()+":"+tok.Text] = tok.Pos
		}
	}

	assert.Equal(t, Position{Name: "test.mustache", Line: 2, Column: 4}, positions["VARIABLE:x"])
	assert.Equal(t, Position{Name: "test.mustache", Line: 4, Column: 3}, positions["SECTION_OPEN:s"], "CRLF counts as one line break")
	assert.Equal(t, Position{Name: "test.mustache", Line: 5, Column: 1}, positions["SECTION_CLOSE:s"], "lone CR is a line break")
}

func TestLexer_EOFIsIdempotent(t *testing.T) {
	lex := NewLexer("abc", "", Delimiters{})

	tok, err := lex.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenLiteral, tok.Kind)

	for i := 0; i < 3; i++ {
		tok, err = lex.Next()
		require.NoError(t, err)
		assert.Equal(t, TokenEOF, tok.Kind)
	}
}

func TestLexer_ClosedIsNotRestartable(t *testing.T) {
	lex := NewLexer("abc {{x}}", "", Delimiters{})
	_, err := lex.Next()
	require.NoError(t, err)

	lex.Close()
	_, err = lex.Next()
	assert.ErrorIs(t, err, ErrLexerClosed)
}

func TestLexer_DelimiterChange(t *testing.T) {
	input := "{{a}} {{=<% %>=}}<%b%> {{c}} <%={{ }}=%>{{d}}"
	tokens := tokenize(t, input)

	var got []string
	for _, tok := range tokens {
		if tok.Kind == TokenVariable {
			got = append(got, tok.Text)
		}
		assert.NotEqual(t, TokenClosure, tok.Kind, "delimiter changes are not emitted")
	}
	assert.Equal(t, []string{"a", "b", "d"}, got)

	// {{c}} is literal text while <% %> is active
	assert.Contains(t, tokens[3].Text+tokens[4].Text, "{{c}}")
}

func TestLexer_CustomInitialDelimiters(t *testing.T) {
	tokens, err := NewLexer("[[ name ]] {{ keep }}", "", Delimiters{Open: "[[", Close: "]]"}).Tokenize()
	require.NoError(t, err)

	require.Len(t, tokens, 3)
	assert.Equal(t, TokenVariable, tokens[0].Kind)
	assert.Equal(t, " {{ keep }}", tokens[1].Text)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  Code
		pos   Position
	}{
		{"unclosed variable", "abc {{ name", CodeUnexpectedEOF, Position{Line: 1, Column: 5}},
		{"unclosed triple", "{{{ name }}", CodeUnexpectedEOF, Position{Line: 1, Column: 1}},
		{"unclosed comment", "x\n{{! never", CodeUnexpectedEOF, Position{Line: 2, Column: 1}},
		{"unclosed delimiter change", "{{=<% %>", CodeUnexpectedEOF, Position{Line: 1, Column: 1}},
		{"empty variable", "{{ }}", CodeMalformedDirective, Position{Line: 1, Column: 1}},
		{"empty section", "a{{#}}", CodeMalformedDirective, Position{Line: 1, Column: 2}},
		{"spaces in variable", "{{ a b }}", CodeMalformedDirective, Position{Line: 1, Column: 1}},
		{"bad character", "{{ a+b }}", CodeMalformedDirective, Position{Line: 1, Column: 1}},
		{"partial", "{{> header }}", CodeMalformedDirective, Position{Line: 1, Column: 1}},
		{"one delimiter", "{{=<%=}}", CodeMalformedDirective, Position{Line: 1, Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input, "", Delimiters{}).Tokenize()
			require.Error(t, err)

			var tErr *Error
			require.True(t, errors.As(err, &tErr), "expected *Error, got %T", err)
			assert.Equal(t, tt.code, tErr.Code)
			assert.Equal(t, tt.pos, tErr.Pos)
		})
	}
}

func TestLexer_ErrorIsSticky(t *testing.T) {
	lex := NewLexer("{{ open", "", Delimiters{})
	_, err1 := lex.Next()
	_, err2 := lex.Next()
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
}

func TestLexer_StateReturnsToValue(t *testing.T) {
	lex := NewLexer("a{{b}}c", "", Delimiters{})
	assert.Equal(t, StateValue, lex.State())

	for {
		tok, err := lex.Next()
		require.NoError(t, err)
		if tok.Kind == TokenLiteral {
			// a literal may stop on an open delimiter
			continue
		}
		assert.Equal(t, StateValue, lex.State(), "after %s", tok.Kind)
		if tok.Kind == TokenEOF {
			break
		}
	}
}
