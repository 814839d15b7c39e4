package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChars_Predicates(t *testing.T) {
	tests := []struct {
		r          rune
		eof        bool
		lineEnd    bool
		digit      bool
		letter     bool
		whitespace bool
		ident      bool
	}{
		{r: EOF, eof: true},
		{r: -42, eof: true},
		{r: '\n', lineEnd: true, whitespace: true},
		{r: '\r', lineEnd: true, whitespace: true},
		{r: ' ', whitespace: true},
		{r: '\t', whitespace: true},
		{r: '7', digit: true, ident: true},
		{r: 'q', letter: true, ident: true},
		{r: 'Z', letter: true, ident: true},
		{r: 'é', letter: true, ident: true},
		{r: ' ', whitespace: true},
		{r: '_', ident: true},
		{r: '.', ident: true},
		{r: '@', ident: true},
		{r: '+'},
		{r: '{'},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			assert.Equal(t, tt.eof, IsEOF(tt.r), "IsEOF")
			assert.Equal(t, tt.lineEnd, IsLineEnd(tt.r), "IsLineEnd")
			assert.Equal(t, tt.digit, IsDigit(tt.r), "IsDigit")
			assert.Equal(t, tt.letter, IsLetter(tt.r), "IsLetter")
			assert.Equal(t, tt.whitespace, IsWhitespace(tt.r), "IsWhitespace")
			assert.Equal(t, tt.ident, IsIdentRune(tt.r), "IsIdentRune")
		})
	}
}
