package template

import "unicode"

// EOF is the rune returned by the lexer once the source is exhausted.
// It is negative so it can never collide with a decoded code point.
const EOF rune = -1

// IsEOF reports whether r signals the end of input.
// Any negative rune is treated as a "no more input" signal.
func IsEOF(r rune) bool {
	return r < 0
}

// IsLineEnd reports whether r is a carriage return or line feed.
func IsLineEnd(r rune) bool {
	return r == '\r' || r == '\n'
}

// IsDigit reports whether r is an ASCII decimal digit.
func IsDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// IsLetter reports whether r is a letter.
func IsLetter(r rune) bool {
	if r < 0x80 {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
	return unicode.IsLetter(r)
}

// IsWhitespace reports whether r is whitespace, line ends included.
func IsWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	if r < 0x80 {
		return false
	}
	return unicode.IsSpace(r)
}

// IsIdentRune reports whether r may appear in a variable path.
func IsIdentRune(r rune) bool {
	switch r {
	case '_', '-', '.', '@', '$':
		return true
	}
	return IsLetter(r) || IsDigit(r)
}
