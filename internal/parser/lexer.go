package parser

import (
	"fmt"
	"strings"
)

type tokKind uint8

const (
	tEOF tokKind = iota
	tIdent
	tNumber
	tString
	tPunct
	tKeyword
)

type token struct {
	kind tokKind
	text string
	num  float64
	line int
	// newlineBefore supports a minimal automatic-semicolon-insertion rule.
	newlineBefore bool
}

var keywords = map[string]bool{
	"let": true, "const": true, "var": true, "function": true,
	"return": true, "if": true, "else": true, "while": true, "for": true,
	"in": true, "of": true, "break": true, "continue": true, "throw": true,
	"try": true, "catch": true, "finally": true, "true": true, "false": true,
	"null": true, "undefined": true, "typeof": true, "void": true,
	"new": true, "await": true, "async": true, "debugger": true,
}

type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer { return &lexer{src: src, line: 1} }

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) byteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) skipSpaceAndComments() bool {
	sawNewline := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			sawNewline = true
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.byteAt(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.byteAt(1) == '*':
			l.pos += 2
			for l.pos < len(l.src) && !(l.src[l.pos] == '*' && l.byteAt(1) == '/') {
				if l.src[l.pos] == '\n' {
					sawNewline = true
					l.line++
				}
				l.pos++
			}
			l.pos += 2
		default:
			return sawNewline
		}
	}
	return sawNewline
}

func (l *lexer) next() (token, error) {
	nl := l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tEOF, line: l.line, newlineBefore: nl}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	line := l.line

	if isIdentStart(c) {
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		k := tIdent
		if keywords[text] {
			k = tKeyword
		}
		return token{kind: k, text: text, line: line, newlineBefore: nl}, nil
	}

	if isDigit(c) || (c == '.' && isDigit(l.byteAt(1))) {
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		if l.peekByte() == 'e' || l.peekByte() == 'E' {
			l.pos++
			if l.peekByte() == '+' || l.peekByte() == '-' {
				l.pos++
			}
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
		text := l.src[start:l.pos]
		var f float64
		_, err := fmt.Sscanf(text, "%g", &f)
		if err != nil {
			return token{}, fmt.Errorf("line %d: invalid number literal %q", line, text)
		}
		return token{kind: tNumber, text: text, num: f, line: line, newlineBefore: nl}, nil
	}

	if c == '"' || c == '\'' {
		quote := c
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.src) && l.src[l.pos] != quote {
			ch := l.src[l.pos]
			if ch == '\\' && l.pos+1 < len(l.src) {
				l.pos++
				esc := l.src[l.pos]
				switch esc {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case 'r':
					sb.WriteByte('\r')
				case '\\':
					sb.WriteByte('\\')
				case '\'':
					sb.WriteByte('\'')
				case '"':
					sb.WriteByte('"')
				default:
					sb.WriteByte(esc)
				}
				l.pos++
				continue
			}
			if ch == '\n' {
				return token{}, fmt.Errorf("line %d: unterminated string literal", line)
			}
			sb.WriteByte(ch)
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("line %d: unterminated string literal", line)
		}
		l.pos++ // closing quote
		return token{kind: tString, text: sb.String(), line: line, newlineBefore: nl}, nil
	}

	// Punctuators, longest match first.
	three := l.srcSlice(3)
	if three == "===" || three == "!==" || three == "**=" || three == "<<=" ||
		three == ">>=" || three == "..." || three == "&&=" || three == "||=" ||
		three == "??=" || three == ">>>" {
		l.pos += 3
		return token{kind: tPunct, text: three, line: line, newlineBefore: nl}, nil
	}
	two := l.srcSlice(2)
	switch two {
	case "==", "!=", "<=", ">=", "&&", "||", "??", "=>", "++", "--",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**":
		l.pos += 2
		return token{kind: tPunct, text: two, line: line, newlineBefore: nl}, nil
	}
	one := string(c)
	switch c {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '~', '&', '|', '^',
		'(', ')', '{', '}', '[', ']', ',', ';', ':', '.', '?':
		l.pos++
		return token{kind: tPunct, text: one, line: line, newlineBefore: nl}, nil
	}
	return token{}, fmt.Errorf("line %d: unexpected character %q", line, c)
}

func (l *lexer) srcSlice(n int) string {
	end := l.pos + n
	if end > len(l.src) {
		end = len(l.src)
	}
	return l.src[l.pos:end]
}
