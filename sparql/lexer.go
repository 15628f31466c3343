//
// Copyright 2021 Johns Hopkins University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName   // prefix:local, or prefix: alone
	tokBlank   // _:label
	tokVar     // ?name or $name
	tokLang    // @en
	tokInteger // 42
	tokDecimal // 4.2
	tokDouble  // 4.2e1
	tokString
	tokWord  // keywords, function names, 'a', true, false
	tokPunct // operators and delimiters
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of query"
	case tokIRI:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokBlank:
		return "blank node"
	case tokVar:
		return "variable"
	case tokLang:
		return "language tag"
	case tokInteger, tokDecimal, tokDouble:
		return "number"
	case tokString:
		return "string"
	case tokWord:
		return "keyword"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	// decoded text: the IRI without brackets, the string without quotes, the variable without '?'
	text string
	line int
	col  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return t.kind.String()
	case tokString:
		return strconv.Quote(t.text)
	case tokIRI:
		return "<" + t.text + ">"
	case tokVar:
		return "?" + t.text
	default:
		return "'" + t.text + "'"
	}
}

// is reports whether the token is the keyword (case-insensitive) or punctuation
func (t token) is(text string) bool {
	switch t.kind {
	case tokWord:
		return strings.EqualFold(t.text, text)
	case tokPunct:
		return t.text == text
	}
	return false
}

// multi-character punctuation, longest first
var punctuation = []string{"^^", "&&", "||", "!=", "<=", ">=", "{", "}", "(", ")", "[", "]", ".", ";", ",", "*", "/", "|", "^", "?", "+", "-", "!", "=", "<", ">"}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src, line: 1}
	var tokens []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
		if t.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: l.line, Column: l.col + 1, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r := l.peek()
		switch {
		case r == '#':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := token{line: l.line, col: l.col}
	emit := func(kind tokenKind, text string) (token, error) {
		start.kind, start.text = kind, text
		return start, nil
	}

	if l.pos >= len(l.src) {
		return emit(tokEOF, "")
	}

	r := l.peek()
	switch {
	case r == '<':
		if iri, ok := l.scanIRI(); ok {
			return emit(tokIRI, iri)
		}
	case r == '?' || r == '$':
		if isNameStart(l.peekAt(1)) || unicode.IsDigit(l.peekAt(1)) {
			l.advance()
			return emit(tokVar, l.scanWhile(isVarChar))
		}
	case r == '"' || r == '\'':
		s, err := l.scanString()
		if err != nil {
			return token{}, err
		}
		return emit(tokString, s)
	case r == '@':
		l.advance()
		tag := l.scanWhile(func(r rune) bool { return r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) })
		if tag == "" {
			return token{}, l.errorf("empty language tag")
		}
		return emit(tokLang, tag)
	case r == '_' && l.peekAt(1) == ':':
		l.advance()
		l.advance()
		label := l.scanLocal()
		if label == "" {
			return token{}, l.errorf("empty blank node label")
		}
		return emit(tokBlank, label)
	case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(l.peekAt(1))):
		return l.scanNumber(start)
	case r == ':' || isNameStart(r):
		word := l.scanWhile(isPrefixChar)
		if trimmed := strings.TrimRight(word, "."); len(trimmed) < len(word) {
			l.pos -= len(word) - len(trimmed)
			l.col -= len(word) - len(trimmed)
			word = trimmed
		}
		if l.peek() == ':' {
			l.advance()
			return emit(tokPName, word+":"+l.scanLocal())
		}
		if word == "" {
			break
		}
		return emit(tokWord, word)
	}

	for _, p := range punctuation {
		if strings.HasPrefix(l.src[l.pos:], p) {
			for range p {
				l.advance()
			}
			return emit(tokPunct, p)
		}
	}

	return token{}, l.errorf("unexpected character %q", r)
}

func (l *lexer) scanWhile(accept func(rune) bool) string {
	begin := l.pos
	for l.pos < len(l.src) && accept(l.peek()) {
		l.advance()
	}
	return l.src[begin:l.pos]
}

// scanIRI consumes <...> if the text up to the next '>' is a valid IRI reference; otherwise nothing is consumed and
// '<' is treated as an operator
func (l *lexer) scanIRI() (string, bool) {
	end := strings.IndexByte(l.src[l.pos+1:], '>')
	if end < 0 {
		return "", false
	}
	body := l.src[l.pos+1 : l.pos+1+end]
	if strings.ContainsAny(body, "<\"{}|^`\\ \t\r\n") {
		return "", false
	}
	for i := 0; i < end+2; {
		_, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.advance()
		i += size
	}
	return body, true
}

// scanLocal consumes the local part of a prefixed name or a blank node label; a trailing '.' is not part of the name
func (l *lexer) scanLocal() string {
	begin := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if r == '.' {
			if next := l.peekAt(1); isNameChar(next) || next == ':' {
				l.advance()
				continue
			}
			break
		}
		if r == '\\' && l.peekAt(1) != -1 {
			l.advance()
			l.advance()
			continue
		}
		if !(isNameChar(r) || r == ':' || r == '%') {
			break
		}
		l.advance()
	}
	return unescapeLocal(l.src[begin:l.pos])
}

func unescapeLocal(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func (l *lexer) scanNumber(start token) (token, error) {
	begin := l.pos
	kind := tokInteger
	l.scanWhile(isDigit)
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		kind = tokDecimal
		l.advance()
		l.scanWhile(isDigit)
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		offset := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			offset = 2
		}
		if isDigit(l.peekAt(offset)) {
			kind = tokDouble
			for i := 0; i < offset; i++ {
				l.advance()
			}
			l.scanWhile(isDigit)
		}
	}
	start.kind, start.text = kind, l.src[begin:l.pos]
	return start, nil
}

func (l *lexer) scanString() (string, error) {
	quote := l.advance()
	long := false
	if l.peek() == quote && l.peekAt(1) == quote {
		l.advance()
		l.advance()
		long = true
	} else if l.peek() == quote {
		l.advance()
		return "", nil
	}

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf("unterminated string")
		}
		r := l.advance()
		switch {
		case r == quote && !long:
			return sb.String(), nil
		case r == quote && long && l.peek() == quote && l.peekAt(1) == quote && l.peekAt(2) != quote:
			l.advance()
			l.advance()
			return sb.String(), nil
		case r == '\n' && !long:
			return "", l.errorf("newline in string")
		case r == '\\':
			decoded, err := l.scanEscape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(decoded)
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) scanEscape() (rune, error) {
	if l.pos >= len(l.src) {
		return 0, l.errorf("unterminated escape")
	}
	switch r := l.advance(); r {
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case '"', '\'', '\\':
		return r, nil
	case 'u', 'U':
		n := 4
		if r == 'U' {
			n = 8
		}
		if l.pos+n > len(l.src) {
			return 0, l.errorf("short unicode escape")
		}
		hex := l.src[l.pos : l.pos+n]
		code, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, l.errorf("bad unicode escape \\%c%s", r, hex)
		}
		for i := 0; i < n; i++ {
			l.advance()
		}
		return rune(code), nil
	default:
		return 0, l.errorf("unknown escape \\%c", r)
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) || r == '·'
}

func isVarChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || r == '·'
}

func isPrefixChar(r rune) bool {
	return isNameChar(r) || r == '.'
}
