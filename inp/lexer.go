// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/cpmech/gosl/io"
)

// SyntaxError reports malformed source text
type SyntaxError struct {
	File string
	Pos  Pos
	Msg  string
}

// Error returns the message with its location
func (o *SyntaxError) Error() string {
	return io.Sf("%s:%d:%d: syntax error: %s", o.File, o.Pos.Line, o.Pos.Col, o.Msg)
}

// tokKind defines the kind of tokens
type tokKind int

const (
	tEOF     tokKind = iota
	tNewline         // end of statement: '\n' or ';' outside brackets
	tIdent           // identifier
	tNumber          // number
	tString          // quoted string
	tOp              // operator or delimiter
)

// token holds one lexical token
type token struct {
	kind tokKind
	text string
	num  float64
	pos  Pos
}

func (t token) is(op string) bool { return t.kind == tOp && t.text == op }

func (t token) describe() string {
	switch t.kind {
	case tEOF:
		return "end of file"
	case tNewline:
		return "end of line"
	case tString:
		return io.Sf("string %q", t.text)
	}
	return io.Sf("%q", t.text)
}

// lexer splits the source text into tokens
type lexer struct {
	file   string
	src    string
	pos    int
	line   int
	col    int
	depth  int   // nesting of (, [ and <
	angles []Pos // positions of open <
	tokens []token
}

// lex returns all tokens of src; the last token is always tEOF
func lex(file, src string) (tokens []token, err error) {
	o := &lexer{file: file, src: src, line: 1, col: 1}
	for {
		err = o.next()
		if err != nil {
			return
		}
		if n := len(o.tokens); n > 0 && o.tokens[n-1].kind == tEOF {
			return o.tokens, nil
		}
	}
}

func (o *lexer) errorf(p Pos, msg string, prm ...interface{}) error {
	return &SyntaxError{o.file, p, io.Sf(msg, prm...)}
}

func (o *lexer) peek() rune {
	if o.pos >= len(o.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(o.src[o.pos:])
	return r
}

func (o *lexer) advance() rune {
	r, s := utf8.DecodeRuneInString(o.src[o.pos:])
	o.pos += s
	if r == '\n' {
		o.line++
		o.col = 1
	} else {
		o.col++
	}
	return r
}

func (o *lexer) emit(kind tokKind, text string, p Pos) {
	o.tokens = append(o.tokens, token{kind: kind, text: text, pos: p})
}

func (o *lexer) next() (err error) {

	// skip blanks and comments
	for {
		r := o.peek()
		if r == '#' {
			for o.peek() != '\n' && o.peek() != -1 {
				o.advance()
			}
			continue
		}
		if r == '\\' { // line continuation
			o.advance()
			if o.peek() == '\r' {
				o.advance()
			}
			if o.peek() == '\n' {
				o.advance()
			}
			continue
		}
		if r == ' ' || r == '\t' || r == '\r' || (r == '\n' && o.depth > 0) {
			o.advance()
			continue
		}
		break
	}

	p := Pos{o.line, o.col}
	r := o.peek()
	switch {

	case r == -1:
		o.emit(tEOF, "", p)

	case r == '\n' || r == ';':
		o.advance()
		if n := len(o.tokens); n > 0 && o.tokens[n-1].kind != tNewline {
			o.emit(tNewline, "\n", p)
		}

	case unicode.IsLetter(r) || r == '_':
		start := o.pos
		for c := o.peek(); c != -1 && (unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'); c = o.peek() {
			o.advance()
		}
		o.emit(tIdent, o.src[start:o.pos], p)

	case unicode.IsDigit(r) || (r == '.' && o.pos+1 < len(o.src) && isDigit(o.src[o.pos+1])):
		return o.number(p)

	case r == '\'' || r == '"':
		quote := o.advance()
		start := o.pos
		for c := o.peek(); c != quote; c = o.peek() {
			if c == -1 || c == '\n' {
				return o.errorf(p, "unterminated string")
			}
			o.advance()
		}
		text := o.src[start:o.pos]
		o.advance()
		o.emit(tString, text, p)

	default:
		return o.operator(p)
	}
	return
}

func (o *lexer) number(p Pos) error {
	start := o.pos
	for c := o.peek(); c != -1 && (unicode.IsDigit(c) || c == '.'); c = o.peek() {
		o.advance()
	}
	if c := o.peek(); c == 'e' || c == 'E' {
		o.advance()
		if c = o.peek(); c == '+' || c == '-' {
			o.advance()
		}
		for c = o.peek(); c != -1 && unicode.IsDigit(c); c = o.peek() {
			o.advance()
		}
	}
	text := o.src[start:o.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return o.errorf(p, "malformed number %q", text)
	}
	o.tokens = append(o.tokens, token{kind: tNumber, text: text, num: v, pos: p})
	return nil
}

func (o *lexer) operator(p Pos) error {
	r := o.advance()
	two := ""
	if c := o.peek(); c != -1 {
		two = string(r) + string(c)
	}
	switch two {
	case "::", ":=", "**":
		o.advance()
		o.emit(tOp, two, p)
		return nil
	case ">_":
		o.advance()
		o.depth--
		if n := len(o.angles); n > 0 {
			o.angles = o.angles[:n-1]
		}
		o.emit(tOp, two, p)
		return nil
	}
	switch r {
	case '(', '[':
		o.depth++
	case '<':
		o.depth++
		o.angles = append(o.angles, p)
	case ')', ']':
		o.depth--
	case '>':
		if n := len(o.angles); n > 0 {
			return o.errorf(p, "unmatched '<' at %d:%d; integrals end with '>_' followed by the domain name", o.angles[n-1].Line, o.angles[n-1].Col)
		}
	}
	switch r {
	case '+', '-', '*', '/', '^', '(', ')', '[', ']', ',', '=', '<', '>':
		o.emit(tOp, string(r), p)
		return nil
	}
	return o.errorf(p, "unexpected character %q", r)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
