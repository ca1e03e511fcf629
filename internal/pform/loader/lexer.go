package loader

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tkEOF tokKind = iota
	tkIdent
	tkSysIdent
	tkNumber
	tkReal
	tkString
	tkOp
)

func (k tokKind) String() string {
	switch k {
	case tkIdent:
		return "identifier"
	case tkSysIdent:
		return "system identifier"
	case tkNumber:
		return "number"
	case tkReal:
		return "real"
	case tkString:
		return "string"
	case tkOp:
		return "operator"
	}
	return "end of input"
}

type token struct {
	kind tokKind
	text string
	line int
}

func (t token) String() string {
	if t.kind == tkEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// Longest match first.
var operators = []string{
	"<<<=", ">>>=",
	"<<<", ">>>", "===", "!==", "==?", "!=?", "<<=", ">>=",
	"->", "+:", "-:", "::", "**", "==", "!=", "<=", ">=", "&&", "||",
	"<<", ">>", "~&", "~|", "~^", "^~", "+=", "-=", "*=", "/=", "%=",
	"&=", "|=", "^=", "++", "--", ".*",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "=",
	"?", ":", ";", ",", ".", "(", ")", "[", "]", "{", "}", "#", "@", "'", "$",
}

type lexer struct {
	src  string
	pos  int
	line int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isBaseChar(c byte) bool {
	switch c {
	case 'b', 'B', 'o', 'O', 'd', 'D', 'h', 'H':
		return true
	}
	return false
}

func isBasedDigit(c byte) bool {
	switch {
	case isDigit(c), c == '_', c == '?':
		return true
	case c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		return true
	case c == 'x', c == 'X', c == 'z', c == 'Z':
		return true
	}
	return false
}

// tokenize splits src into tokens. Line numbers start at firstLine.
func tokenize(src string, firstLine int) ([]token, error) {
	lx := &lexer{src: src, line: firstLine}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tkEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) peekByte(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case c == '/' && lx.peekByte(1) == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '/' && lx.peekByte(1) == '*':
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				lx.pos = len(lx.src)
				return
			}
			lx.line += strings.Count(lx.src[lx.pos:lx.pos+2+end], "\n")
			lx.pos += end + 4
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		return token{kind: tkEOF, line: lx.line}, nil
	}
	start := lx.pos
	c := lx.src[lx.pos]
	switch {
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tkIdent, text: lx.src[start:lx.pos], line: lx.line}, nil
	case c == '\\':
		for lx.pos < len(lx.src) && !strings.ContainsRune(" \t\r\n", rune(lx.src[lx.pos])) {
			lx.pos++
		}
		return token{kind: tkIdent, text: lx.src[start+1 : lx.pos], line: lx.line}, nil
	case c == '$' && isIdentStart(lx.peekByte(1)):
		lx.pos++
		for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tkSysIdent, text: lx.src[start:lx.pos], line: lx.line}, nil
	case isDigit(c):
		return lx.number()
	case c == '\'':
		if tok, ok := lx.unsizedNumber(); ok {
			return tok, nil
		}
	case c == '"':
		return lx.str()
	}
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return token{kind: tkOp, text: op, line: lx.line}, nil
		}
	}
	return token{}, fmt.Errorf("line %d: unexpected character %q", lx.line, c)
}

func (lx *lexer) number() (token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
		lx.pos++
	}
	isReal := false
	if lx.peekByte(0) == '.' && isDigit(lx.peekByte(1)) {
		isReal = true
		lx.pos++
		for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
			lx.pos++
		}
	}
	if e := lx.peekByte(0); e == 'e' || e == 'E' {
		n := 1
		if s := lx.peekByte(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(lx.peekByte(n)) {
			isReal = true
			lx.pos += n
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		}
	}
	if isReal {
		return token{kind: tkReal, text: lx.src[start:lx.pos], line: lx.line}, nil
	}
	if lx.peekByte(0) == '\'' {
		off := 1
		if s := lx.peekByte(1); s == 's' || s == 'S' {
			off = 2
		}
		if isBaseChar(lx.peekByte(off)) {
			lx.pos += off + 1
			lx.basedDigits()
		}
	}
	return token{kind: tkNumber, text: lx.src[start:lx.pos], line: lx.line}, nil
}

func (lx *lexer) basedDigits() {
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		lx.pos++
	}
	for lx.pos < len(lx.src) && isBasedDigit(lx.src[lx.pos]) {
		lx.pos++
	}
}

// unsizedNumber handles 'hFF, 'sd3 and the fills '0 '1 'x 'z.
func (lx *lexer) unsizedNumber() (token, bool) {
	start := lx.pos
	off := 1
	if s := lx.peekByte(1); s == 's' || s == 'S' {
		off = 2
	}
	if isBaseChar(lx.peekByte(off)) && isBasedDigit(lx.peekByte(off+1)) {
		lx.pos += off + 1
		lx.basedDigits()
		return token{kind: tkNumber, text: lx.src[start:lx.pos], line: lx.line}, true
	}
	switch lx.peekByte(1) {
	case '0', '1', 'x', 'X', 'z', 'Z':
		if !isIdentChar(lx.peekByte(2)) {
			lx.pos += 2
			return token{kind: tkNumber, text: lx.src[start:lx.pos], line: lx.line}, true
		}
	}
	return token{}, false
}

func (lx *lexer) str() (token, error) {
	var sb strings.Builder
	lx.pos++
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '"':
			lx.pos++
			return token{kind: tkString, text: sb.String(), line: lx.line}, nil
		case '\\':
			lx.pos++
			switch lx.peekByte(0) {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(lx.peekByte(0))
			}
		case '\n':
			return token{}, fmt.Errorf("line %d: unterminated string", lx.line)
		default:
			sb.WriteByte(c)
		}
		lx.pos++
	}
	return token{}, fmt.Errorf("line %d: unterminated string", lx.line)
}
