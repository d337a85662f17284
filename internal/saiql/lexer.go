package saiql

import (
	"strings"
	"unicode"
)

// Lexer tokenizes a SAIQL query string. Both surface syntaxes share the
// same token stream; the parsers decide what a token may mean.
type Lexer struct {
	input  []rune
	pos    int
	peeked *Token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	tok, err := l.next()
	if err != nil {
		return Token{}, err
	}
	l.peeked = &tok
	return tok, nil
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (Token, error) {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok, nil
	}
	return l.next()
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return l.tok(TokEOF, "", l.pos), nil
	}

	ch := l.input[l.pos]
	pos := l.pos

	// -- comment runs to end of line.
	if ch == '-' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '-' {
		l.skipLineComment()
		return l.next()
	}

	if l.pos+1 < len(l.input) {
		if kind, ok := doubleOps[string(l.input[l.pos:l.pos+2])]; ok {
			lit := string(l.input[l.pos : l.pos+2])
			l.pos += 2
			return l.tok(kind, lit, pos), nil
		}
	}

	if ch == '=' {
		if lit, ok := l.joinSymbolAt(l.pos); ok {
			l.pos += 2
			return l.tok(TokJoinSym, lit, pos), nil
		}
		l.pos++
		return l.tok(TokEq, "=", pos), nil
	}

	if kind, ok := singleOps[ch]; ok {
		l.pos++
		return l.tok(kind, string(ch), pos), nil
	}

	switch {
	case ch == '<':
		l.pos++
		return l.tok(TokLt, "<", pos), nil
	case ch == '>':
		l.pos++
		return l.tok(TokGt, ">", pos), nil
	case ch == '\'' || ch == '"':
		return l.readString(pos, ch)
	case ch == '!':
		return Token{}, l.errorf(pos, "unexpected '!', did you mean '!='?")
	case unicode.IsDigit(ch):
		return l.readNumber(pos)
	case isIdentStart(ch):
		return l.readIdent(pos)
	default:
		return Token{}, l.errorf(pos, "unexpected character %q", ch)
	}
}

// joinSymbolAt reports whether input[at:] starts a join symbol like =J.
// The letter must not run into an identifier, so `status=Left` stays a
// comparison while `=L[a+b]` is a left join.
func (l *Lexer) joinSymbolAt(at int) (string, bool) {
	if at+1 >= len(l.input) {
		return "", false
	}
	lit, ok := joinSymbols[l.input[at+1]]
	if !ok {
		return "", false
	}
	if at+2 < len(l.input) && isIdentCont(l.input[at+2]) {
		return "", false
	}
	return lit, true
}

func (l *Lexer) readString(pos int, quote rune) (Token, error) {
	l.pos++ // skip opening quote
	var lit []rune
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			lit = append(lit, l.input[l.pos+1])
			l.pos += 2
			continue
		}
		if ch == quote {
			// Doubled quote is an escaped quote: 'it''s'.
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == quote {
				lit = append(lit, quote)
				l.pos += 2
				continue
			}
			l.pos++ // skip closing quote
			return l.tok(TokString, string(lit), pos), nil
		}
		lit = append(lit, ch)
		l.pos++
	}
	return Token{}, l.errorf(pos, "unterminated string literal")
}

func (l *Lexer) readNumber(pos int) (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && unicode.IsDigit(l.input[l.pos+1]) {
		l.pos++ // consume .
		for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return l.tok(TokNumber, string(l.input[start:l.pos]), pos), nil
}

func (l *Lexer) readIdent(pos int) (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentCont(l.input[l.pos]) {
		l.pos++
	}
	lit := string(l.input[start:l.pos])
	kind := TokIdent
	if kw, ok := keywords[strings.ToLower(lit)]; ok {
		kind = kw
	}
	return l.tok(kind, lit, pos), nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) tok(kind TokenKind, lit string, pos int) Token {
	line, col := l.lineCol(pos)
	return Token{Kind: kind, Lit: lit, Pos: pos, Line: line, Col: col}
}

// lineCol converts a byte offset into 1-based line and column numbers.
// Query strings are short, so the rescan is not worth caching.
func (l *Lexer) lineCol(pos int) (int, int) {
	line, col := 1, 1
	for i := 0; i < pos && i < len(l.input); i++ {
		if l.input[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (l *Lexer) errorf(pos int, format string, args ...any) error {
	line, col := l.lineCol(pos)
	return ErrorAt(CodeLex, pos, line, col, format, args...)
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentCont(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
