// Package compiler is the minimal source-to-bytecode front end that
// drives value.Code objects into the interp engine (spec.md §1 treats
// the lexer/parser/compiler as an external collaborator; SPEC_FULL.md
// §10 supplies exactly enough of one). It is intentionally stdlib-only.
package compiler

import (
	"fmt"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNewline
	tokIndent
	tokDedent
	tokName
	tokInt
	tokFloat
	tokString
	tokFString
	tokOp
	tokKeyword
)

type token struct {
	kind tokKind
	lit  string
	line int
}

var keywords = map[string]bool{
	"def": true, "return": true, "if": true, "elif": true, "else": true,
	"while": true, "for": true, "in": true, "break": true, "continue": true,
	"pass": true, "import": true, "try": true, "except": true, "finally": true,
	"raise": true, "assert": true, "await": true, "async": true,
	"True": true, "False": true, "None": true, "and": true, "or": true,
	"not": true, "global": true,
}

// lexer turns Python-like indentation-sensitive source into a flat
// token stream, synthesizing INDENT/DEDENT/NEWLINE the way the
// reference tokenizer does, so the parser never has to track columns.
type lexer struct {
	src    []rune
	pos    int
	line   int
	indent []int
	toks   []token
	atBOL  bool
	parens int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1, indent: []int{0}, atBOL: true}
}

func lex(src string) ([]token, error) {
	l := newLexer(src)
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.toks, nil
}

func (l *lexer) run() error {
	for {
		if l.atBOL && l.parens == 0 {
			if err := l.handleIndent(); err != nil {
				return err
			}
		}
		l.skipBlankAndComment()
		if l.pos >= len(l.src) {
			break
		}
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.pos++
			if l.parens == 0 {
				l.emit(tokNewline, "\n")
				l.atBOL = true
			}
			l.line++
		case c == ' ' || c == '\t':
			l.pos++
		case isDigit(c):
			l.lexNumber()
		case (c == 'f' || c == 'F') && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '"' || l.src[l.pos+1] == '\''):
			l.pos++
			if err := l.lexString(true); err != nil {
				return err
			}
		case isNameStart(c):
			l.lexName()
		case c == '"' || c == '\'':
			if err := l.lexString(false); err != nil {
				return err
			}
		default:
			l.lexOp()
		}
	}
	l.emit(tokNewline, "\n")
	for len(l.indent) > 1 {
		l.indent = l.indent[:len(l.indent)-1]
		l.emit(tokDedent, "")
	}
	l.emit(tokEOF, "")
	return nil
}

func (l *lexer) handleIndent() error {
	start := l.pos
	col := 0
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		col++
		l.pos++
	}
	if l.pos >= len(l.src) || l.src[l.pos] == '\n' || l.src[l.pos] == '#' {
		l.pos = start
		l.atBOL = false
		return nil
	}
	l.atBOL = false
	cur := l.indent[len(l.indent)-1]
	switch {
	case col > cur:
		l.indent = append(l.indent, col)
		l.emit(tokIndent, "")
	case col < cur:
		for len(l.indent) > 1 && l.indent[len(l.indent)-1] > col {
			l.indent = l.indent[:len(l.indent)-1]
			l.emit(tokDedent, "")
		}
		if l.indent[len(l.indent)-1] != col {
			return fmt.Errorf("line %d: inconsistent indentation", l.line)
		}
	}
	return nil
}

func (l *lexer) skipBlankAndComment() {
	for l.pos < len(l.src) && l.src[l.pos] == '#' {
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
	}
}

func (l *lexer) emit(k tokKind, lit string) {
	l.toks = append(l.toks, token{kind: k, lit: lit, line: l.line})
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }
func isNameStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isNameCont(c rune) bool { return isNameStart(c) || isDigit(c) }

func (l *lexer) lexNumber() {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	lit := strings.ReplaceAll(string(l.src[start:l.pos]), "_", "")
	if isFloat {
		l.emit(tokFloat, lit)
	} else {
		l.emit(tokInt, lit)
	}
}

func (l *lexer) lexName() {
	start := l.pos
	for l.pos < len(l.src) && isNameCont(l.src[l.pos]) {
		l.pos++
	}
	lit := string(l.src[start:l.pos])
	if keywords[lit] {
		l.emit(tokKeyword, lit)
	} else {
		l.emit(tokName, lit)
	}
}

func (l *lexer) lexString(fstring bool) error {
	quote := l.src[l.pos]
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return fmt.Errorf("line %d: unterminated string literal", l.line)
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			break
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			sb.WriteRune(c)
			sb.WriteRune(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		if c == '\n' {
			return fmt.Errorf("line %d: unterminated string literal", l.line)
		}
		sb.WriteRune(c)
		l.pos++
	}
	if fstring {
		l.emit(tokFString, sb.String())
	} else {
		l.emit(tokString, sb.String())
	}
	return nil
}

var threeCharOps = []string{"**=", "//=", ">>=", "<<="}
var twoCharOps = []string{"**", "//", "==", "!=", "<=", ">=", "->", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^="}

func (l *lexer) lexOp() {
	rest := string(l.src[l.pos:min(l.pos+3, len(l.src))])
	for _, op := range threeCharOps {
		if strings.HasPrefix(rest, op) {
			l.emit(tokOp, op)
			l.pos += 3
			return
		}
	}
	rest2 := string(l.src[l.pos:min(l.pos+2, len(l.src))])
	for _, op := range twoCharOps {
		if strings.HasPrefix(rest2, op) {
			l.emit(tokOp, op)
			l.pos += 2
			return
		}
	}
	c := l.src[l.pos]
	if strings.ContainsRune("([{", c) {
		l.parens++
	} else if strings.ContainsRune(")]}", c) {
		l.parens--
	}
	l.emit(tokOp, string(c))
	l.pos++
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
