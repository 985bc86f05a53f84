// Package condition implements the sandboxed boolean-expression compiler
// (spec §4.2). Conditions are compiled once per signal when a Spec is
// loaded and cached by signal id; evaluation never touches ambient
// scope — only the bound EnrichedBar fields are visible.
//
// This package deliberately hand-rolls its own lexer/parser/evaluator
// instead of reusing a host-language eval or a third-party expression
// engine (see DESIGN.md, C2): the sandboxing invariant needs to be
// structural, not policy enforced by someone else's VM.
package condition

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// allowedCharset is the mandatory character allow-list (spec §4.2).
func allowedCharset(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == ' ' || r == '(' || r == ')' || r == '.' || r == ',':
		return true
	case r == '!' || r == '<' || r == '>' || r == '=' || r == '&' || r == '|':
		return true
	case r == '+' || r == '-' || r == '*' || r == '/' || r == '%':
		return true
	}
	return false
}

// denyList is the mandatory identifier deny-list (spec §4.2).
var denyList = map[string]bool{
	"constructor": true,
	"prototype":   true,
	"process":     true,
	"global":      true,
	"require":     true,
	"import":      true,
	"function":    true,
	"new":         true,
}

// forbiddenTokens are rejected even though their individual characters
// might otherwise be allowed (semicolons, quotes, backslash, brackets).
const forbiddenTokenChars = ";\"'`\\[]{}"

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("condition: lex error: "+format, args...)
}

func (l *lexer) run() ([]token, error) {
	for _, r := range l.src {
		if strings.ContainsRune(forbiddenTokenChars, r) {
			return nil, l.errorf("forbidden character %q", r)
		}
		if !allowedCharset(r) {
			return nil, l.errorf("character outside allowed set: %q", r)
		}
	}

	s := l.src
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c == '(':
			l.tokens = append(l.tokens, token{tokLParen, "("})
			i++
		case c == ')':
			l.tokens = append(l.tokens, token{tokRParen, ")"})
			i++
		case c == '+' || c == '-' || c == '*' || c == '%':
			l.tokens = append(l.tokens, token{tokOp, string(c)})
			i++
		case c == '/':
			l.tokens = append(l.tokens, token{tokOp, "/"})
			i++
		case c == '<' || c == '>' || c == '!' || c == '=':
			op := string(c)
			i++
			if i < n && s[i] == '=' {
				op += "="
				i++
			} else if c == '=' {
				return nil, l.errorf("bare '=' not allowed, use '=='")
			}
			l.tokens = append(l.tokens, token{tokOp, op})
		case c == '&':
			if i+1 < n && s[i+1] == '&' {
				l.tokens = append(l.tokens, token{tokOp, "&&"})
				i += 2
				continue
			}
			return nil, l.errorf("bare '&' not allowed")
		case c == '|':
			if i+1 < n && s[i+1] == '|' {
				l.tokens = append(l.tokens, token{tokOp, "||"})
				i += 2
				continue
			}
			return nil, l.errorf("bare '|' not allowed")
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < n && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			l.tokens = append(l.tokens, token{tokNumber, s[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(s[j]) {
				j++
			}
			ident := s[i:j]
			l.tokens = append(l.tokens, token{tokIdent, ident})
			i = j
		default:
			return nil, l.errorf("unexpected character %q", c)
		}
	}
	l.tokens = append(l.tokens, token{tokEOF, ""})
	return l.tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

// checkDenyList scans raw tokens for deny-listed identifiers. Matching
// is case-sensitive against the lower-cased identifier, consistent with
// the exact token names in spec §4.2.
func checkDenyList(tokens []token) error {
	for _, t := range tokens {
		if t.kind != tokIdent {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(strings.ToLower(t.text), "data."))
		for _, part := range strings.Split(name, ".") {
			if denyList[part] {
				return fmt.Errorf("condition: identifier %q is deny-listed", t.text)
			}
		}
	}
	return nil
}
