package reqs

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Environment maps marker variables (python_version, sys_platform, ...) to
// their values. Variables that aren't present evaluate as empty strings which
// matches how "extra" behaves when no extra was requested.
type Environment map[string]string

// Marker is a parsed environment marker expression.
type Marker struct {
	raw  string
	expr markerExpr
}

// ParseMarker parses an environment marker like
// `python_version >= "3.6" and sys_platform != "win32"`.
func ParseMarker(raw string) (*Marker, error) {
	lex := &markerLexer{input: raw}
	tokens, err := lex.run()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to tokenize marker %q", raw)
	}

	parser := &markerParser{tokens: tokens}
	expr, err := parser.parseOr()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse marker %q", raw)
	}

	if parser.peek().kind != tokEOF {
		return nil, eris.Errorf("unexpected %q at end of marker %q", parser.peek().text, raw)
	}

	return &Marker{raw: raw, expr: expr}, nil
}

func (m *Marker) String() string {
	return m.raw
}

// Evaluate resolves the marker against the given environment.
func (m *Marker) Evaluate(env Environment) (bool, error) {
	return m.expr.eval(env)
}

type markerExpr interface {
	eval(env Environment) (bool, error)
}

type boolExpr struct {
	isOr        bool
	left, right markerExpr
}

func (e boolExpr) eval(env Environment) (bool, error) {
	left, err := e.left.eval(env)
	if err != nil {
		return false, err
	}

	if e.isOr == left {
		// short circuit: true or ..., false and ...
		return left, nil
	}

	return e.right.eval(env)
}

type comparison struct {
	op       string
	lhs, rhs markerValue
}

type markerValue struct {
	literal bool
	text    string
}

func (v markerValue) resolve(env Environment) string {
	if v.literal {
		return v.text
	}

	return env[v.text]
}

func (c comparison) eval(env Environment) (bool, error) {
	lhs := c.lhs.resolve(env)
	rhs := c.rhs.resolve(env)

	switch c.op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	case "~=":
		constraint, err := semver.NewConstraint("~" + rhs)
		if err != nil {
			return false, eris.Wrapf(err, "invalid version %q in marker", rhs)
		}

		version, err := semver.NewVersion(lhs)
		if err != nil {
			return false, eris.Wrapf(err, "invalid version %q in marker", lhs)
		}

		return constraint.Check(version), nil
	}

	// Version-shaped operands are compared as versions (3.10 > 3.6), anything
	// else lexically.
	cmp := 0
	lver, lerr := semver.NewVersion(lhs)
	rver, rerr := semver.NewVersion(rhs)
	if lerr == nil && rerr == nil {
		cmp = lver.Compare(rver)
	} else {
		cmp = strings.Compare(lhs, rhs)
	}

	switch c.op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}

	return false, eris.Errorf("unsupported operator %q in marker", c.op)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

type markerLexer struct {
	input string
	pos   int
}

func (l *markerLexer) run() ([]token, error) {
	tokens := make([]token, 0)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func isIdentChar(chr byte) bool {
	return chr == '_' || chr == '.' ||
		(chr >= 'a' && chr <= 'z') || (chr >= 'A' && chr <= 'Z') ||
		(chr >= '0' && chr <= '9')
}

func (l *markerLexer) next() (token, error) {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}

	if l.pos >= len(l.input) {
		return token{kind: tokEOF}, nil
	}

	cur := l.input[l.pos]
	switch cur {
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "("}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")"}, nil
	case '\'', '"':
		end := strings.IndexByte(l.input[l.pos+1:], cur)
		if end < 0 {
			return token{}, eris.Errorf("unterminated string at offset %d", l.pos)
		}

		text := l.input[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return token{kind: tokString, text: text}, nil
	}

	for _, op := range []string{"===", "==", "!=", "~=", "<=", ">=", "<", ">"} {
		if strings.HasPrefix(l.input[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokOp, text: op}, nil
		}
	}

	if isIdentChar(cur) {
		start := l.pos
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}

		return token{kind: tokIdent, text: l.input[start:l.pos]}, nil
	}

	return token{}, eris.Errorf("unexpected character %q at offset %d", cur, l.pos)
}

type markerParser struct {
	tokens []token
	pos    int
}

func (p *markerParser) peek() token {
	return p.tokens[p.pos]
}

func (p *markerParser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

func (p *markerParser) parseOr() (markerExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokIdent && p.peek().text == "or" {
		p.advance()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = boolExpr{isOr: true, left: left, right: right}
	}

	return left, nil
}

func (p *markerParser) parseAnd() (markerExpr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokIdent && p.peek().text == "and" {
		p.advance()

		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}

		left = boolExpr{isOr: false, left: left, right: right}
	}

	return left, nil
}

func (p *markerParser) parseAtom() (markerExpr, error) {
	if p.peek().kind == tokLParen {
		p.advance()

		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if tok := p.advance(); tok.kind != tokRParen {
			return nil, eris.Errorf("expected closing parenthesis, got %q", tok.text)
		}

		return expr, nil
	}

	return p.parseComparison()
}

func (p *markerParser) parseComparison() (markerExpr, error) {
	lhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	var op string
	tok := p.advance()
	switch {
	case tok.kind == tokOp:
		op = tok.text
		if op == "===" {
			op = "=="
		}
	case tok.kind == tokIdent && tok.text == "in":
		op = "in"
	case tok.kind == tokIdent && tok.text == "not":
		if next := p.advance(); next.kind != tokIdent || next.text != "in" {
			return nil, eris.Errorf("expected \"in\" after \"not\", got %q", next.text)
		}
		op = "not in"
	default:
		return nil, eris.Errorf("expected comparison operator, got %q", tok.text)
	}

	rhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return comparison{op: op, lhs: lhs, rhs: rhs}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	tok := p.advance()
	switch tok.kind {
	case tokString:
		return markerValue{literal: true, text: tok.text}, nil
	case tokIdent:
		return markerValue{literal: false, text: tok.text}, nil
	default:
		return markerValue{}, eris.Errorf("expected a variable or string, got %q", tok.text)
	}
}
