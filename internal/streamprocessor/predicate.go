package streamprocessor

import (
	"regexp"
	"strings"

	"vigil/internal/domain"
	dErrors "vigil/pkg/domainerrors"
)

// predicateNode is a compiled boolean-expression tree evaluated directly
// against a domain.Event, avoiding a round trip through a SQL engine for
// the real-time path (spec §4.4: "a compiled predicate set derived from
// its transpiled query"). The tokenizer/recursive-descent shape mirrors
// internal/transpiler's condition parser, applied here to the WHERE clause
// the transpiler emits rather than to Sigma condition text.
type predicateNode interface {
	Eval(e *domain.Event) bool
}

type notPredicate struct{ operand predicateNode }
type andPredicate struct{ left, right predicateNode }
type orPredicate struct{ left, right predicateNode }

func (n notPredicate) Eval(e *domain.Event) bool { return !n.operand.Eval(e) }
func (n andPredicate) Eval(e *domain.Event) bool { return n.left.Eval(e) && n.right.Eval(e) }
func (n orPredicate) Eval(e *domain.Event) bool  { return n.left.Eval(e) || n.right.Eval(e) }

// fieldPredicate is a leaf: one field/operator/value comparison extracted
// from the transpiled WHERE clause.
type fieldPredicate struct {
	field string
	op    string // "=", "LIKE", "~"
	value string
}

func (p fieldPredicate) Eval(e *domain.Event) bool {
	actual := fieldValue(e, p.field)
	switch p.op {
	case "=":
		return actual == p.value
	case "LIKE":
		return evalLike(actual, p.value)
	case "~":
		re, err := regexp.Compile(p.value)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	default:
		return false
	}
}

func fieldValue(e *domain.Event, field string) string {
	if field == "raw_event" {
		return e.RawEvent
	}
	v, _ := e.Field(field)
	return v
}

// evalLike evaluates a SQL LIKE pattern restricted to the forms the
// transpiler produces: "%x%" (contains), "x%" (prefix), "%x" (suffix), and
// a bare literal (equality).
func evalLike(actual, pattern string) bool {
	hasPrefix := strings.HasPrefix(pattern, "%")
	hasSuffix := strings.HasSuffix(pattern, "%")
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "%"), "%")
	if hasSuffix && len(pattern) == 1 {
		core = strings.TrimPrefix(pattern, "%")
	}
	switch {
	case hasPrefix && hasSuffix && len(pattern) >= 2:
		return strings.Contains(actual, core)
	case hasSuffix:
		return strings.HasPrefix(actual, core)
	case hasPrefix:
		return strings.HasSuffix(actual, core)
	default:
		return actual == core
	}
}

var atomPattern = regexp.MustCompile(`^(\w+)\s*(=|LIKE|~)\s*'(.*)'$`)

// compilePredicate parses the transpiler's WHERE clause — e.g.
// "((CommandLine LIKE '%wget%') AND (raw_event LIKE '%http%'))" — into a
// predicateNode tree. It understands exactly the subset of SQL
// internal/transpiler generates: parenthesized atoms combined by AND/OR/NOT.
func compilePredicate(clause string) (predicateNode, error) {
	tokens, err := tokenizePredicate(clause)
	if err != nil {
		return nil, err
	}
	p := &predicateParser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unexpected trailing tokens in predicate clause %q", clause)
	}
	return node, nil
}

var predicateDelimiter = regexp.MustCompile(`\(|\)|\bAND\b|\bOR\b|\bNOT\b`)

// tokenizePredicate splits on parens and boolean keywords while keeping
// each atom ("field OP 'value'") intact as a single token, since atoms
// contain spaces the transpiler's simple whitespace tokenizer can't handle.
func tokenizePredicate(clause string) ([]string, error) {
	var tokens []string
	rest := clause
	for {
		loc := predicateDelimiter.FindStringIndex(rest)
		if loc == nil {
			if atom := strings.TrimSpace(rest); atom != "" {
				tokens = append(tokens, atom)
			}
			break
		}
		if atom := strings.TrimSpace(rest[:loc[0]]); atom != "" {
			tokens = append(tokens, atom)
		}
		tokens = append(tokens, strings.TrimSpace(rest[loc[0]:loc[1]]))
		rest = rest[loc[1]:]
	}
	if len(tokens) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty predicate clause")
	}
	return tokens, nil
}

type predicateParser struct {
	tokens []string
	pos    int
}

func (p *predicateParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *predicateParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *predicateParser) parseOr() (predicateNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orPredicate{left: left, right: right}
	}
	return left, nil
}

func (p *predicateParser) parseAnd() (predicateNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andPredicate{left: left, right: right}
	}
	return left, nil
}

func (p *predicateParser) parseNot() (predicateNode, error) {
	if strings.EqualFold(p.peek(), "NOT") {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notPredicate{operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *predicateParser) parseAtom() (predicateNode, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unexpected end of predicate clause")
	case tok == "(":
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "missing closing parenthesis in predicate clause")
		}
		return node, nil
	default:
		m := atomPattern.FindStringSubmatch(tok)
		if m == nil {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unrecognized predicate atom %q", tok)
		}
		return fieldPredicate{field: m[1], op: m[2], value: strings.ReplaceAll(m[3], "''", "'")}, nil
	}
}
