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
	"github.com/knakk/rdf"
	"spahqler/model"
	"strconv"
	"strings"
)

// prefixes every query may use without declaring them
var defaultPrefixes = map[string]string{
	"rdf":  model.RdfNsUri,
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":  model.XsdNsUri,
	"owl":  "http://www.w3.org/2002/07/owl#",
}

var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true, "AVG": true, "SAMPLE": true, "GROUP_CONCAT": true,
}

type parser struct {
	tokens   []token
	pos      int
	base     string
	prefixes map[string]string
	anon     int

	// aggregates are only legal in the projection, HAVING and ORDER BY
	aggregatesAllowed bool
	aggregates        []*aggregateExpr
}

// Parses the text of a SPARQL query.  A malformed or unsupported query answers a QueryExecutionError wrapping a
// *ParseError, which locates the problem.
func Parse(text string) (*Query, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, parseFailure(err)
	}
	p := &parser{tokens: tokens, prefixes: map[string]string{}}
	for k, v := range defaultPrefixes {
		p.prefixes[k] = v
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, parseFailure(err)
	}
	return q, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// accept consumes the next token if it is the keyword or punctuation
func (p *parser) accept(text string) bool {
	if p.peek().is(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		return p.errorf("expected '%s' but found %s", text, p.peek())
	}
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	t := p.peek()
	return &ParseError{Line: t.line, Column: t.col + 1, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseQuery() (*Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}

	q := &Query{Limit: -1}
	var err error
	switch t := p.peek(); {
	case t.is("SELECT"):
		err = p.parseSelect(q)
	case t.is("CONSTRUCT"):
		err = p.parseConstruct(q)
	case t.is("DESCRIBE"):
		err = p.parseDescribe(q)
	case t.is("ASK"):
		err = p.parseAsk(q)
	default:
		return nil, p.errorf("expected SELECT, CONSTRUCT, DESCRIBE or ASK but found %s", t)
	}
	if err != nil {
		return nil, err
	}

	if p.accept("VALUES") {
		if q.Values, err = p.parseDataBlock(); err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf("unexpected %s after the end of the query", t)
	}
	q.Base = p.base
	q.aggregates = p.aggregates
	return q, nil
}

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.accept("BASE"):
			t := p.advance()
			if t.kind != tokIRI {
				return p.errorf("expected an IRI after BASE but found %s", t)
			}
			p.base = resolveIRI(p.base, t.text)
		case p.accept("PREFIX"):
			name := p.advance()
			if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
				return p.errorf("expected a prefix name after PREFIX but found %s", name)
			}
			iri := p.advance()
			if iri.kind != tokIRI {
				return p.errorf("expected an IRI after PREFIX %s but found %s", name.text, iri)
			}
			p.prefixes[strings.TrimSuffix(name.text, ":")] = resolveIRI(p.base, iri.text)
		default:
			return nil
		}
	}
}

func (p *parser) parseSelect(q *Query) error {
	p.advance()
	q.Form = Select
	if p.accept("DISTINCT") {
		q.Distinct = true
	} else if p.accept("REDUCED") {
		q.Reduced = true
	}

	if p.accept("*") {
		q.Star = true
	} else {
		p.aggregatesAllowed = true
		for {
			t := p.peek()
			if t.kind == tokVar {
				p.advance()
				q.Projection = append(q.Projection, Projection{Var: t.text})
				continue
			}
			if !t.is("(") {
				break
			}
			p.advance()
			e, err := p.parseExpression()
			if err != nil {
				return err
			}
			if err := p.expect("AS"); err != nil {
				return err
			}
			v := p.advance()
			if v.kind != tokVar {
				return p.errorf("expected a variable after AS but found %s", v)
			}
			if err := p.expect(")"); err != nil {
				return err
			}
			q.Projection = append(q.Projection, Projection{Var: v.text, Expr: e})
		}
		p.aggregatesAllowed = false
		if len(q.Projection) == 0 {
			return p.errorf("expected variables or '*' after SELECT but found %s", p.peek())
		}
	}

	if err := p.rejectDataset(); err != nil {
		return err
	}
	var err error
	if q.Where, err = p.parseWhere(true); err != nil {
		return err
	}
	return p.parseSolutionModifier(q)
}

func (p *parser) parseConstruct(q *Query) error {
	p.advance()
	q.Form = Construct
	var err error

	if p.peek().is("{") {
		if q.Template, err = p.parseTemplate(); err != nil {
			return err
		}
		if err = p.rejectDataset(); err != nil {
			return err
		}
		if q.Where, err = p.parseWhere(true); err != nil {
			return err
		}
		return p.parseSolutionModifier(q)
	}

	// CONSTRUCT WHERE { triples }: the pattern is its own template
	if err = p.rejectDataset(); err != nil {
		return err
	}
	if err = p.expect("WHERE"); err != nil {
		return err
	}
	if q.Template, err = p.parseTemplate(); err != nil {
		return err
	}
	for _, tp := range q.Template {
		if tp.Path != nil {
			return p.errorf("property paths are not allowed in a CONSTRUCT template")
		}
	}
	q.Where = &BGP{Triples: q.Template}
	return p.parseSolutionModifier(q)
}

func (p *parser) parseDescribe(q *Query) error {
	p.advance()
	q.Form = Describe
	if p.accept("*") {
		q.Star = true
	} else {
		for {
			t := p.peek()
			if t.kind == tokVar {
				p.advance()
				q.DescribeTargets = append(q.DescribeTargets, variable(t.text))
				continue
			}
			if t.kind != tokIRI && t.kind != tokPName {
				break
			}
			iri, err := p.parseIRI()
			if err != nil {
				return err
			}
			q.DescribeTargets = append(q.DescribeTargets, constant(iri))
		}
		if len(q.DescribeTargets) == 0 {
			return p.errorf("expected resources or '*' after DESCRIBE but found %s", p.peek())
		}
	}

	if err := p.rejectDataset(); err != nil {
		return err
	}
	if p.peek().is("WHERE") || p.peek().is("{") {
		var err error
		if q.Where, err = p.parseWhere(true); err != nil {
			return err
		}
	}
	return p.parseSolutionModifier(q)
}

func (p *parser) parseAsk(q *Query) error {
	p.advance()
	q.Form = Ask
	if err := p.rejectDataset(); err != nil {
		return err
	}
	var err error
	if q.Where, err = p.parseWhere(true); err != nil {
		return err
	}
	return p.parseSolutionModifier(q)
}

func (p *parser) rejectDataset() error {
	if p.peek().is("FROM") {
		return p.errorf("FROM is not supported: the query runs against the loaded graph")
	}
	return nil
}

func (p *parser) parseWhere(optionalKeyword bool) (Pattern, error) {
	if !p.accept("WHERE") && !optionalKeyword {
		return nil, p.errorf("expected WHERE but found %s", p.peek())
	}
	return p.parseGroup()
}

func (p *parser) parseSolutionModifier(q *Query) error {
	if p.accept("GROUP") {
		if err := p.expect("BY"); err != nil {
			return err
		}
		for {
			c, ok, err := p.parseGroupCondition()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.GroupBy = append(q.GroupBy, c)
		}
		if len(q.GroupBy) == 0 {
			return p.errorf("expected a grouping condition but found %s", p.peek())
		}
	}

	p.aggregatesAllowed = true
	defer func() { p.aggregatesAllowed = false }()

	if p.accept("HAVING") {
		for {
			e, ok, err := p.parseConstraint()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.Having = append(q.Having, e)
		}
		if len(q.Having) == 0 {
			return p.errorf("expected a constraint after HAVING but found %s", p.peek())
		}
	}

	if p.accept("ORDER") {
		if err := p.expect("BY"); err != nil {
			return err
		}
		for {
			c, ok, err := p.parseOrderCondition()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.OrderBy = append(q.OrderBy, c)
		}
		if len(q.OrderBy) == 0 {
			return p.errorf("expected an ordering condition but found %s", p.peek())
		}
	}

	for {
		switch {
		case p.accept("LIMIT"):
			n, err := p.parseCount("LIMIT")
			if err != nil {
				return err
			}
			q.Limit = n
		case p.accept("OFFSET"):
			n, err := p.parseCount("OFFSET")
			if err != nil {
				return err
			}
			q.Offset = n
		default:
			return nil
		}
	}
}

func (p *parser) parseCount(clause string) (int, error) {
	t := p.advance()
	if t.kind != tokInteger {
		return 0, p.errorf("expected an integer after %s but found %s", clause, t)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf("%s %s is out of range", clause, t.text)
	}
	return n, nil
}

func (p *parser) parseGroupCondition() (GroupCondition, bool, error) {
	t := p.peek()
	switch {
	case t.kind == tokVar:
		p.advance()
		return GroupCondition{Expr: &varExpr{name: t.text}}, true, nil
	case t.is("("):
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return GroupCondition{}, false, err
		}
		c := GroupCondition{Expr: e}
		if p.accept("AS") {
			v := p.advance()
			if v.kind != tokVar {
				return GroupCondition{}, false, p.errorf("expected a variable after AS but found %s", v)
			}
			c.Var = v.text
		}
		return c, true, p.expect(")")
	}
	e, ok, err := p.parseCall()
	return GroupCondition{Expr: e}, ok, err
}

func (p *parser) parseOrderCondition() (OrderCondition, bool, error) {
	t := p.peek()
	if t.is("ASC") || t.is("DESC") {
		p.advance()
		if !p.peek().is("(") {
			return OrderCondition{}, false, p.errorf("expected '(' after %s but found %s", t.text, p.peek())
		}
		e, err := p.parsePrimary()
		return OrderCondition{Expr: e, Descending: t.is("DESC")}, true, err
	}
	if t.kind == tokVar {
		p.advance()
		return OrderCondition{Expr: &varExpr{name: t.text}}, true, nil
	}
	e, ok, err := p.parseConstraint()
	return OrderCondition{Expr: e}, ok, err
}

// parseConstraint parses a bracketed expression or a function call, answering false if neither follows
func (p *parser) parseConstraint() (Expr, bool, error) {
	if p.peek().is("(") {
		e, err := p.parsePrimary()
		return e, true, err
	}
	return p.parseCall()
}

// parseCall parses a builtin or cast function call, answering false if none follows
func (p *parser) parseCall() (Expr, bool, error) {
	t := p.peek()
	_, known := builtinArity[strings.ToUpper(t.text)]
	isFunction := t.kind == tokWord && p.peekAt(1).is("(") && (known || aggregateNames[strings.ToUpper(t.text)])
	isBuiltin := t.kind == tokWord && (t.is("EXISTS") || t.is("NOT"))
	isCast := (t.kind == tokIRI || t.kind == tokPName) && p.peekAt(1).is("(")
	if !isFunction && !isBuiltin && !isCast {
		return nil, false, nil
	}
	e, err := p.parsePrimary()
	return e, true, err
}

// parseGroup parses { ... } into the pattern algebra.  FILTERs apply to the whole group; OPTIONAL, MINUS, BIND and
// VALUES apply to everything that precedes them.
func (p *parser) parseGroup() (Pattern, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	if p.peek().is("SELECT") {
		return nil, p.errorf("sub-queries are not supported")
	}

	var g Pattern
	var filters []Expr
	var triples []TriplePattern
	flush := func() {
		if len(triples) > 0 {
			g = join(g, &BGP{Triples: triples})
			triples = nil
		}
	}

	for !p.accept("}") {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, p.errorf("expected '}' but found %s", t)
		case t.is("."):
			p.advance()
		case t.is("FILTER"):
			p.advance()
			e, ok, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, p.errorf("expected a constraint after FILTER but found %s", p.peek())
			}
			filters = append(filters, e)
		case t.is("OPTIONAL"):
			p.advance()
			flush()
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			lj := &LeftJoin{Left: g, Right: inner}
			if f, ok := inner.(*Filter); ok {
				lj.Right, lj.Filter = f.Inner, conjunction(f.Exprs)
			}
			g = lj
		case t.is("MINUS"):
			p.advance()
			flush()
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g = &Minus{Left: g, Right: inner}
		case t.is("BIND"):
			p.advance()
			flush()
			bound, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			bound.Inner = g
			g = bound
		case t.is("VALUES"):
			p.advance()
			flush()
			values, err := p.parseDataBlock()
			if err != nil {
				return nil, err
			}
			g = join(g, values)
		case t.is("{"):
			flush()
			union, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			g = join(g, union)
		case t.is("GRAPH"), t.is("SERVICE"):
			return nil, p.errorf("%s is not supported", strings.ToUpper(t.text))
		default:
			block, err := p.parseTriplesSameSubject(true)
			if err != nil {
				return nil, err
			}
			triples = append(triples, block...)
			if !p.peek().is(".") && !p.peek().is("}") && !isPatternKeyword(p.peek()) {
				return nil, p.errorf("expected '.' or '}' but found %s", p.peek())
			}
		}
	}
	flush()

	if g == nil {
		g = &BGP{}
	}
	if len(filters) > 0 {
		g = &Filter{Exprs: filters, Inner: g}
	}
	return g, nil
}

func isPatternKeyword(t token) bool {
	for _, k := range []string{"FILTER", "OPTIONAL", "MINUS", "BIND", "VALUES", "{"} {
		if t.is(k) {
			return true
		}
	}
	return false
}

func join(left, right Pattern) Pattern {
	if left == nil {
		return right
	}
	if l, ok := left.(*BGP); ok && len(l.Triples) == 0 {
		return right
	}
	return &Join{Left: left, Right: right}
}

func conjunction(exprs []Expr) Expr {
	e := exprs[0]
	for _, next := range exprs[1:] {
		e = &binaryExpr{op: "&&", left: e, right: next}
	}
	return e
}

func (p *parser) parseUnion() (Pattern, error) {
	u, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	for p.accept("UNION") {
		right, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		u = &Union{Left: u, Right: right}
	}
	return u, nil
}

func (p *parser) parseBind() (*Extend, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect("AS"); err != nil {
		return nil, err
	}
	v := p.advance()
	if v.kind != tokVar {
		return nil, p.errorf("expected a variable after AS but found %s", v)
	}
	return &Extend{Var: v.text, Expr: e}, p.expect(")")
}

// parseDataBlock parses the body of VALUES: ?x { ... } or (?x ?y) { (...) ... }
func (p *parser) parseDataBlock() (*Values, error) {
	values := &Values{}
	if t := p.peek(); t.kind == tokVar {
		p.advance()
		values.Vars = []string{t.text}
		if err := p.expect("{"); err != nil {
			return nil, err
		}
		for !p.accept("}") {
			v, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}
			values.Rows = append(values.Rows, []rdf.Term{v})
		}
		return values, nil
	}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.accept(")") {
		t := p.advance()
		if t.kind != tokVar {
			return nil, p.errorf("expected a variable in VALUES but found %s", t)
		}
		values.Vars = append(values.Vars, t.text)
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.accept("}") {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var row []rdf.Term
		for !p.accept(")") {
			v, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		if len(row) != len(values.Vars) {
			return nil, p.errorf("VALUES row has %d terms for %d variables", len(row), len(values.Vars))
		}
		values.Rows = append(values.Rows, row)
	}
	return values, nil
}

// parseDataValue parses a constant term in VALUES; UNDEF answers nil
func (p *parser) parseDataValue() (rdf.Term, error) {
	if p.accept("UNDEF") {
		return nil, nil
	}
	n, err := p.parseTerm(false)
	if err != nil {
		return nil, err
	}
	if n.IsVar() {
		return nil, p.errorf("variables and blank nodes are not allowed in VALUES")
	}
	return n.Term, nil
}

// parseTemplate parses { triples } for CONSTRUCT
func (p *parser) parseTemplate() ([]TriplePattern, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var template []TriplePattern
	for !p.accept("}") {
		if p.peek().kind == tokEOF {
			return nil, p.errorf("expected '}' but found %s", p.peek())
		}
		if p.accept(".") {
			continue
		}
		block, err := p.parseTriplesSameSubject(false)
		if err != nil {
			return nil, err
		}
		template = append(template, block...)
		if !p.peek().is(".") && !p.peek().is("}") {
			return nil, p.errorf("expected '.' or '}' but found %s", p.peek())
		}
	}
	return template, nil
}

// parseTriplesSameSubject parses a subject and its property list, including the triples of any [ ... ] blank node
// property lists within it
func (p *parser) parseTriplesSameSubject(allowPaths bool) ([]TriplePattern, error) {
	var triples []TriplePattern
	var subject Node
	if p.peek().is("[") {
		var err error
		if subject, err = p.parseBlankNodePropertyList(&triples, allowPaths); err != nil {
			return nil, err
		}
		if p.peek().is(".") || p.peek().is("}") {
			return triples, nil
		}
	} else {
		var err error
		if subject, err = p.parseTerm(true); err != nil {
			return nil, err
		}
	}
	if err := p.parsePropertyList(subject, &triples, allowPaths); err != nil {
		return nil, err
	}
	return triples, nil
}

func (p *parser) parsePropertyList(subject Node, triples *[]TriplePattern, allowPaths bool) error {
	for {
		tp := TriplePattern{S: subject}
		if t := p.peek(); t.kind == tokVar {
			p.advance()
			tp.P = variable(t.text)
		} else {
			path, err := p.parsePath()
			if err != nil {
				return err
			}
			if link, ok := path.(*linkPath); ok {
				tp.P = constant(link.iri)
			} else if allowPaths {
				tp.Path = path
			} else {
				return p.errorf("property paths are not allowed in a CONSTRUCT template")
			}
		}

		for {
			// the triples of a nested [ ... ] follow the triple which refers to it
			var nested []TriplePattern
			object, err := p.parseObject(&nested, allowPaths)
			if err != nil {
				return err
			}
			tp.O = object
			*triples = append(append(*triples, tp), nested...)
			if !p.accept(",") {
				break
			}
		}

		if !p.accept(";") {
			return nil
		}
		for p.accept(";") {
		}
		if t := p.peek(); t.is(".") || t.is("}") || t.is("]") {
			return nil
		}
	}
}

func (p *parser) parseObject(triples *[]TriplePattern, allowPaths bool) (Node, error) {
	if p.peek().is("[") {
		return p.parseBlankNodePropertyList(triples, allowPaths)
	}
	return p.parseTerm(true)
}

// parseBlankNodePropertyList parses [ ... ], answering the variable standing for the blank node
func (p *parser) parseBlankNodePropertyList(triples *[]TriplePattern, allowPaths bool) (Node, error) {
	p.advance()
	node := p.anonymous()
	if p.accept("]") {
		return node, nil
	}
	if err := p.parsePropertyList(node, triples, allowPaths); err != nil {
		return Node{}, err
	}
	return node, p.expect("]")
}

func (p *parser) anonymous() Node {
	p.anon++
	return variable(fmt.Sprintf("_:anon%d", p.anon))
}

// parseTerm parses a variable, IRI, literal or blank node.  Blank nodes become variables hidden from SELECT *.
func (p *parser) parseTerm(allowVars bool) (Node, error) {
	t := p.peek()
	switch {
	case t.kind == tokVar && allowVars:
		p.advance()
		return variable(t.text), nil
	case t.kind == tokBlank && allowVars:
		p.advance()
		return variable("_:" + t.text), nil
	case t.is("[") && p.peekAt(1).is("]") && allowVars:
		p.advance()
		p.advance()
		return p.anonymous(), nil
	case t.is("("):
		return Node{}, p.errorf("RDF collections are not supported")
	}
	term, err := p.parseConstant()
	if err != nil {
		return Node{}, err
	}
	return constant(term), nil
}

// parseConstant parses an IRI, a literal, a number or a boolean
func (p *parser) parseConstant() (rdf.Term, error) {
	t := p.peek()
	switch {
	case t.kind == tokIRI, t.kind == tokPName:
		return p.parseIRI()
	case t.kind == tokString:
		return p.parseLiteral()
	case t.kind == tokInteger, t.kind == tokDecimal, t.kind == tokDouble:
		p.advance()
		return numericLiteral(t, ""), nil
	case (t.is("+") || t.is("-")) && isNumberToken(p.peekAt(1)):
		p.advance()
		n := p.advance()
		return numericLiteral(n, t.text), nil
	case t.is("true"), t.is("false"):
		p.advance()
		return newBoolean(t.is("true")), nil
	case t.is("a"):
		return nil, p.errorf("unexpected 'a' outside of the predicate position")
	}
	return nil, p.errorf("expected a term but found %s", t)
}

func isNumberToken(t token) bool {
	return t.kind == tokInteger || t.kind == tokDecimal || t.kind == tokDouble
}

func numericLiteral(t token, sign string) rdf.Term {
	lexical := sign + t.text
	switch t.kind {
	case tokInteger:
		return rdf.NewTypedLiteral(strings.TrimPrefix(lexical, "+"), model.XsdInteger)
	case tokDecimal:
		if strings.HasPrefix(t.text, ".") {
			lexical = sign + "0" + t.text
		}
		return rdf.NewTypedLiteral(strings.TrimPrefix(lexical, "+"), model.XsdDecimal)
	default:
		return rdf.NewTypedLiteral(strings.TrimPrefix(lexical, "+"), model.XsdDouble)
	}
}

func (p *parser) parseLiteral() (rdf.Term, error) {
	t := p.advance()
	if lang := p.peek(); lang.kind == tokLang {
		p.advance()
		l, err := rdf.NewLangLiteral(t.text, lang.text)
		if err != nil {
			return nil, p.errorf("bad language tag @%s: %s", lang.text, err)
		}
		return l, nil
	}
	if p.accept("^^") {
		dt, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(t.text, dt), nil
	}
	return newString(t.text), nil
}

// parseIRI parses an IRI reference, resolved against BASE, or a prefixed name
func (p *parser) parseIRI() (rdf.IRI, error) {
	t := p.peek()
	var text string
	switch t.kind {
	case tokIRI:
		text = resolveIRI(p.base, t.text)
	case tokPName:
		prefix, local, _ := strings.Cut(t.text, ":")
		ns, ok := p.prefixes[prefix]
		if !ok {
			return rdf.IRI{}, p.errorf("undeclared prefix '%s'", prefix)
		}
		text = ns + local
	default:
		return rdf.IRI{}, p.errorf("expected an IRI but found %s", t)
	}
	iri, err := rdf.NewIRI(text)
	if err != nil {
		return rdf.IRI{}, p.errorf("bad IRI <%s>: %s", text, err)
	}
	p.advance()
	return iri, nil
}

func (p *parser) parsePath() (Path, error) {
	left, err := p.parsePathSequence()
	if err != nil {
		return nil, err
	}
	for p.accept("|") {
		right, err := p.parsePathSequence()
		if err != nil {
			return nil, err
		}
		left = &alternativePath{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parsePathSequence() (Path, error) {
	left, err := p.parsePathElt()
	if err != nil {
		return nil, err
	}
	for p.accept("/") {
		right, err := p.parsePathElt()
		if err != nil {
			return nil, err
		}
		left = &sequencePath{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parsePathElt() (Path, error) {
	inverse := p.accept("^")

	var path Path
	switch t := p.peek(); {
	case t.is("a"):
		p.advance()
		path = &linkPath{iri: model.RdfType}
	case t.is("("):
		p.advance()
		inner, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		path = inner
	case t.is("!"):
		return nil, p.errorf("negated property sets are not supported")
	default:
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		path = &linkPath{iri: iri}
	}

	switch {
	case p.accept("?"):
		path = &repeatPath{path: path, min: 0, max: 1}
	case p.accept("*"):
		path = &repeatPath{path: path, min: 0, max: -1}
	case p.accept("+"):
		path = &repeatPath{path: path, min: 1, max: -1}
	}
	if inverse {
		path = &inversePath{path: path}
	}
	return path, nil
}

func (p *parser) parseExpression() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.is("="), t.is("!="), t.is("<"), t.is(">"), t.is("<="), t.is(">="):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryExpr{op: t.text, left: left, right: right}, nil
	case t.is("IN"):
		p.advance()
		list, err := p.parseExpressionList()
		return &inExpr{operand: left, list: list}, err
	case t.is("NOT") && p.peekAt(1).is("IN"):
		p.advance()
		p.advance()
		list, err := p.parseExpressionList()
		return &inExpr{operand: left, list: list, negate: true}, err
	}
	return left, nil
}

func (p *parser) parseExpressionList() ([]Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var list []Expr
	if p.accept(")") {
		return list, nil
	}
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.accept(")") {
			return list, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !t.is("+") && !t.is("-") {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: t.text, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !t.is("*") && !t.is("/") {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: t.text, left: left, right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.is("!") || t.is("-") || t.is("+") {
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: t.text, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch {
	case t.is("("):
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case t.kind == tokVar:
		p.advance()
		return &varExpr{name: t.text}, nil
	case t.is("EXISTS"):
		p.advance()
		pattern, err := p.parseGroup()
		return &existsExpr{pattern: pattern}, err
	case t.is("NOT") && p.peekAt(1).is("EXISTS"):
		p.advance()
		p.advance()
		pattern, err := p.parseGroup()
		return &existsExpr{pattern: pattern, negate: true}, err
	case t.kind == tokWord && p.peekAt(1).is("("):
		name := strings.ToUpper(t.text)
		if aggregateNames[name] {
			return p.parseAggregate(name)
		}
		return p.parseBuiltin(name)
	case (t.kind == tokIRI || t.kind == tokPName) && p.peekAt(1).is("("):
		return p.parseCast()
	}
	term, err := p.parseConstant()
	if err != nil {
		return nil, err
	}
	return &termExpr{term: term}, nil
}

func (p *parser) parseBuiltin(name string) (Expr, error) {
	arity, ok := builtinArity[name]
	if !ok {
		return nil, p.errorf("unknown function %s", p.peek().text)
	}
	p.advance()
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	if len(args) < arity[0] || (arity[1] >= 0 && len(args) > arity[1]) {
		return nil, p.errorf("wrong number of arguments to %s: %d", name, len(args))
	}
	if name == "BOUND" {
		if _, ok := args[0].(*varExpr); !ok {
			return nil, p.errorf("BOUND requires a variable")
		}
	}
	return &callExpr{name: name, args: args}, nil
}

var castTypes = map[string]bool{
	model.XsdString.String():   true,
	model.XsdBoolean.String():  true,
	model.XsdInteger.String():  true,
	model.XsdDecimal.String():  true,
	model.XsdDouble.String():   true,
	model.XsdFloat.String():    true,
	model.XsdDateTime.String(): true,
}

func (p *parser) parseCast() (Expr, error) {
	iri, err := p.parseIRI()
	if err != nil {
		return nil, err
	}
	if !castTypes[iri.String()] {
		return nil, p.errorf("unsupported function <%s>", iri.String())
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, p.errorf("wrong number of arguments to <%s>: %d", iri.String(), len(args))
	}
	return &callExpr{name: iri.String(), args: args}, nil
}

func (p *parser) parseAggregate(name string) (Expr, error) {
	if !p.aggregatesAllowed {
		return nil, p.errorf("aggregate %s is only allowed in SELECT, HAVING and ORDER BY", name)
	}
	p.advance()
	if err := p.expect("("); err != nil {
		return nil, err
	}
	a := &aggregateExpr{name: name, separator: " ", key: fmt.Sprintf(".agg%d", len(p.aggregates))}
	a.distinct = p.accept("DISTINCT")

	if name == "COUNT" && p.accept("*") {
		p.aggregates = append(p.aggregates, a)
		return a, p.expect(")")
	}

	// nested aggregates are not allowed
	p.aggregatesAllowed = false
	arg, err := p.parseExpression()
	p.aggregatesAllowed = true
	if err != nil {
		return nil, err
	}
	a.arg = arg

	if name == "GROUP_CONCAT" && p.accept(";") {
		if err := p.expect("SEPARATOR"); err != nil {
			return nil, err
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		sep := p.advance()
		if sep.kind != tokString {
			return nil, p.errorf("expected a string after SEPARATOR but found %s", sep)
		}
		a.separator = sep.text
	}
	p.aggregates = append(p.aggregates, a)
	return a, p.expect(")")
}
