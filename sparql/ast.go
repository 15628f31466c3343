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
	"strings"

	"github.com/knakk/rdf"
)

// Form is the kind of result a query produces
type Form int

const (
	Select Form = iota
	Construct
	Describe
	Ask
)

func (f Form) String() string {
	switch f {
	case Select:
		return "SELECT"
	case Construct:
		return "CONSTRUCT"
	case Describe:
		return "DESCRIBE"
	default:
		return "ASK"
	}
}

// Query is a parsed SPARQL query
type Query struct {
	Form Form
	// Base is the IRI relative references were resolved against, if BASE was given
	Base     string
	Distinct bool
	Reduced  bool

	// Star is true for SELECT * and DESCRIBE *
	Star       bool
	Projection []Projection

	// Template holds the CONSTRUCT template
	Template []TriplePattern

	// DescribeTargets holds the DESCRIBE resources and variables
	DescribeTargets []Node

	// Where is nil only for a DESCRIBE without a WHERE clause
	Where Pattern

	GroupBy []GroupCondition
	Having  []Expr
	OrderBy []OrderCondition
	// Limit is -1 when absent
	Limit  int
	Offset int

	// Values holds a trailing VALUES clause, if any
	Values *Values

	// aggregates in projection, HAVING and ORDER BY, in order of appearance
	aggregates []*aggregateExpr
}

// Projection is a variable in the SELECT clause, optionally computed by (expr AS ?var)
type Projection struct {
	Var  string
	Expr Expr
}

// GroupCondition is a GROUP BY key, optionally bound to a variable by (expr AS ?var)
type GroupCondition struct {
	Expr Expr
	Var  string
}

type OrderCondition struct {
	Expr       Expr
	Descending bool
}

// Node is a variable or a concrete RDF term in a triple pattern
type Node struct {
	Var  string
	Term rdf.Term
}

func (n Node) IsVar() bool {
	return n.Var != ""
}

func variable(name string) Node {
	return Node{Var: name}
}

func constant(t rdf.Term) Node {
	return Node{Term: t}
}

// TriplePattern matches triples; Path is set instead of P when the predicate is a property path
type TriplePattern struct {
	S    Node
	P    Node
	Path Path
	O    Node
}

// Pattern is a node of the graph pattern algebra
type Pattern interface {
	vars(into *varList)
}

// varList collects variable names in order of first appearance
type varList struct {
	names []string
	seen  map[string]bool
}

func (l *varList) add(name string) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if !l.seen[name] {
		l.seen[name] = true
		l.names = append(l.names, name)
	}
}

// Answers the variables a pattern can bind, in order of first appearance
func patternVars(p Pattern) []string {
	var l varList
	if p != nil {
		p.vars(&l)
	}
	return l.names
}

// BGP is a basic graph pattern
type BGP struct {
	Triples []TriplePattern
}

type Join struct {
	Left, Right Pattern
}

// LeftJoin is OPTIONAL; Filter is the condition from FILTERs directly inside the optional group
type LeftJoin struct {
	Left, Right Pattern
	Filter      Expr
}

type Union struct {
	Left, Right Pattern
}

type Minus struct {
	Left, Right Pattern
}

type Filter struct {
	Exprs []Expr
	Inner Pattern
}

// Extend is BIND(expr AS ?var)
type Extend struct {
	Inner Pattern
	Var   string
	Expr  Expr
}

// Values is an inline data block; a nil term in a row is UNDEF
type Values struct {
	Vars []string
	Rows [][]rdf.Term
}

func (p *BGP) vars(into *varList) {
	for _, t := range p.Triples {
		for _, n := range []Node{t.S, t.P, t.O} {
			if n.IsVar() {
				into.add(n.Var)
			}
		}
	}
}

func (p *Join) vars(into *varList) {
	p.Left.vars(into)
	p.Right.vars(into)
}

func (p *LeftJoin) vars(into *varList) {
	p.Left.vars(into)
	p.Right.vars(into)
}

func (p *Union) vars(into *varList) {
	p.Left.vars(into)
	p.Right.vars(into)
}

func (p *Minus) vars(into *varList) {
	p.Left.vars(into)
}

func (p *Filter) vars(into *varList) {
	p.Inner.vars(into)
}

func (p *Extend) vars(into *varList) {
	p.Inner.vars(into)
	into.add(p.Var)
}

func (p *Values) vars(into *varList) {
	for _, v := range p.Vars {
		into.add(v)
	}
}

// isHidden reports whether a variable stands for a blank node in a pattern; those never appear in SELECT *
func isHidden(name string) bool {
	return strings.HasPrefix(name, "_:") || strings.HasPrefix(name, ".")
}
