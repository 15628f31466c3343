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
	"regexp"
	"sort"
	"spahqler/logger"
	"spahqler/model"
	"spahqler/persistence"
	"strings"
)

// Solution maps variable names to the terms bound to them
type Solution map[string]rdf.Term

// Answers a new solution holding the bindings of both
func (s Solution) merge(other Solution) Solution {
	merged := make(Solution, len(s)+len(other))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

func (s Solution) with(name string, t rdf.Term) Solution {
	return s.merge(Solution{name: t})
}

// Answers true if the solutions agree on every variable bound in both
func (s Solution) compatible(other Solution) bool {
	for k, v := range other {
		if mine, ok := s[k]; ok && !model.Equal(mine, v) {
			return false
		}
	}
	return true
}

func (s Solution) sharesVariable(other Solution) bool {
	for k := range other {
		if _, ok := s[k]; ok {
			return true
		}
	}
	return false
}

// Answers a string identifying the terms bound to vars, for DISTINCT and GROUP BY
func (s Solution) key(vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(model.Key(s[v]))
		sb.WriteByte(0)
	}
	return sb.String()
}

// solutions is a lazily evaluated sequence of solutions
type solutions interface {
	Next() bool
	Solution() Solution
	Err() error
}

type sliceSolutions struct {
	items   []Solution
	pos     int
	current Solution
	err     error
}

func single(s Solution) solutions {
	return &sliceSolutions{items: []Solution{s}}
}

func failed(err error) solutions {
	return &sliceSolutions{err: err}
}

func (it *sliceSolutions) Next() bool {
	if it.err != nil || it.pos >= len(it.items) {
		return false
	}
	it.current = it.items[it.pos]
	it.pos++
	return true
}

func (it *sliceSolutions) Solution() Solution {
	return it.current
}

func (it *sliceSolutions) Err() error {
	return it.err
}

// flatMap evaluates fn for each input solution and yields everything fn produces
type flatMap struct {
	input   solutions
	fn      func(Solution) solutions
	inner   solutions
	current Solution
	err     error
}

func (it *flatMap) Next() bool {
	for it.err == nil {
		if it.inner != nil {
			if it.inner.Next() {
				it.current = it.inner.Solution()
				return true
			}
			if it.err = it.inner.Err(); it.err != nil {
				return false
			}
		}
		if !it.input.Next() {
			it.err = it.input.Err()
			return false
		}
		it.inner = it.fn(it.input.Solution())
	}
	return false
}

func (it *flatMap) Solution() Solution {
	return it.current
}

func (it *flatMap) Err() error {
	return it.err
}

// filtered yields the input solutions keep accepts; an error from keep stops iteration
type filtered struct {
	input solutions
	keep  func(Solution) (bool, error)
	err   error
}

func (it *filtered) Next() bool {
	for it.err == nil && it.input.Next() {
		ok, err := it.keep(it.input.Solution())
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			return true
		}
	}
	if it.err == nil {
		it.err = it.input.Err()
	}
	return false
}

func (it *filtered) Solution() Solution {
	return it.input.Solution()
}

func (it *filtered) Err() error {
	return it.err
}

// concat yields the solutions of each source in turn
type concat struct {
	sources []solutions
}

func (it *concat) Next() bool {
	for len(it.sources) > 0 {
		if it.sources[0].Next() {
			return true
		}
		if it.sources[0].Err() != nil {
			return false
		}
		it.sources = it.sources[1:]
	}
	return false
}

func (it *concat) Solution() Solution {
	return it.sources[0].Solution()
}

func (it *concat) Err() error {
	if len(it.sources) > 0 {
		return it.sources[0].Err()
	}
	return nil
}

// Drains the solutions into a slice
func collect(it solutions) ([]Solution, error) {
	var all []Solution
	for it.Next() {
		all = append(all, it.Solution())
	}
	return all, it.Err()
}

// evalContext carries the state shared by one query execution
type evalContext struct {
	store   persistence.Store
	base    string
	regexps map[string]*regexp.Regexp
	minus   map[*Minus][]Solution
	blanks  int
	bnodes  map[string]rdf.Blank
}

func newEvalContext(store persistence.Store, base string) *evalContext {
	return &evalContext{
		store:   store,
		base:    base,
		regexps: make(map[string]*regexp.Regexp),
		minus:   make(map[*Minus][]Solution),
		bnodes:  make(map[string]rdf.Blank),
	}
}

// Answers a blank node which is distinct from every other blank node minted by this query
func (ctx *evalContext) freshBlank() rdf.Blank {
	ctx.blanks++
	b, _ := rdf.NewBlank(fmt.Sprintf("genid%d", ctx.blanks))
	return b
}

// Answers the same fresh blank node each time it is asked for the same label
func (ctx *evalContext) labelledBlank(label string) rdf.Blank {
	if b, ok := ctx.bnodes[label]; ok {
		return b
	}
	b := ctx.freshBlank()
	ctx.bnodes[label] = b
	return b
}

// Evaluates the pattern with the seed solution already in place: every solution produced extends the seed.  A nil
// pattern is the empty group, which produces the seed alone.
func (ctx *evalContext) eval(p Pattern, seed Solution) solutions {
	switch p := p.(type) {
	case nil:
		return single(seed)
	case *BGP:
		return ctx.evalBGP(p, seed)
	case *Join:
		return &flatMap{input: ctx.eval(p.Left, seed), fn: func(s Solution) solutions {
			return ctx.eval(p.Right, s)
		}}
	case *LeftJoin:
		return &flatMap{input: ctx.eval(p.Left, seed), fn: func(s Solution) solutions {
			return ctx.optional(p, s)
		}}
	case *Union:
		return &concat{sources: []solutions{ctx.eval(p.Left, seed), ctx.eval(p.Right, seed)}}
	case *Minus:
		return ctx.evalMinus(p, seed)
	case *Filter:
		return &filtered{input: ctx.eval(p.Inner, seed), keep: func(s Solution) (bool, error) {
			return ctx.test(p.Exprs, s)
		}}
	case *Extend:
		return &flatMap{input: ctx.eval(p.Inner, seed), fn: func(s Solution) solutions {
			return ctx.extend(p.Var, p.Expr, s)
		}}
	case *Values:
		return ctx.evalValues(p, seed)
	default:
		return failed(fmt.Errorf("unsupported pattern %T", p))
	}
}

// Answers true if every expression has an effective boolean value of true; type errors count as false
func (ctx *evalContext) test(exprs []Expr, s Solution) (bool, error) {
	for _, e := range exprs {
		ok, err := ebvOf(ctx, e, s)
		if isFatal(err) {
			return false, err
		}
		if err != nil || !ok {
			return false, nil
		}
	}
	return true, nil
}

func (ctx *evalContext) optional(p *LeftJoin, s Solution) solutions {
	it := ctx.eval(p.Right, s)
	if p.Filter != nil {
		it = &filtered{input: it, keep: func(r Solution) (bool, error) {
			return ctx.test([]Expr{p.Filter}, r)
		}}
	}
	matches, err := collect(it)
	if err != nil {
		return failed(err)
	}
	if len(matches) == 0 {
		return single(s)
	}
	return &sliceSolutions{items: matches}
}

func (ctx *evalContext) extend(name string, e Expr, s Solution) solutions {
	v, err := e.Eval(ctx, s)
	if isFatal(err) {
		return failed(err)
	}
	if err != nil || v == nil {
		return single(s)
	}
	if bound, ok := s[name]; ok {
		if model.Equal(bound, v) {
			return single(s)
		}
		return &sliceSolutions{}
	}
	return single(s.with(name, v))
}

// The right side of MINUS is evaluated once, independently of the left
func (ctx *evalContext) evalMinus(p *Minus, seed Solution) solutions {
	right, ok := ctx.minus[p]
	if !ok {
		var err error
		if right, err = collect(ctx.eval(p.Right, Solution{})); err != nil {
			return failed(err)
		}
		ctx.minus[p] = right
	}
	return &filtered{input: ctx.eval(p.Left, seed), keep: func(s Solution) (bool, error) {
		for _, r := range right {
			if s.sharesVariable(r) && s.compatible(r) {
				return false, nil
			}
		}
		return true, nil
	}}
}

func (ctx *evalContext) evalValues(p *Values, seed Solution) solutions {
	var out []Solution
	for _, row := range p.Rows {
		s := Solution{}
		for i, t := range row {
			if t != nil {
				s[p.Vars[i]] = t
			}
		}
		if seed.compatible(s) {
			out = append(out, seed.merge(s))
		}
	}
	return &sliceSolutions{items: out}
}

// Matches the triple patterns one at a time, most selective first, substituting the bindings found so far into
// each following pattern
func (ctx *evalContext) evalBGP(p *BGP, seed Solution) solutions {
	var it solutions = single(seed)
	for _, tp := range orderTriples(p.Triples, seed) {
		tp := tp
		it = &flatMap{input: it, fn: func(s Solution) solutions {
			return ctx.matchTriple(tp, s)
		}}
	}
	return it
}

// Orders triple patterns greedily by the number of positions bound when each is reached
func orderTriples(triples []TriplePattern, seed Solution) []TriplePattern {
	bound := make(map[string]bool, len(seed))
	for k := range seed {
		bound[k] = true
	}
	boundCount := func(tp TriplePattern) int {
		n := 0
		for _, node := range []Node{tp.S, tp.P, tp.O} {
			if !node.IsVar() || bound[node.Var] {
				n++
			}
		}
		return n
	}

	remaining := append([]TriplePattern(nil), triples...)
	ordered := make([]TriplePattern, 0, len(triples))
	for len(remaining) > 0 {
		best := 0
		for i := range remaining {
			if boundCount(remaining[i]) > boundCount(remaining[best]) {
				best = i
			}
		}
		tp := remaining[best]
		ordered = append(ordered, tp)
		remaining = append(remaining[:best], remaining[best+1:]...)
		for _, node := range []Node{tp.S, tp.P, tp.O} {
			if node.IsVar() {
				bound[node.Var] = true
			}
		}
	}
	return ordered
}

// Answers the term a node stands for in the solution, or nil for an unbound variable
func resolve(n Node, s Solution) rdf.Term {
	if n.IsVar() {
		return s[n.Var]
	}
	return n.Term
}

// Binds a node to a term, answering false if the node is a constant or bound variable with a different value
func bind(n Node, t rdf.Term, s Solution) bool {
	if !n.IsVar() {
		return model.Equal(n.Term, t)
	}
	if bound, ok := s[n.Var]; ok {
		return model.Equal(bound, t)
	}
	s[n.Var] = t
	return true
}

func (ctx *evalContext) matchTriple(tp TriplePattern, s Solution) solutions {
	subj, obj := resolve(tp.S, s), resolve(tp.O, s)
	if tp.Path != nil {
		pairs, err := ctx.evalPath(tp.Path, subj, obj)
		if err != nil {
			return failed(err)
		}
		var out []Solution
		for _, pair := range pairs {
			extended := s.merge(nil)
			if bind(tp.S, pair[0], extended) && bind(tp.O, pair[1], extended) {
				out = append(out, extended)
			}
		}
		return &sliceSolutions{items: out}
	}

	pred := resolve(tp.P, s)
	// a literal can never be a subject, nor anything but an IRI a predicate
	if _, ok := subj.(rdf.Literal); ok {
		return &sliceSolutions{}
	}
	if pred != nil && pred.Type() != rdf.TermIRI {
		return &sliceSolutions{}
	}
	triples, err := ctx.store.Match(subj, pred, obj)
	if err != nil {
		return failed(err)
	}
	out := make([]Solution, 0, len(triples))
	for _, t := range triples {
		extended := s.merge(nil)
		if bind(tp.S, t.Subj, extended) && bind(tp.P, t.Pred, extended) && bind(tp.O, t.Obj, extended) {
			out = append(out, extended)
		}
	}
	logger.Logger.Debugf("sparql: %d matches for pattern %s", len(out), describePattern(tp))
	return &sliceSolutions{items: out}
}

func describePattern(tp TriplePattern) string {
	node := func(n Node) string {
		if n.IsVar() {
			return "?" + n.Var
		}
		return model.Key(n.Term)
	}
	return node(tp.S) + " " + node(tp.P) + " " + node(tp.O)
}

// sortSolutions orders solutions by the ORDER BY conditions; the sort is stable, so ties keep their order.  A
// condition in error sorts as unbound.
func (ctx *evalContext) sortSolutions(all []Solution, conditions []OrderCondition) error {
	keys := make([][]rdf.Term, len(all))
	for i, s := range all {
		keys[i] = make([]rdf.Term, len(conditions))
		for j, c := range conditions {
			v, err := c.Expr.Eval(ctx, s)
			if isFatal(err) {
				return err
			}
			if err == nil {
				keys[i][j] = v
			}
		}
	}
	index := make([]int, len(all))
	for i := range index {
		index[i] = i
	}
	sort.SliceStable(index, func(a, b int) bool {
		for j, c := range conditions {
			cmp := orderTerms(keys[index[a]][j], keys[index[b]][j])
			if c.Descending {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	sorted := make([]Solution, len(all))
	for i, idx := range index {
		sorted[i] = all[idx]
	}
	copy(all, sorted)
	return nil
}

// orderTerms answers the SPARQL ordering of two terms: unbound < blank nodes < IRIs < literals, literals by value
// where comparable and by lexical form otherwise
func orderTerms(a, b rdf.Term) int {
	rank := func(t rdf.Term) int {
		if t == nil {
			return 0
		}
		switch t.Type() {
		case rdf.TermBlank:
			return 1
		case rdf.TermIRI:
			return 2
		default:
			return 3
		}
	}
	if ra, rb := rank(a), rank(b); ra != rb || ra == 0 {
		return ra - rb
	}
	if a.Type() == rdf.TermLiteral {
		if c, err := compareValues(a, b); err == nil {
			return c
		}
	}
	if c := strings.Compare(model.Value(a), model.Value(b)); c != 0 {
		return c
	}
	return strings.Compare(model.Key(a), model.Key(b))
}
