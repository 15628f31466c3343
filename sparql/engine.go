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

// Parses SPARQL queries and evaluates them against the triples of a persistence.Store
package sparql

import (
	"github.com/knakk/rdf"
	"spahqler/logger"
	"spahqler/model"
	"spahqler/persistence"
	"strings"
)

// Engine evaluates queries against the triples of a store
type Engine struct {
	store persistence.Store
}

func New(store persistence.Store) *Engine {
	return &Engine{store: store}
}

// Parses and executes the query text.  See Execute.
func (e *Engine) Query(text string, bindings map[string]rdf.Term) (*Result, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return e.Execute(q, bindings)
}

// Executes the query.  The bindings pre-assign values to query variables: evaluation starts from a single solution
// holding them, so they constrain every pattern that mentions them.
//
// SELECT answers rows which are evaluated lazily as the Result is iterated; errors met along the way are answered
// by RowIterator.Err.  The other forms are evaluated completely before Execute returns.
func (e *Engine) Execute(q *Query, bindings map[string]rdf.Term) (*Result, error) {
	ctx := newEvalContext(e.store, q.Base)
	seed := Solution{}
	for name, t := range bindings {
		if t != nil {
			seed[name] = t
		}
	}
	logger.Logger.Debugf("sparql: executing %s query with %d initial bindings", q.Form, len(seed))

	where := q.Where
	if q.Values != nil {
		where = join(where, q.Values)
	}
	it := ctx.eval(where, seed)

	if len(q.GroupBy) > 0 || len(q.aggregates) > 0 {
		it = ctx.group(it, q)
		if len(q.Having) > 0 {
			it = &filtered{input: it, keep: func(s Solution) (bool, error) {
				return ctx.test(q.Having, s)
			}}
		}
	}
	for _, projection := range q.Projection {
		if projection.Expr == nil {
			continue
		}
		projection := projection
		it = &flatMap{input: it, fn: func(s Solution) solutions {
			return ctx.extend(projection.Var, projection.Expr, s)
		}}
	}
	if len(q.OrderBy) > 0 {
		all, err := collect(it)
		if err != nil {
			return nil, evalFailure(err)
		}
		if err := ctx.sortSolutions(all, q.OrderBy); err != nil {
			return nil, evalFailure(err)
		}
		it = &sliceSolutions{items: all}
	}

	switch q.Form {
	case Select:
		vars := selectVars(q, where)
		if q.Distinct {
			it = distinct(it, vars)
		}
		return &Result{Type: Rows, Vars: vars, Rows: &rowIterator{vars: vars, source: limit(it, q.Offset, q.Limit)}}, nil
	case Ask:
		found := it.Next()
		if err := it.Err(); err != nil {
			return nil, evalFailure(err)
		}
		return &Result{Type: Boolean, Boolean: found}, nil
	}

	all, err := collect(limit(it, q.Offset, q.Limit))
	if err != nil {
		return nil, evalFailure(err)
	}
	var g *model.Graph
	if q.Form == Construct {
		g = ctx.construct(q.Template, all)
	} else if g, err = ctx.describe(describeTargets(q, where, seed, all)); err != nil {
		return nil, evalFailure(err)
	}
	return &Result{Type: Graph, Graph: g}, nil
}

// Answers the projected variables; SELECT * projects every variable of the pattern that does not stand for a blank
// node
func selectVars(q *Query, where Pattern) []string {
	if !q.Star {
		vars := make([]string, len(q.Projection))
		for i, projection := range q.Projection {
			vars[i] = projection.Var
		}
		return vars
	}
	var vars []string
	for _, v := range patternVars(where) {
		if !isHidden(v) {
			vars = append(vars, v)
		}
	}
	return vars
}

func distinct(it solutions, vars []string) solutions {
	seen := map[string]bool{}
	return &filtered{input: it, keep: func(s Solution) (bool, error) {
		k := s.key(vars)
		if seen[k] {
			return false, nil
		}
		seen[k] = true
		return true, nil
	}}
}

// sliced implements OFFSET and LIMIT; a negative limit is no limit
type sliced struct {
	input    solutions
	offset   int
	limit    int
	returned int
}

func limit(it solutions, offset, limit int) solutions {
	if offset <= 0 && limit < 0 {
		return it
	}
	return &sliced{input: it, offset: offset, limit: limit}
}

func (it *sliced) Next() bool {
	for ; it.offset > 0; it.offset-- {
		if !it.input.Next() {
			return false
		}
	}
	if it.limit >= 0 && it.returned >= it.limit {
		return false
	}
	if !it.input.Next() {
		return false
	}
	it.returned++
	return true
}

func (it *sliced) Solution() Solution {
	return it.input.Solution()
}

func (it *sliced) Err() error {
	return it.input.Err()
}

// Instantiates the template once per solution.  Blank nodes of the template are fresh for each solution; triples
// with an unbound variable, or a term that cannot occupy its position, are left out.
func (ctx *evalContext) construct(template []TriplePattern, all []Solution) *model.Graph {
	g := model.NewGraph(nil)
	for _, s := range all {
		blanks := map[string]rdf.Term{}
		instantiate := func(n Node) rdf.Term {
			if !n.IsVar() {
				return n.Term
			}
			if strings.HasPrefix(n.Var, "_:") {
				if _, ok := blanks[n.Var]; !ok {
					blanks[n.Var] = ctx.freshBlank()
				}
				return blanks[n.Var]
			}
			return s[n.Var]
		}
		for _, tp := range template {
			subj, okS := model.AsSubject(instantiate(tp.S))
			pred, okP := model.AsPredicate(instantiate(tp.P))
			obj, okO := model.AsObject(instantiate(tp.O))
			if okS && okP && okO {
				g.Add(rdf.Triple{Subj: subj, Pred: pred, Obj: obj})
			}
		}
	}
	return g
}

// Answers the resources to describe: the IRIs named by the query, and the IRIs and blank nodes bound to its
// variables
func describeTargets(q *Query, where Pattern, seed Solution, all []Solution) []rdf.Term {
	targets := q.DescribeTargets
	if q.Star {
		for _, v := range patternVars(where) {
			if !isHidden(v) {
				targets = append(targets, variable(v))
			}
		}
	}

	var resources []rdf.Term
	if q.Where == nil {
		all = []Solution{seed}
	}
	for _, target := range targets {
		if !target.IsVar() {
			resources = append(resources, target.Term)
			continue
		}
		for _, s := range all {
			if t := s[target.Var]; t != nil && t.Type() != rdf.TermLiteral {
				resources = append(resources, t)
			}
		}
	}
	return resources
}
