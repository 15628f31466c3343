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
	"github.com/knakk/rdf"
	"sort"
	"spahqler/model"
	"strings"
)

// aggregateExpr is COUNT, SUM, MIN, MAX, AVG, SAMPLE or GROUP_CONCAT.  Grouping computes its value once per group
// and binds it to key, where Eval finds it.
type aggregateExpr struct {
	name      string
	distinct  bool
	arg       Expr
	separator string
	key       string
}

func (a *aggregateExpr) Eval(_ *evalContext, s Solution) (rdf.Term, error) {
	if t := s[a.key]; t != nil {
		return t, nil
	}
	return nil, errType
}

// Partitions the solutions by the GROUP BY keys and answers one solution per group, holding the group keys and the
// value of each aggregate.  Without GROUP BY all solutions form a single group, even when there are none.
func (ctx *evalContext) group(it solutions, q *Query) solutions {
	all, err := collect(it)
	if err != nil {
		return failed(err)
	}

	type group struct {
		keys    Solution
		members []Solution
	}
	var groups []*group
	byKey := map[string]*group{}

	if len(q.GroupBy) == 0 {
		groups = append(groups, &group{keys: Solution{}, members: all})
	}
	if len(q.GroupBy) > 0 {
		for _, s := range all {
			keys := Solution{}
			var sb strings.Builder
			for _, c := range q.GroupBy {
				v, err := c.Expr.Eval(ctx, s)
				if isFatal(err) {
					return failed(err)
				}
				if err != nil {
					v = nil
				}
				sb.WriteString(model.Key(v))
				sb.WriteByte(0)
				if name := groupVar(c); name != "" && v != nil {
					keys[name] = v
				}
			}
			g, ok := byKey[sb.String()]
			if !ok {
				g = &group{keys: keys}
				byKey[sb.String()] = g
				groups = append(groups, g)
			}
			g.members = append(g.members, s)
		}
	}

	out := make([]Solution, 0, len(groups))
	for _, g := range groups {
		s := g.keys
		for _, a := range q.aggregates {
			v, err := ctx.aggregate(a, g.members)
			if isFatal(err) {
				return failed(err)
			}
			if err == nil && v != nil {
				s[a.key] = v
			}
		}
		out = append(out, s)
	}
	return &sliceSolutions{items: out}
}

// Answers the variable a GROUP BY condition binds: its AS variable, or the variable it names
func groupVar(c GroupCondition) string {
	if c.Var != "" {
		return c.Var
	}
	if v, ok := c.Expr.(*varExpr); ok {
		return v.name
	}
	return ""
}

func (ctx *evalContext) aggregate(a *aggregateExpr, members []Solution) (rdf.Term, error) {
	if a.arg == nil {
		if a.distinct {
			seen := map[string]bool{}
			for _, s := range members {
				seen[s.key(sortedKeys(s))] = true
			}
			return newInteger(int64(len(seen))), nil
		}
		return newInteger(int64(len(members))), nil
	}

	var values []rdf.Term
	seen := map[string]bool{}
	for _, s := range members {
		v, err := a.arg.Eval(ctx, s)
		if isFatal(err) {
			return nil, err
		}
		if err != nil || v == nil {
			continue
		}
		if a.distinct {
			k := model.Key(v)
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		values = append(values, v)
	}

	switch a.name {
	case "COUNT":
		return newInteger(int64(len(values))), nil
	case "SUM", "AVG":
		var sum rdf.Term = newInteger(0)
		for _, v := range values {
			var err error
			if sum, err = arithmetic("+", sum, v); err != nil {
				return nil, err
			}
		}
		if a.name == "SUM" || len(values) == 0 {
			return sum, nil
		}
		return arithmetic("/", sum, newInteger(int64(len(values))))
	case "MIN", "MAX":
		if len(values) == 0 {
			return nil, errType
		}
		best := values[0]
		for _, v := range values[1:] {
			c := orderTerms(v, best)
			if (a.name == "MIN" && c < 0) || (a.name == "MAX" && c > 0) {
				best = v
			}
		}
		return best, nil
	case "SAMPLE":
		if len(values) == 0 {
			return nil, errType
		}
		return values[0], nil
	default:
		parts := make([]string, len(values))
		for i, v := range values {
			if v.Type() == rdf.TermBlank {
				return nil, errType
			}
			parts[i] = model.Value(v)
		}
		return newString(strings.Join(parts, a.separator)), nil
	}
}

func sortedKeys(s Solution) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
