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
	"spahqler/model"
)

// Path is a property path expression
type Path interface {
	String() string
}

type linkPath struct {
	iri rdf.IRI
}

type inversePath struct {
	path Path
}

type sequencePath struct {
	left, right Path
}

type alternativePath struct {
	left, right Path
}

// repeatPath is p? (max 1), p* and p+ (max -1, unbounded)
type repeatPath struct {
	path Path
	min  int
	max  int
}

func (p *linkPath) String() string {
	return model.Key(p.iri)
}

func (p *inversePath) String() string {
	return "^" + p.path.String()
}

func (p *sequencePath) String() string {
	return "(" + p.left.String() + "/" + p.right.String() + ")"
}

func (p *alternativePath) String() string {
	return "(" + p.left.String() + "|" + p.right.String() + ")"
}

func (p *repeatPath) String() string {
	switch {
	case p.max == 1:
		return p.path.String() + "?"
	case p.min == 0:
		return p.path.String() + "*"
	default:
		return p.path.String() + "+"
	}
}

// pair is a (start, end) node pair connected by a path
type pair [2]rdf.Term

// Answers the node pairs connected by the path; subj and obj restrict the start and end when not nil
func (ctx *evalContext) evalPath(p Path, subj, obj rdf.Term) ([]pair, error) {
	switch p := p.(type) {
	case *linkPath:
		if _, ok := subj.(rdf.Literal); ok {
			return nil, nil
		}
		triples, err := ctx.store.Match(subj, p.iri, obj)
		if err != nil {
			return nil, err
		}
		pairs := make([]pair, len(triples))
		for i, t := range triples {
			pairs[i] = pair{t.Subj, t.Obj}
		}
		return pairs, nil
	case *inversePath:
		pairs, err := ctx.evalPath(p.path, obj, subj)
		for i := range pairs {
			pairs[i][0], pairs[i][1] = pairs[i][1], pairs[i][0]
		}
		return pairs, err
	case *sequencePath:
		return ctx.evalSequence(p, subj, obj)
	case *alternativePath:
		left, err := ctx.evalPath(p.left, subj, obj)
		if err != nil {
			return nil, err
		}
		right, err := ctx.evalPath(p.right, subj, obj)
		return append(left, right...), err
	case *repeatPath:
		return ctx.evalRepeat(p, subj, obj)
	}
	return nil, nil
}

// Joins the two halves of a sequence, starting from whichever end is bound
func (ctx *evalContext) evalSequence(p *sequencePath, subj, obj rdf.Term) ([]pair, error) {
	var out []pair
	if subj == nil && obj != nil {
		right, err := ctx.evalPath(p.right, nil, obj)
		if err != nil {
			return nil, err
		}
		for _, r := range right {
			left, err := ctx.evalPath(p.left, nil, r[0])
			if err != nil {
				return nil, err
			}
			for _, l := range left {
				out = append(out, pair{l[0], r[1]})
			}
		}
		return out, nil
	}

	left, err := ctx.evalPath(p.left, subj, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range left {
		right, err := ctx.evalPath(p.right, l[1], obj)
		if err != nil {
			return nil, err
		}
		for _, r := range right {
			out = append(out, pair{l[0], r[1]})
		}
	}
	return out, nil
}

// Evaluates p?, p* and p+ with set semantics: each connected pair is answered once
func (ctx *evalContext) evalRepeat(p *repeatPath, subj, obj rdf.Term) ([]pair, error) {
	if subj == nil && obj != nil {
		pairs, err := ctx.evalRepeat(&repeatPath{path: &inversePath{path: p.path}, min: p.min, max: p.max}, obj, nil)
		for i := range pairs {
			pairs[i][0], pairs[i][1] = pairs[i][1], pairs[i][0]
		}
		return pairs, err
	}

	var starts []rdf.Term
	if subj != nil {
		starts = []rdf.Term{subj}
	} else {
		var err error
		if starts, err = ctx.allNodes(); err != nil {
			return nil, err
		}
	}

	var out []pair
	for _, start := range starts {
		reached, err := ctx.reachable(p, start)
		if err != nil {
			return nil, err
		}
		for _, end := range reached {
			if obj == nil || model.Equal(obj, end) {
				out = append(out, pair{start, end})
			}
		}
	}
	return out, nil
}

// Answers the nodes reachable from start in at least min and at most max steps of the path, breadth first
func (ctx *evalContext) reachable(p *repeatPath, start rdf.Term) ([]rdf.Term, error) {
	var reached []rdf.Term
	seen := map[string]bool{}
	if p.min == 0 {
		reached = append(reached, start)
		seen[model.Key(start)] = true
	}

	visited := map[string]bool{model.Key(start): true}
	frontier := []rdf.Term{start}
	for depth := 1; len(frontier) > 0 && (p.max < 0 || depth <= p.max); depth++ {
		var next []rdf.Term
		for _, node := range frontier {
			steps, err := ctx.evalPath(p.path, node, nil)
			if err != nil {
				return nil, err
			}
			for _, step := range steps {
				k := model.Key(step[1])
				if !seen[k] {
					seen[k] = true
					reached = append(reached, step[1])
				}
				if !visited[k] {
					visited[k] = true
					next = append(next, step[1])
				}
			}
		}
		frontier = next
	}
	return reached, nil
}

// Answers every subject and object in the store, each once
func (ctx *evalContext) allNodes() ([]rdf.Term, error) {
	triples, err := ctx.store.Match(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var nodes []rdf.Term
	seen := map[string]bool{}
	for _, t := range triples {
		for _, n := range []rdf.Term{t.Subj, t.Obj} {
			if k := model.Key(n); !seen[k] {
				seen[k] = true
				nodes = append(nodes, n)
			}
		}
	}
	return nodes, nil
}
