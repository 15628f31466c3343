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
	"github.com/yourbasic/graph"
	"spahqler/model"
)

// Answers the Concise Bounded Description of the resources: every triple whose subject is one of the resources, or a
// blank node reachable from one of them through the objects of such triples.
func (ctx *evalContext) describe(resources []rdf.Term) (*model.Graph, error) {
	result := model.NewGraph(nil)
	if len(resources) == 0 {
		return result, nil
	}

	triples, err := ctx.store.Match(nil, nil, nil)
	if err != nil {
		return nil, err
	}

	// number every node, then link each subject to its blank node objects
	index := map[string]int{}
	vertex := func(t rdf.Term) int {
		k := model.Key(t)
		if v, ok := index[k]; ok {
			return v
		}
		index[k] = len(index)
		return index[k]
	}
	for _, t := range triples {
		vertex(t.Subj)
		vertex(t.Obj)
	}
	g := graph.New(len(index))
	for _, t := range triples {
		if t.Obj.Type() == rdf.TermBlank {
			g.Add(vertex(t.Subj), vertex(t.Obj))
		}
	}

	described := map[int]bool{}
	for _, r := range resources {
		start, ok := index[model.Key(r)]
		if !ok || described[start] {
			continue
		}
		described[start] = true
		graph.BFS(g, start, func(_, w int, _ int64) {
			described[w] = true
		})
	}

	for _, t := range triples {
		if described[index[model.Key(t.Subj)]] {
			result.Add(t)
		}
	}
	return result, nil
}
