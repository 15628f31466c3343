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

package persistence

import (
	"github.com/knakk/rdf"
	"spahqler/model"
)

// A Store held in memory, indexing triples by subject, predicate and object
type memoryStore struct {
	triples []rdf.Triple
	seen    map[string]struct{}
	// indexes map a term key to the positions of the triples having that term in the indexed position
	bySubj map[string][]int
	byPred map[string][]int
	byObj  map[string][]int
}

func NewMemoryStore() Store {
	return &memoryStore{
		seen:   make(map[string]struct{}),
		bySubj: make(map[string][]int),
		byPred: make(map[string][]int),
		byObj:  make(map[string][]int),
	}
}

func (ms *memoryStore) Add(t rdf.Triple) error {
	k := model.TripleKey(t)
	if _, exists := ms.seen[k]; exists {
		return nil
	}
	ms.seen[k] = struct{}{}

	pos := len(ms.triples)
	ms.triples = append(ms.triples, t)
	ms.bySubj[model.Key(t.Subj)] = append(ms.bySubj[model.Key(t.Subj)], pos)
	ms.byPred[model.Key(t.Pred)] = append(ms.byPred[model.Key(t.Pred)], pos)
	ms.byObj[model.Key(t.Obj)] = append(ms.byObj[model.Key(t.Obj)], pos)

	return nil
}

func (ms *memoryStore) Match(s, p, o rdf.Term) ([]rdf.Triple, error) {
	candidates := ms.candidates(s, p, o)
	matches := []rdf.Triple{}

	accept := func(t rdf.Triple) bool {
		return (s == nil || model.Equal(s, t.Subj)) &&
			(p == nil || model.Equal(p, t.Pred)) &&
			(o == nil || model.Equal(o, t.Obj))
	}

	if candidates == nil {
		for _, t := range ms.triples {
			if accept(t) {
				matches = append(matches, t)
			}
		}
		return matches, nil
	}

	for _, pos := range candidates {
		if t := ms.triples[pos]; accept(t) {
			matches = append(matches, t)
		}
	}

	return matches, nil
}

// Answers the shortest index list for the bound terms, or nil if no term is bound
func (ms *memoryStore) candidates(s, p, o rdf.Term) []int {
	var shortest []int
	found := false

	consider := func(term rdf.Term, index map[string][]int) {
		if term == nil {
			return
		}
		positions := index[model.Key(term)]
		if !found || len(positions) < len(shortest) {
			shortest = positions
			found = true
		}
	}

	consider(s, ms.bySubj)
	consider(p, ms.byPred)
	consider(o, ms.byObj)

	if found && shortest == nil {
		return []int{}
	}
	return shortest
}

func (ms *memoryStore) Len() (int, error) {
	return len(ms.triples), nil
}

func (ms *memoryStore) Close() error {
	return nil
}
