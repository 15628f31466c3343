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

// Answers the RDF data model shared by the loader, the store, the query engine and the output formatter.
package model

import (
	"github.com/knakk/rdf"
)

const (
	RdfNsUri   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XsdNsUri   = "http://www.w3.org/2001/XMLSchema#"
	RdfTypeUri = RdfNsUri + "type"
)

// Graph is an ordered set of triples.  Triples are kept in insertion order, duplicates are dropped.
type Graph struct {
	triples []rdf.Triple
	seen    map[string]struct{}
}

func NewGraph(triples []rdf.Triple) *Graph {
	g := &Graph{seen: make(map[string]struct{})}
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

// Adds the triple to the graph, answering false if the graph already contained it.
func (g *Graph) Add(t rdf.Triple) bool {
	if g.seen == nil {
		g.seen = make(map[string]struct{})
	}
	k := TripleKey(t)
	if _, exists := g.seen[k]; exists {
		return false
	}
	g.seen[k] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

func (g *Graph) Contains(t rdf.Triple) bool {
	_, exists := g.seen[TripleKey(t)]
	return exists
}

func (g *Graph) Len() int {
	return len(g.triples)
}

// Answers the triples of the graph in insertion order.  The slice must not be modified.
func (g *Graph) Triples() []rdf.Triple {
	return g.triples
}

// Answers the distinct subjects of the graph, in order of first appearance
func (g *Graph) Subjects() []rdf.Subject {
	seen := map[string]struct{}{}
	subjects := []rdf.Subject{}
	for _, t := range g.triples {
		k := Key(t.Subj)
		if _, exists := seen[k]; !exists {
			seen[k] = struct{}{}
			subjects = append(subjects, t.Subj)
		}
	}
	return subjects
}

// Answers the triples accepted by the filter
func (g *Graph) Filter(tripleFilter func(triple rdf.Triple) bool) []rdf.Triple {
	triples := []rdf.Triple{}
	for _, triple := range g.triples {
		if tripleFilter(triple) {
			triples = append(triples, triple)
		}
	}
	return triples
}
