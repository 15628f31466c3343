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

// The shape of a query result, decided by the query form
type ResultType int

const (
	Rows ResultType = iota
	Graph
	Boolean
)

func (t ResultType) String() string {
	switch t {
	case Rows:
		return "rows"
	case Graph:
		return "graph"
	default:
		return "boolean"
	}
}

// Result is produced by executing a query: rows for SELECT, a graph for CONSTRUCT and DESCRIBE, a boolean for ASK
type Result struct {
	Type ResultType

	// Vars names the columns of each row, in projection order
	Vars []string
	Rows RowIterator

	Graph *model.Graph

	Boolean bool
}

// RowIterator is a single-pass, lazily evaluated sequence of result rows.  A row holds one term per variable of the
// Result, in the same order; an unbound variable is a nil term.
type RowIterator interface {
	Next() bool
	Row() []rdf.Term
	// Err answers the error that stopped iteration, if any
	Err() error
	Close() error
}

type rowIterator struct {
	vars   []string
	source solutions
	row    []rdf.Term
	closed bool
}

func (it *rowIterator) Next() bool {
	if it.closed || !it.source.Next() {
		it.row = nil
		return false
	}
	s := it.source.Solution()
	it.row = make([]rdf.Term, len(it.vars))
	for i, v := range it.vars {
		it.row[i] = s[v]
	}
	return true
}

func (it *rowIterator) Row() []rdf.Term {
	return it.row
}

func (it *rowIterator) Err() error {
	if err := it.source.Err(); err != nil {
		return evalFailure(err)
	}
	return nil
}

func (it *rowIterator) Close() error {
	it.closed = true
	it.row = nil
	return nil
}
