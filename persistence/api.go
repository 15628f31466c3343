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

// Triple stores holding the graph a query is evaluated against.
package persistence

import (
	"github.com/knakk/rdf"
)

type StoreErr struct {
	Message    string
	Underlying error
}

func (se StoreErr) Error() string {
	return se.Message
}

func (se StoreErr) Unwrap() error {
	return se.Underlying
}

// A Store holds the triples of a single graph.
type Store interface {
	// Adds the triple; adding a triple that is already present is a noop
	Add(t rdf.Triple) error

	// Answers the triples matching the supplied terms, in insertion order.  A nil term matches anything.
	Match(s, p, o rdf.Term) ([]rdf.Triple, error)

	// Answers the number of triples in the store
	Len() (int, error)

	Close() error
}

// Implemented by stores which can add many triples more efficiently than one at a time
type batchAdder interface {
	AddAll(triples []rdf.Triple) error
}

// Adds each triple to the store, stopping at the first error
func AddAll(s Store, triples []rdf.Triple) error {
	if b, ok := s.(batchAdder); ok {
		return b.AddAll(triples)
	}
	for _, t := range triples {
		if err := s.Add(t); err != nil {
			return err
		}
	}
	return nil
}
