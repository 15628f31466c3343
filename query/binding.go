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

// Parses the initial variable bindings and resolves the query text supplied on the command line.
package query

import (
	"fmt"
	"github.com/knakk/rdf"
	"regexp"
	"spahqler/logger"
)

const (
	Reference Kind = iota
	Literal
)

// The kind of value a Binding carries: a reference (IRI) delimited by angle brackets, or a literal delimited by
// double quotes.
type Kind int

func (k Kind) String() string {
	switch k {
	case Reference:
		return "reference"
	case Literal:
		return "literal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Matches name=<value> and name="value".  The value is greedy: it extends to the last delimiter on the line.
var bindingPattern = regexp.MustCompile(`^([\p{L}\p{N}_]+)=([<"])(.*)([">])$`)

// A Binding pre-assigns a value to a query variable, e.g. x=<http://example.org/x> or y="some text"
type Binding struct {
	Name  string
	Kind  Kind
	Value string
}

// Answers the RDF term for the value of the Binding: an IRI for a Reference, a plain literal for a Literal.
func (b Binding) Term() (rdf.Term, error) {
	if b.Kind == Literal {
		return rdf.NewLiteral(b.Value)
	}
	return rdf.NewIRI(b.Value)
}

// The binding does not have the shape name=<value> or name="value"
type BindingSyntaxError struct {
	Binding string
	Wrapped error
}

func (e *BindingSyntaxError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("query: bad binding %s: %s", e.Binding, e.Wrapped)
	}
	return fmt.Sprintf("query: bad binding %s", e.Binding)
}

func (e *BindingSyntaxError) Unwrap() error {
	return e.Wrapped
}

// The opening and closing delimiters of the binding value are not a matching pair
type BindingDelimiterMismatchError struct {
	Open, Close string
	Binding     string
}

func (e *BindingDelimiterMismatchError) Error() string {
	return fmt.Sprintf("query: mismatching delimiters %s and %s in binding %s", e.Open, e.Close, e.Binding)
}

// Parses a single binding string
func ParseBinding(raw string) (Binding, error) {
	m := bindingPattern.FindStringSubmatch(raw)
	if m == nil {
		return Binding{}, &BindingSyntaxError{Binding: raw}
	}

	name, opening, value, closing := m[1], m[2], m[3], m[4]

	switch {
	case opening == "<" && closing == ">":
		return Binding{Name: name, Kind: Reference, Value: value}, nil
	case opening == `"` && closing == `"`:
		return Binding{Name: name, Kind: Literal, Value: value}, nil
	default:
		return Binding{}, &BindingDelimiterMismatchError{Open: opening, Close: closing, Binding: raw}
	}
}

// Parses the binding strings into a map of variable name to RDF term.  A name that is bound more than once keeps
// the value of its last binding.
func ParseBindings(raw []string) (map[string]rdf.Term, error) {
	bindings := make(map[string]rdf.Term, len(raw))

	for _, r := range raw {
		b, err := ParseBinding(r)
		if err != nil {
			return nil, err
		}

		term, err := b.Term()
		if err != nil {
			return nil, &BindingSyntaxError{Binding: r, Wrapped: err}
		}

		if previous, exists := bindings[b.Name]; exists {
			logger.Logger.Debugw("binding overwritten", "variable", b.Name, "previous", previous.String(), "value", term.String())
		}
		bindings[b.Name] = term
	}

	return bindings, nil
}
