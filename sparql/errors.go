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
)

// The query text is not valid in the supported SPARQL subset
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// The query could not be parsed, or failed while it was evaluated against the store
type QueryExecutionError struct {
	Message string
	Wrapped error
}

func (e *QueryExecutionError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("sparql: %s: %s", e.Message, e.Wrapped)
	}
	return fmt.Sprintf("sparql: %s", e.Message)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Wrapped
}

func parseFailure(err error) error {
	return &QueryExecutionError{Message: "error parsing query", Wrapped: err}
}

func evalFailure(err error) error {
	if _, ok := err.(*QueryExecutionError); ok {
		return err
	}
	return &QueryExecutionError{Message: "error evaluating query", Wrapped: err}
}
