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

package query

import (
	"fmt"
	"os"
	"strings"
)

// The query file could not be read
type QueryFileError struct {
	Path    string
	Wrapped error
}

func (e *QueryFileError) Error() string {
	return fmt.Sprintf("query: unable to read query file %s: %s", e.Path, e.Wrapped)
}

func (e *QueryFileError) Unwrap() error {
	return e.Wrapped
}

// Answers true if the argument is query text rather than the path of a query file.  Any argument containing '{'
// is query text, so a file whose path contains '{' can not be used as a query file.
func IsInline(arg string) bool {
	return strings.Contains(arg, "{")
}

// Answers the query text for the argument: the argument itself if it is inline query text, otherwise the content of
// the file it names.  There is no fallback to treating a missing file as query text.
func Resolve(arg string) (string, error) {
	if IsInline(arg) {
		return arg, nil
	}

	b, err := os.ReadFile(arg)
	if err != nil {
		return "", &QueryFileError{Path: arg, Wrapped: err}
	}

	return string(b), nil
}
