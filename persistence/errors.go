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
	"fmt"
	"strings"
)

const (
	begin    = "begin"
	commit   = "commit"
	rollback = "rollback"
)

func NewErrQuery(query string, err error, pkg, method string, args ...string) StoreErr {
	return StoreErr{
		Message:    fmt.Sprintf("%s: %s error executing query '%s' with args [%s]: %v", pkg, method, query, strings.Join(args, ", "), err),
		Underlying: err,
	}
}

func NewErrRowScan(query string, err error, pkg, method string, args ...string) StoreErr {
	return StoreErr{
		Message:    fmt.Sprintf("%s: %s error scanning the result of query '%s' with args [%s]: %v", pkg, method, query, strings.Join(args, ", "), err),
		Underlying: err,
	}
}

func NewErrTx(op, target string, err error, pkg, method string) StoreErr {
	return StoreErr{
		Message:    fmt.Sprintf("%s: %s error performing %s of transaction for %s: %v", pkg, method, op, target, err),
		Underlying: err,
	}
}

func NewErrDecodeTerm(key string, err error, pkg, method string) StoreErr {
	return StoreErr{
		Message:    fmt.Sprintf("%s: %s error decoding stored term %s: %v", pkg, method, key, err),
		Underlying: err,
	}
}

func NewErrOpen(dsn string, err error, pkg, method string) StoreErr {
	return StoreErr{
		Message:    fmt.Sprintf("%s: %s error opening database %s: %v", pkg, method, dsn, err),
		Underlying: err,
	}
}

// Wraps an error raised by a retrying Store when the maximum number of tries has been exhausted
func NewErrMaxRetry(err error, maxTries int) StoreErr {
	return StoreErr{
		Message:    fmt.Sprintf("persistence: giving up after %d tries: %v", maxTries, err),
		Underlying: err,
	}
}
