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
	"github.com/cockroachdb/errors"
	"github.com/knakk/rdf"
	"github.com/mattn/go-sqlite3"
	"math"
	"spahqler/logger"
	"time"
)

type retryStore struct {
	retryInterval   time.Duration
	backoffFactor   float64
	maxTries        int
	underlyingStore Store
	errors          []error
}

type retryCallback func() error

// Decorates the store, retrying operations which fail with one of the supplied sqlite3.ErrNo codes (e.g.
// sqlite3.ErrBusy when another process holds a file-backed database).  The interval between tries grows by the
// backoff factor.
func NewRetrySqliteStore(store Store, retryInterval time.Duration, backoffFactor float64, maxTries int, errors ...error) Store {
	return retryStore{
		retryInterval:   retryInterval,
		backoffFactor:   backoffFactor,
		maxTries:        maxTries,
		underlyingStore: store,
		errors:          errors,
	}
}

func (rs retryStore) Add(t rdf.Triple) error {
	return rs.retry(rs.maxTries, rs.retryInterval, func() error {
		return rs.underlyingStore.Add(t)
	})
}

func (rs retryStore) AddAll(triples []rdf.Triple) error {
	return rs.retry(rs.maxTries, rs.retryInterval, func() error {
		return AddAll(rs.underlyingStore, triples)
	})
}

func (rs retryStore) Match(s, p, o rdf.Term) ([]rdf.Triple, error) {
	var matches []rdf.Triple
	err := rs.retry(rs.maxTries, rs.retryInterval, func() error {
		var err error
		matches, err = rs.underlyingStore.Match(s, p, o)
		return err
	})
	return matches, err
}

func (rs retryStore) Len() (int, error) {
	return rs.underlyingStore.Len()
}

func (rs retryStore) Close() error {
	return rs.underlyingStore.Close()
}

func (rs retryStore) retry(triesLeft int, retryInterval time.Duration, callback retryCallback) error {
	err := callback()

	if err == nil {
		return nil
	}

	// if the error is in the list if errors we retry on, then recurse (trying again)
	for _, targetErr := range rs.errors {
		if checkError(err, targetErr) {
			logger.Logger.Debugf("retrying after sleeping for %d ms (triesLeft: %d, err: %v)", retryInterval.Milliseconds(), triesLeft, err)
			time.Sleep(retryInterval)

			triesLeft = triesLeft - 1
			if triesLeft <= 0 {
				return NewErrMaxRetry(err, rs.maxTries)
			}

			retryFloat := float64(retryInterval.Nanoseconds()) * rs.backoffFactor
			retryInterval = time.Duration(int64(math.Floor(retryFloat)))

			// only retry for the first matching error in the list
			return rs.retry(triesLeft, retryInterval, callback)
		}
	}

	return err
}

// Answers true if the caught error wraps a sqlite3.Error whose code is the target sqlite3.ErrNo
func checkError(caught, target error) bool {
	var sqliteErr sqlite3.Error
	var code sqlite3.ErrNo
	var ok bool

	if !errors.As(caught, &sqliteErr) {
		return false
	}

	if code, ok = target.(sqlite3.ErrNo); !ok {
		return false
	}

	return sqliteErr.Code == code
}
