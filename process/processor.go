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

// Runs a single query invocation: bindings are parsed, the query resolved, the graph loaded into a triple store, the
// query evaluated and the result written.
package process

import (
	"context"
	"github.com/cockroachdb/errors"
	"github.com/knakk/rdf"
	"github.com/mattn/go-sqlite3"
	"io"
	"net/http"
	"spahqler/logger"
	"spahqler/output"
	"spahqler/persistence"
	"spahqler/query"
	"spahqler/retrieve"
	"spahqler/sparql"
	"strings"
	"time"
)

const (
	MemoryStore = "memory"
	SqliteStore = "sqlite"
)

type Config struct {
	// inline query text, or the path of a query file
	Query string
	// path or http(s) URI of the graph data
	Graph string
	// raw 'name=<uri>' or 'name="literal"' bindings, in command line order
	Bindings []string
	// format tag of the graph data
	GraphFormat string
	// format tag used to serialize CONSTRUCT and DESCRIBE results
	OutputFormat string
	// 'memory' or 'sqlite'
	Store     string
	SqliteDsn string
	// timeout of http(s) graph retrieval, zero for none
	HttpTimeoutMs int
	UserAgent     string
}

// Executes the query described by the Config against its graph, writing the result to w.  The first error aborts
// the run; nothing is written to w unless the query was evaluated successfully.
func Run(ctx context.Context, cfg Config, w io.Writer) error {
	bindings, err := query.ParseBindings(cfg.Bindings)
	if err != nil {
		return err
	}

	text, err := query.Resolve(cfg.Query)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return errors.Wrapf(err, "unable to open the %s triple store", cfg.Store)
	}
	defer func() { _ = store.Close() }()

	if err := load(ctx, cfg, store); err != nil {
		return err
	}

	result, err := sparql.New(store).Query(text, bindings)
	if err != nil {
		return err
	}
	logger.Logger.Debugw("evaluated query", "result", result.Type, "vars", result.Vars)

	return output.Write(w, result, cfg.OutputFormat)
}

// Loads the graph named by the Config into the store
func load(ctx context.Context, cfg Config, store persistence.Store) error {
	var triples []rdf.Triple
	var err error

	client := &http.Client{Timeout: time.Duration(cfg.HttpTimeoutMs) * time.Millisecond}
	if triples, err = retrieve.New(client, cfg.UserAgent).Load(ctx, cfg.Graph, cfg.GraphFormat); err != nil {
		return err
	}

	if err = persistence.AddAll(store, triples); err != nil {
		return errors.Wrapf(err, "unable to store the graph %s", cfg.Graph)
	}

	if n, err := store.Len(); err == nil {
		logger.Logger.Debugw("stored graph", "graph", cfg.Graph, "store", cfg.Store, "triples", n)
	}
	return nil
}

// Answers the triple store selected by the Config
func newStore(ctx context.Context, cfg Config) (persistence.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "", MemoryStore:
		return persistence.NewMemoryStore(), nil
	case SqliteStore:
		s, err := persistence.NewSqliteStore(cfg.SqliteDsn, persistence.SqliteParams{
			MaxIdleConn: 4,
			MaxOpenConn: 4,
		}, ctx)
		if err != nil {
			return nil, err
		}
		// a file-backed database may be shared with other invocations
		return persistence.NewRetrySqliteStore(s, 500*time.Millisecond, 1.5, 3, sqlite3.ErrBusy, sqlite3.ErrLocked), nil
	default:
		return nil, errors.Newf("unsupported store '%s', expected '%s' or '%s'", cfg.Store, MemoryStore, SqliteStore)
	}
}
