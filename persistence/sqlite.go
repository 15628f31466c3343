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
	"context"
	"database/sql"
	"fmt"
	"github.com/knakk/rdf"
	_ "github.com/mattn/go-sqlite3"
	"spahqler/logger"
	"spahqler/model"
	"strings"
)

const (
	createTermsTable   = "CREATE TABLE IF NOT EXISTS main.terms (id INTEGER PRIMARY KEY, term text UNIQUE NOT NULL)"
	createTriplesTable = "CREATE TABLE IF NOT EXISTS main.triples (seq INTEGER PRIMARY KEY AUTOINCREMENT, s integer NOT NULL, p integer NOT NULL, o integer NOT NULL, UNIQUE (s, p, o))"
	createSubjIdx      = "CREATE INDEX IF NOT EXISTS main.subj_index ON triples (s)"
	createPredIdx      = "CREATE INDEX IF NOT EXISTS main.pred_index ON triples (p)"
	createObjIdx       = "CREATE INDEX IF NOT EXISTS main.obj_index ON triples (o)"
	insertTerm         = "INSERT OR IGNORE INTO main.terms (term) VALUES (?)"
	selectTermId       = "SELECT id FROM main.terms WHERE term = ?"
	selectTermById     = "SELECT term FROM main.terms WHERE id = ?"
	insertTriple       = "INSERT OR IGNORE INTO main.triples (s, p, o) VALUES (?, ?, ?)"
	selectTriples      = "SELECT s, p, o FROM main.triples"
	orderTriples       = " ORDER BY seq"
	countTriples       = "SELECT count(*) FROM main.triples"
)

type SqliteParams struct {
	MaxIdleConn int
	MaxOpenConn int
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqliteStore struct {
	ctx context.Context
	db  *sql.DB
	// caches of the terms table, populated as terms are written or read
	ids   map[string]int64
	terms map[int64]rdf.Term
}

// Opens (creating if necessary) a sqlite triple store identified by the DSN.  Triples written to a file DSN outlive
// the process; loading the same graph again is idempotent.
func NewSqliteStore(dsn string, params SqliteParams, ctx context.Context) (Store, error) {
	var db *sql.DB
	var err error

	if ctx == nil {
		ctx = context.Background()
	}

	if db, err = sql.Open("sqlite3", dsn); err != nil {
		return nil, NewErrOpen(dsn, err, "persistence", "NewSqliteStore")
	}

	if params.MaxIdleConn > 0 {
		db.SetMaxIdleConns(params.MaxIdleConn)
	}

	if params.MaxOpenConn > 0 {
		db.SetMaxOpenConns(params.MaxOpenConn)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, NewErrOpen(dsn, err, "persistence", "NewSqliteStore")
	}

	for _, ddl := range []string{createTermsTable, createTriplesTable, createSubjIdx, createPredIdx, createObjIdx} {
		if _, err = db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, NewErrQuery(ddl, err, "persistence", "NewSqliteStore")
		}
	}

	logger.Logger.Debugw("opened sqlite store", "dsn", dsn)

	return &sqliteStore{
		ctx:   ctx,
		db:    db,
		ids:   make(map[string]int64),
		terms: make(map[int64]rdf.Term),
	}, nil
}

func (store *sqliteStore) Add(t rdf.Triple) error {
	return store.addTriple(store.db, t)
}

// Adds all of the triples in a single transaction
func (store *sqliteStore) AddAll(triples []rdf.Triple) error {
	var tx *sql.Tx
	var err error

	if tx, err = store.db.BeginTx(store.ctx, nil); err != nil {
		return NewErrTx(begin, fmt.Sprintf("%d triples", len(triples)), err, "persistence", "AddAll")
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Logger.Warnf("%v", NewErrTx(rollback, fmt.Sprintf("%d triples", len(triples)), err, "persistence", "AddAll"))
		}
	}()

	// ids assigned inside the transaction are only valid once it commits
	pending := newPendingTerms()
	for _, t := range triples {
		if err = store.addTripleTx(tx, t, pending); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return NewErrTx(commit, fmt.Sprintf("%d triples", len(triples)), err, "persistence", "AddAll")
	}

	store.cache(pending)

	return nil
}

func (store *sqliteStore) addTriple(q queryer, t rdf.Triple) error {
	pending := newPendingTerms()
	if err := store.addTripleTx(q, t, pending); err != nil {
		return err
	}
	store.cache(pending)
	return nil
}

// Terms written but not yet known to be committed
type pendingTerms struct {
	ids   map[string]int64
	terms map[int64]rdf.Term
}

func newPendingTerms() pendingTerms {
	return pendingTerms{ids: make(map[string]int64), terms: make(map[int64]rdf.Term)}
}

func (store *sqliteStore) cache(pending pendingTerms) {
	for k, id := range pending.ids {
		store.ids[k] = id
		store.terms[id] = pending.terms[id]
	}
}

func (store *sqliteStore) addTripleTx(q queryer, t rdf.Triple, pending pendingTerms) error {
	var ids [3]int64
	for i, term := range []rdf.Term{t.Subj, t.Pred, t.Obj} {
		id, err := store.writeTerm(q, term, pending)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	if _, err := q.ExecContext(store.ctx, insertTriple, ids[0], ids[1], ids[2]); err != nil {
		return NewErrQuery(insertTriple, err, "persistence", "Add", model.TripleKey(t))
	}

	return nil
}

// Answers the id of the term, inserting it into the terms table if it isn't present
func (store *sqliteStore) writeTerm(q queryer, term rdf.Term, pending pendingTerms) (int64, error) {
	k := model.Key(term)
	if id, exists := store.ids[k]; exists {
		return id, nil
	}
	if id, exists := pending.ids[k]; exists {
		return id, nil
	}

	if _, err := q.ExecContext(store.ctx, insertTerm, k); err != nil {
		return 0, NewErrQuery(insertTerm, err, "persistence", "writeTerm", k)
	}

	var id int64
	if err := q.QueryRowContext(store.ctx, selectTermId, k).Scan(&id); err != nil {
		return 0, NewErrRowScan(selectTermId, err, "persistence", "writeTerm", k)
	}

	pending.ids[k] = id
	pending.terms[id] = term

	return id, nil
}

func (store *sqliteStore) Match(s, p, o rdf.Term) ([]rdf.Triple, error) {
	var clauses []string
	var args []interface{}

	for i, term := range []rdf.Term{s, p, o} {
		if term == nil {
			continue
		}
		id, found, err := store.lookupTerm(term)
		if err != nil {
			return nil, err
		}
		if !found {
			// a term that was never stored can't match anything
			return []rdf.Triple{}, nil
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", []string{"s", "p", "o"}[i]))
		args = append(args, id)
	}

	query := selectTriples
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderTriples

	rows, err := store.db.QueryContext(store.ctx, query, args...)
	if err != nil {
		return nil, NewErrQuery(query, err, "persistence", "Match")
	}

	defer rows.Close()

	var ids [][3]int64
	for rows.Next() {
		var sid, pid, oid int64
		if err = rows.Scan(&sid, &pid, &oid); err != nil {
			return nil, NewErrRowScan(query, err, "persistence", "Match")
		}
		ids = append(ids, [3]int64{sid, pid, oid})
	}
	if err = rows.Err(); err != nil {
		return nil, NewErrQuery(query, err, "persistence", "Match")
	}
	rows.Close()

	matches := make([]rdf.Triple, 0, len(ids))
	for _, row := range ids {
		t, err := store.triple(row)
		if err != nil {
			return nil, err
		}
		matches = append(matches, t)
	}

	return matches, nil
}

func (store *sqliteStore) triple(ids [3]int64) (rdf.Triple, error) {
	var terms [3]rdf.Term
	for i, id := range ids {
		term, err := store.readTerm(id)
		if err != nil {
			return rdf.Triple{}, err
		}
		terms[i] = term
	}

	subj, okS := model.AsSubject(terms[0])
	pred, okP := model.AsPredicate(terms[1])
	obj, okO := model.AsObject(terms[2])
	if !okS || !okP || !okO {
		return rdf.Triple{}, NewErrDecodeTerm(fmt.Sprintf("%v", ids), fmt.Errorf("terms not valid in their triple positions"), "persistence", "triple")
	}

	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

// Answers the term with the id, reading it from the terms table if it isn't cached
func (store *sqliteStore) readTerm(id int64) (rdf.Term, error) {
	if term, exists := store.terms[id]; exists {
		return term, nil
	}

	var k string
	if err := store.db.QueryRowContext(store.ctx, selectTermById, id).Scan(&k); err != nil {
		return nil, NewErrRowScan(selectTermById, err, "persistence", "readTerm", fmt.Sprintf("%d", id))
	}

	term, err := model.ParseTerm(k)
	if err != nil {
		return nil, NewErrDecodeTerm(k, err, "persistence", "readTerm")
	}

	store.terms[id] = term
	store.ids[k] = id

	return term, nil
}

func (store *sqliteStore) lookupTerm(term rdf.Term) (int64, bool, error) {
	k := model.Key(term)
	if id, exists := store.ids[k]; exists {
		return id, true, nil
	}

	var id int64
	if err := store.db.QueryRowContext(store.ctx, selectTermId, k).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, NewErrRowScan(selectTermId, err, "persistence", "lookupTerm", k)
	}

	store.ids[k] = id
	return id, true, nil
}

func (store *sqliteStore) Len() (int, error) {
	var count int
	if err := store.db.QueryRowContext(store.ctx, countTriples).Scan(&count); err != nil {
		return 0, NewErrRowScan(countTriples, err, "persistence", "Len")
	}
	return count, nil
}

func (store *sqliteStore) Close() error {
	return store.db.Close()
}
