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
	"github.com/cockroachdb/errors"
	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"spahqler/model"
	"spahqler/persistence"
	"testing"
)

const prologue = `PREFIX ex: <http://example.org/>
PREFIX foaf: <http://xmlns.com/foaf/0.1/>
`

func newTestEngine(t *testing.T) *Engine {
	f, err := os.Open("testdata/people.nt")
	require.Nil(t, err)
	defer f.Close()
	triples, err := rdf.NewTripleDecoder(f, rdf.NTriples).DecodeAll()
	require.Nil(t, err)

	store := persistence.NewMemoryStore()
	require.Nil(t, persistence.AddAll(store, triples))
	return New(store)
}

func iri(s string) rdf.IRI {
	i, _ := rdf.NewIRI(s)
	return i
}

// Runs a SELECT query and answers its rows as plain strings; unbound values are empty
func selectRows(t *testing.T, e *Engine, query string, bindings map[string]rdf.Term) [][]string {
	result, err := e.Query(prologue+query, bindings)
	require.Nil(t, err)
	require.Equal(t, Rows, result.Type)
	defer result.Rows.Close()

	rows := [][]string{}
	for result.Rows.Next() {
		var values []string
		for _, term := range result.Rows.Row() {
			values = append(values, model.Value(term))
		}
		rows = append(rows, values)
	}
	require.Nil(t, result.Rows.Err())
	return rows
}

func column(rows [][]string, i int) []string {
	var values []string
	for _, row := range rows {
		values = append(values, row[i])
	}
	return values
}

func Test_SelectOrderBy(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT ?name WHERE { ?p foaf:name ?name } ORDER BY ?name`, nil)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, column(rows, 0))

	rows = selectRows(t, newTestEngine(t), `SELECT ?name WHERE { ?p foaf:name ?name } ORDER BY DESC(?name)`, nil)
	assert.Equal(t, []string{"Dave", "Carol", "Bob", "Alice"}, column(rows, 0))
}

func Test_SelectWithBinding(t *testing.T) {
	e := newTestEngine(t)
	bindings := map[string]rdf.Term{"p": iri("http://example.org/bob")}

	rows := selectRows(t, e, `SELECT ?name WHERE { ?p foaf:name ?name }`, bindings)
	assert.Equal(t, [][]string{{"Bob"}}, rows)

	result, err := e.Query(prologue+`SELECT * WHERE { ?p foaf:name ?name }`, bindings)
	require.Nil(t, err)
	assert.Equal(t, []string{"p", "name"}, result.Vars)
	require.True(t, result.Rows.Next())
	assert.Equal(t, "http://example.org/bob", result.Rows.Row()[0].String())
	assert.False(t, result.Rows.Next())
}

func Test_SelectBindingNotInPattern(t *testing.T) {
	bindings := map[string]rdf.Term{"unused": iri("http://example.org/x")}
	rows := selectRows(t, newTestEngine(t), `SELECT ?p WHERE { ?p a foaf:Person } ORDER BY ?p`, bindings)
	assert.Equal(t, []string{"http://example.org/alice", "http://example.org/bob"}, column(rows, 0))
}

func Test_SelectLiteralBinding(t *testing.T) {
	name, _ := rdf.NewLiteral("Carol")
	rows := selectRows(t, newTestEngine(t), `SELECT ?p WHERE { ?p foaf:name ?name }`, map[string]rdf.Term{"name": name})
	assert.Equal(t, [][]string{{"http://example.org/carol"}}, rows)
}

func Test_SelectStarHidesBlankNodes(t *testing.T) {
	result, err := newTestEngine(t).Query(prologue+`SELECT * WHERE { ?p foaf:knows [ foaf:name ?n ] }`, nil)
	require.Nil(t, err)
	assert.Equal(t, []string{"p", "n"}, result.Vars)
}

func Test_Filter(t *testing.T) {
	e := newTestEngine(t)
	rows := selectRows(t, e, `SELECT ?p WHERE { ?p foaf:age ?a FILTER(?a > 28) } ORDER BY ?p`, nil)
	assert.Equal(t, []string{"http://example.org/alice", "http://example.org/carol"}, column(rows, 0))

	// comparing strings to a number is a type error, which filters the row out
	rows = selectRows(t, e, `SELECT ?n WHERE { ?p foaf:name ?n FILTER(?n > 3) }`, nil)
	assert.Empty(t, rows)

	rows = selectRows(t, e, `SELECT ?n WHERE { ?p foaf:name ?n FILTER regex(?n, "^c", "i") }`, nil)
	assert.Equal(t, [][]string{{"Carol"}}, rows)

	rows = selectRows(t, e, `SELECT ?n WHERE { ?p foaf:name ?n FILTER(lang(?n) = "en") }`, nil)
	assert.Equal(t, [][]string{{"Bob"}}, rows)

	rows = selectRows(t, e, `SELECT ?n WHERE { ?p foaf:name ?n FILTER langMatches(lang(?n), "*") }`, nil)
	assert.Equal(t, [][]string{{"Bob"}}, rows)

	rows = selectRows(t, e, `SELECT ?a WHERE { ?p foaf:age ?a FILTER(?a IN (25, 35)) } ORDER BY ?a`, nil)
	assert.Equal(t, []string{"25", "35"}, column(rows, 0))

	rows = selectRows(t, e, `SELECT ?a WHERE { ?p foaf:age ?a FILTER(?a NOT IN (25, 35)) }`, nil)
	assert.Equal(t, []string{"30"}, column(rows, 0))
}

func Test_FilterScopeIsTheWholeGroup(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT ?n WHERE { FILTER(?a < 30) ?p foaf:age ?a ; foaf:name ?n }`, nil)
	assert.Equal(t, [][]string{{"Bob"}}, rows)
}

func Test_Optional(t *testing.T) {
	rows := selectRows(t, newTestEngine(t),
		`SELECT ?n ?a WHERE { ?p foaf:name ?n OPTIONAL { ?p foaf:age ?a } } ORDER BY ?n`, nil)
	assert.Equal(t, [][]string{{"Alice", "30"}, {"Bob", "25"}, {"Carol", "35"}, {"Dave", ""}}, rows)
}

func Test_OptionalWithFilter(t *testing.T) {
	rows := selectRows(t, newTestEngine(t),
		`SELECT ?n ?a WHERE { ?p foaf:name ?n OPTIONAL { ?p foaf:age ?a FILTER(?a > 26) } } ORDER BY ?n`, nil)
	assert.Equal(t, [][]string{{"Alice", "30"}, {"Bob", ""}, {"Carol", "35"}, {"Dave", ""}}, rows)
}

func Test_Union(t *testing.T) {
	rows := selectRows(t, newTestEngine(t),
		`SELECT ?v WHERE { { ex:alice foaf:name ?v } UNION { ex:bob foaf:name ?v } }`, nil)
	assert.Equal(t, []string{"Alice", "Bob"}, column(rows, 0))
}

func Test_Minus(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT ?p WHERE { ?p a foaf:Person MINUS { ?p foaf:knows ex:carol } }`, nil)
	assert.Equal(t, []string{"http://example.org/alice"}, column(rows, 0))

	// no shared variable: nothing is removed
	rows = selectRows(t, newTestEngine(t), `SELECT ?p WHERE { ?p a foaf:Person MINUS { ?x foaf:knows ?y } }`, nil)
	assert.Len(t, rows, 2)
}

func Test_NotExists(t *testing.T) {
	rows := selectRows(t, newTestEngine(t),
		`SELECT ?n WHERE { ?p foaf:name ?n FILTER NOT EXISTS { ?p foaf:age ?a } }`, nil)
	assert.Equal(t, [][]string{{"Dave"}}, rows)

	rows = selectRows(t, newTestEngine(t),
		`SELECT ?n WHERE { ?p foaf:name ?n FILTER EXISTS { ?p a foaf:Person } } ORDER BY ?n`, nil)
	assert.Equal(t, []string{"Alice", "Bob"}, column(rows, 0))
}

func Test_Bind(t *testing.T) {
	rows := selectRows(t, newTestEngine(t),
		`SELECT ?greeting WHERE { ex:alice foaf:name ?n BIND(CONCAT("Hello ", ?n) AS ?greeting) }`, nil)
	assert.Equal(t, [][]string{{"Hello Alice"}}, rows)
}

func Test_Values(t *testing.T) {
	e := newTestEngine(t)
	rows := selectRows(t, e, `SELECT ?n WHERE { VALUES ?p { ex:alice ex:carol } ?p foaf:name ?n }`, nil)
	assert.Equal(t, []string{"Alice", "Carol"}, column(rows, 0))

	rows = selectRows(t, e, `SELECT ?p ?n WHERE { ?p foaf:name ?n } VALUES (?p ?n) { (ex:bob UNDEF) (UNDEF "Carol") }`, nil)
	assert.Equal(t, [][]string{{"http://example.org/bob", "Bob"}, {"http://example.org/carol", "Carol"}}, rows)
}

func Test_Aggregates(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT (COUNT(*) AS ?c) (SUM(?a) AS ?total) (AVG(?a) AS ?avg)
		(MIN(?a) AS ?min) (MAX(?a) AS ?max) WHERE { ?p foaf:age ?a }`, nil)
	assert.Equal(t, [][]string{{"3", "90", "30.0", "25", "35"}}, rows)
}

func Test_AggregateOfNothing(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT (COUNT(?x) AS ?c) WHERE { ?x foaf:nope ?y }`, nil)
	assert.Equal(t, [][]string{{"0"}}, rows)
}

func Test_GroupBy(t *testing.T) {
	e := newTestEngine(t)
	rows := selectRows(t, e, `SELECT ?t (COUNT(?p) AS ?n) WHERE { ?p a ?t } GROUP BY ?t`, nil)
	assert.Equal(t, [][]string{{"http://xmlns.com/foaf/0.1/Person", "2"}}, rows)

	rows = selectRows(t, e, `SELECT ?p WHERE { ?p foaf:knows ?o ; foaf:age ?a } GROUP BY ?p HAVING (SUM(?a) > 26) ORDER BY ?p`, nil)
	assert.Equal(t, []string{"http://example.org/alice", "http://example.org/carol"}, column(rows, 0))

	rows = selectRows(t, e, `SELECT (GROUP_CONCAT(?n; SEPARATOR=", ") AS ?all) WHERE { ?p a foaf:Person ; foaf:name ?n }`, nil)
	assert.Equal(t, [][]string{{"Alice, Bob"}}, rows)

	rows = selectRows(t, e, `SELECT (COUNT(DISTINCT ?t) AS ?n) WHERE { ?p a ?t }`, nil)
	assert.Equal(t, [][]string{{"1"}}, rows)
}

func Test_Distinct(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT DISTINCT ?t WHERE { ?s a ?t }`, nil)
	assert.Equal(t, [][]string{{"http://xmlns.com/foaf/0.1/Person"}}, rows)
}

func Test_LimitOffset(t *testing.T) {
	rows := selectRows(t, newTestEngine(t), `SELECT ?n WHERE { ?p foaf:name ?n } ORDER BY ?n LIMIT 2 OFFSET 1`, nil)
	assert.Equal(t, []string{"Bob", "Carol"}, column(rows, 0))

	rows = selectRows(t, newTestEngine(t), `SELECT ?n WHERE { ?p foaf:name ?n } LIMIT 0`, nil)
	assert.Empty(t, rows)
}

func Test_PropertyPaths(t *testing.T) {
	e := newTestEngine(t)

	rows := selectRows(t, e, `SELECT ?x WHERE { ex:alice foaf:knows+ ?x }`, nil)
	assert.Len(t, rows, 3)

	rows = selectRows(t, e, `SELECT ?x WHERE { ex:alice foaf:knows* ?x }`, nil)
	assert.Len(t, rows, 4)
	assert.Equal(t, "http://example.org/alice", rows[0][0])

	rows = selectRows(t, e, `SELECT ?x WHERE { ex:alice foaf:knows? ?x }`, nil)
	assert.Equal(t, []string{"http://example.org/alice", "http://example.org/bob"}, column(rows, 0))

	rows = selectRows(t, e, `SELECT ?n WHERE { ex:alice foaf:knows/foaf:name ?n }`, nil)
	assert.Equal(t, [][]string{{"Bob"}}, rows)

	rows = selectRows(t, e, `SELECT ?x WHERE { ex:bob ^foaf:knows ?x }`, nil)
	assert.Equal(t, [][]string{{"http://example.org/alice"}}, rows)

	rows = selectRows(t, e, `SELECT ?v WHERE { ex:alice (foaf:name|foaf:age) ?v }`, nil)
	assert.Equal(t, []string{"Alice", "30"}, column(rows, 0))

	rows = selectRows(t, e, `SELECT ?x WHERE { ?x foaf:knows+ ex:carol } ORDER BY ?x`, nil)
	assert.Equal(t, []string{"http://example.org/alice", "http://example.org/bob"}, column(rows, 0))

	rows = selectRows(t, e, `SELECT ?city WHERE { ex:carol foaf:knows/ex:address/ex:city ?city }`, nil)
	assert.Equal(t, [][]string{{"Baltimore"}}, rows)
}

func Test_Ask(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Query(prologue+`ASK { ex:alice foaf:knows ex:bob }`, nil)
	require.Nil(t, err)
	assert.Equal(t, Boolean, result.Type)
	assert.True(t, result.Boolean)

	result, err = e.Query(prologue+`ASK { ?p foaf:knows ex:bob }`, map[string]rdf.Term{"p": iri("http://example.org/carol")})
	require.Nil(t, err)
	assert.False(t, result.Boolean)
}

func Test_Construct(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Query(prologue+`CONSTRUCT { ?o ex:knownBy ?p } WHERE { ?p foaf:knows ?o }`, nil)
	require.Nil(t, err)
	require.Equal(t, Graph, result.Type)
	assert.Equal(t, 3, result.Graph.Len())
	first := result.Graph.Triples()[0]
	assert.Equal(t, "http://example.org/bob", first.Subj.String())
	assert.Equal(t, "http://example.org/knownBy", first.Pred.String())

	result, err = e.Query(prologue+`CONSTRUCT WHERE { ?p foaf:age ?a }`, nil)
	require.Nil(t, err)
	assert.Equal(t, 3, result.Graph.Len())
}

func Test_ConstructFreshBlankNodes(t *testing.T) {
	result, err := newTestEngine(t).Query(prologue+`CONSTRUCT { ?p ex:has [ ex:value ?a ] } WHERE { ?p foaf:age ?a }`, nil)
	require.Nil(t, err)
	assert.Equal(t, 6, result.Graph.Len())

	blanks := map[string]bool{}
	for _, triple := range result.Graph.Triples() {
		if triple.Subj.Type() == rdf.TermBlank {
			blanks[model.Key(triple.Subj)] = true
		}
	}
	assert.Len(t, blanks, 3)
}

func Test_ConstructSkipsUnboundAndIllTyped(t *testing.T) {
	result, err := newTestEngine(t).Query(prologue+`CONSTRUCT { ?n ex:of ?p . ?p ex:age ?missing } WHERE { ?p foaf:name ?n }`, nil)
	require.Nil(t, err)
	// literal subjects and unbound objects leave nothing to construct
	assert.Equal(t, 0, result.Graph.Len())
}

func Test_Describe(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Query(prologue+`DESCRIBE ex:carol`, nil)
	require.Nil(t, err)
	require.Equal(t, Graph, result.Type)
	// carol's triples, plus those of the blank nodes reachable from her
	assert.Equal(t, 6, result.Graph.Len())

	result, err = e.Query(prologue+`DESCRIBE ?p WHERE { ?p foaf:age 25 }`, nil)
	require.Nil(t, err)
	assert.Equal(t, 4, result.Graph.Len())

	result, err = e.Query(prologue+`DESCRIBE ?p`, map[string]rdf.Term{"p": iri("http://example.org/alice")})
	require.Nil(t, err)
	assert.Equal(t, 5, result.Graph.Len())
}

func Test_ParseErrorIsWrapped(t *testing.T) {
	_, err := newTestEngine(t).Query("SELECT ?x WHERE { ?x ?y }", nil)
	require.NotNil(t, err)

	var execErr *QueryExecutionError
	assert.True(t, errors.As(err, &execErr))
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 1, parseErr.Line)
}

type failingStore struct {
	persistence.Store
}

func (failingStore) Match(s, p, o rdf.Term) ([]rdf.Triple, error) {
	return nil, persistence.StoreErr{Message: "disk on fire"}
}

func Test_StoreErrorsSurfaceFromRows(t *testing.T) {
	e := New(failingStore{persistence.NewMemoryStore()})
	result, err := e.Query("SELECT * WHERE { ?s ?p ?o }", nil)
	require.Nil(t, err)
	assert.False(t, result.Rows.Next())

	var execErr *QueryExecutionError
	assert.True(t, errors.As(result.Rows.Err(), &execErr))

	_, err = e.Query("ASK { ?s ?p ?o }", nil)
	assert.True(t, errors.As(err, &execErr))
}

func Test_InvalidRegexFailsTheQuery(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Query(prologue+`SELECT ?s WHERE { ?s foaf:name ?name FILTER REGEX(?name, "(") }`, nil)
	require.Nil(t, err)
	assert.False(t, result.Rows.Next())

	var execErr *QueryExecutionError
	require.True(t, errors.As(result.Rows.Err(), &execErr))
	assert.Contains(t, execErr.Error(), "invalid regular expression")

	_, err = e.Query(prologue+`ASK { ?s foaf:name ?name FILTER REGEX(?name, "a", "z") }`, nil)
	assert.Nil(t, err, "an unknown flag is a type error")

	_, err = e.Query(prologue+`SELECT ?s WHERE { ?s foaf:name ?name } ORDER BY REPLACE(?name, "[", "")`, nil)
	assert.True(t, errors.As(err, &execErr))
}
