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
	"testing"
)

func parseError(t *testing.T, query string) *ParseError {
	_, err := Parse(query)
	require.NotNil(t, err, "expected %q to be rejected", query)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	return parseErr
}

func Test_ParseSelect(t *testing.T) {
	q, err := Parse(`PREFIX foaf: <http://xmlns.com/foaf/0.1/>
SELECT DISTINCT ?name (STRLEN(?name) AS ?len) WHERE { ?p foaf:name ?name } ORDER BY DESC(?len) LIMIT 5 OFFSET 2`)
	require.Nil(t, err)
	assert.Equal(t, Select, q.Form)
	assert.True(t, q.Distinct)
	require.Len(t, q.Projection, 2)
	assert.Equal(t, "name", q.Projection[0].Var)
	assert.Nil(t, q.Projection[0].Expr)
	assert.Equal(t, "len", q.Projection[1].Var)
	assert.NotNil(t, q.Projection[1].Expr)
	require.Len(t, q.OrderBy, 1)
	assert.True(t, q.OrderBy[0].Descending)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, 2, q.Offset)

	bgp, ok := q.Where.(*BGP)
	require.True(t, ok)
	require.Len(t, bgp.Triples, 1)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/name", bgp.Triples[0].P.Term.String())
}

func Test_ParseDefaults(t *testing.T) {
	q, err := Parse(`SELECT * { ?s rdfs:label ?l }`)
	require.Nil(t, err)
	assert.True(t, q.Star)
	assert.Equal(t, -1, q.Limit)
	bgp := q.Where.(*BGP)
	assert.Equal(t, "http://www.w3.org/2000/01/rdf-schema#label", bgp.Triples[0].P.Term.String())
}

func Test_ParseBase(t *testing.T) {
	q, err := Parse(`BASE <http://example.org/data/> SELECT * { <alice> <../knows> ?o }`)
	require.Nil(t, err)
	bgp := q.Where.(*BGP)
	assert.Equal(t, "http://example.org/data/alice", bgp.Triples[0].S.Term.String())
	assert.Equal(t, "http://example.org/knows", bgp.Triples[0].P.Term.String())
}

func Test_ParsePropertyLists(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT * { ?s a ex:Thing ; ex:p ?a, ?b ; . _:x ex:q [ ex:r ?c ] }`)
	require.Nil(t, err)
	bgp := q.Where.(*BGP)
	require.Len(t, bgp.Triples, 5)
	assert.Equal(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", bgp.Triples[0].P.Term.String())
	assert.Equal(t, "b", bgp.Triples[2].O.Var)
	assert.Equal(t, "_:x", bgp.Triples[3].S.Var)
	assert.Equal(t, bgp.Triples[3].O.Var, bgp.Triples[4].S.Var)
	assert.True(t, isHidden(bgp.Triples[4].S.Var))
}

func Test_ParseLiterals(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT * { ?s ex:p "chat"@fr, "1"^^ex:type, -5, 2.5, 1e3, true }`)
	require.Nil(t, err)
	bgp := q.Where.(*BGP)
	require.Len(t, bgp.Triples, 6)
	assert.Equal(t, `"chat"@fr`, bgp.Triples[0].O.Term.Serialize(rdf.NTriples))
	assert.Equal(t, "http://example.org/type", bgp.Triples[1].O.Term.(rdf.Literal).DataType.String())
	assert.Equal(t, "-5", bgp.Triples[2].O.Term.String())
	assert.Equal(t, "2.5", bgp.Triples[3].O.Term.String())
	assert.Equal(t, "1e3", bgp.Triples[4].O.Term.String())
	assert.Equal(t, "true", bgp.Triples[5].O.Term.String())
}

func Test_ParseGroupStructure(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT * {
  ?s ex:p ?o .
  OPTIONAL { ?o ex:q ?x FILTER(?x > 1) }
  MINUS { ?s ex:r ?o }
  BIND(1 AS ?one)
  FILTER(?o != ex:z)
}`)
	require.Nil(t, err)
	f, ok := q.Where.(*Filter)
	require.True(t, ok)
	assert.Len(t, f.Exprs, 1)
	extend, ok := f.Inner.(*Extend)
	require.True(t, ok)
	assert.Equal(t, "one", extend.Var)
	minus, ok := extend.Inner.(*Minus)
	require.True(t, ok)
	optional, ok := minus.Left.(*LeftJoin)
	require.True(t, ok)
	assert.NotNil(t, optional.Filter)
	_, ok = optional.Right.(*BGP)
	assert.True(t, ok)
}

func Test_ParseUnion(t *testing.T) {
	q, err := Parse(`SELECT * { { ?s ?p ?o } UNION { ?o ?p ?s } UNION { ?s ?p ?s } }`)
	require.Nil(t, err)
	u, ok := q.Where.(*Union)
	require.True(t, ok)
	_, ok = u.Left.(*Union)
	assert.True(t, ok)
}

func Test_ParsePaths(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT * { ?s ex:a/^ex:b|ex:c* ?o . ?s (ex:d)+ ?o . ?s a? ?o }`)
	require.Nil(t, err)
	bgp := q.Where.(*BGP)
	require.Len(t, bgp.Triples, 3)
	assert.Equal(t, "((<http://example.org/a>/^<http://example.org/b>)|<http://example.org/c>*)", bgp.Triples[0].Path.String())
	assert.Equal(t, "<http://example.org/d>+", bgp.Triples[1].Path.String())
	assert.Equal(t, "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>?", bgp.Triples[2].Path.String())
}

func Test_ParseAggregates(t *testing.T) {
	q, err := Parse(`SELECT ?g (COUNT(DISTINCT ?x) AS ?n) (GROUP_CONCAT(?x; separator="|") AS ?all)
WHERE { ?x ?p ?g } GROUP BY ?g HAVING (COUNT(*) > 1)`)
	require.Nil(t, err)
	require.Len(t, q.aggregates, 3)
	assert.True(t, q.aggregates[0].distinct)
	assert.Equal(t, "|", q.aggregates[1].separator)
	assert.Nil(t, q.aggregates[2].arg)
	require.Len(t, q.GroupBy, 1)
	require.Len(t, q.Having, 1)
}

func Test_ParseConstructForms(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/> CONSTRUCT { ?s ex:q _:b } WHERE { ?s ex:p ?o }`)
	require.Nil(t, err)
	assert.Equal(t, Construct, q.Form)
	require.Len(t, q.Template, 1)
	assert.Equal(t, "_:b", q.Template[0].O.Var)

	q, err = Parse(`PREFIX ex: <http://example.org/> CONSTRUCT WHERE { ?s ex:p ?o }`)
	require.Nil(t, err)
	assert.Len(t, q.Template, 1)
	assert.NotNil(t, q.Where)
}

func Test_ParseDescribeAndAsk(t *testing.T) {
	q, err := Parse(`DESCRIBE <http://example.org/a> ?x`)
	require.Nil(t, err)
	assert.Equal(t, Describe, q.Form)
	assert.Len(t, q.DescribeTargets, 2)
	assert.Nil(t, q.Where)

	q, err = Parse(`ASK WHERE { ?s ?p ?o }`)
	require.Nil(t, err)
	assert.Equal(t, Ask, q.Form)
}

func Test_ParseRejects(t *testing.T) {
	for _, query := range []string{
		`SELECT * FROM <http://example.org/g> WHERE { ?s ?p ?o }`,
		`SELECT * { GRAPH ?g { ?s ?p ?o } }`,
		`SELECT * { SERVICE <http://example.org/sparql> { ?s ?p ?o } }`,
		`SELECT * { { SELECT ?s { ?s ?p ?o } } }`,
		`SELECT * { ?s ?p (1 2) }`,
		`SELECT * { ?s !<http://example.org/p> ?o }`,
		`SELECT * { ?s undeclared:p ?o }`,
		`SELECT * { ?s ?p ?o FILTER(NOSUCH(?o)) }`,
		`SELECT * { ?s ?p ?o FILTER(COUNT(?o) > 1) }`,
		`SELECT { ?s ?p ?o }`,
		`SELECT * { ?s ?p ?o `,
		`SELECT * { ?s ?p ?o } trailing`,
		`INSERT DATA { <a> <b> <c> }`,
	} {
		parseError(t, query)
	}
}

func Test_ParseErrorLocation(t *testing.T) {
	err := parseError(t, "SELECT *\nWHERE { ?s ?p }")
	assert.Equal(t, 2, err.Line)
	assert.Equal(t, 15, err.Column)
}
