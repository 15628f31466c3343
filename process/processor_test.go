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

package process

import (
	"bytes"
	"context"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"os"
	"spahqler/output"
	"spahqler/query"
	"spahqler/retrieve"
	"spahqler/sparql"
	"testing"
)

const (
	library    = "testdata/library.nt"
	titlesFile = "testdata/titles.rq"
	prefixes   = "PREFIX dc: <http://purl.org/dc/terms/> PREFIX foaf: <http://xmlns.com/foaf/0.1/> "
	titles     = prefixes + "SELECT ?title ?name { ?book dc:title ?title ; dc:creator ?author . ?author foaf:name ?name } ORDER BY ?title"
	allTitles  = "[1]     Dune \tFrank Herbert\n[2]     Emma \tJane Austen\n"
)

func config(q string, bindings ...string) Config {
	return Config{
		Query:        q,
		Graph:        library,
		Bindings:     bindings,
		GraphFormat:  "nt",
		OutputFormat: "nt",
		Store:        MemoryStore,
	}
}

func run(t *testing.T, cfg Config) (string, error) {
	var out bytes.Buffer
	err := Run(context.Background(), cfg, &out)
	return out.String(), err
}

func Test_RunSelect(t *testing.T) {
	out, err := run(t, config(titles))
	require.Nil(t, err)
	assert.Equal(t, allTitles, out)
}

func Test_RunQueryFile(t *testing.T) {
	out, err := run(t, config(titlesFile))
	require.Nil(t, err)
	assert.Equal(t, allTitles, out)
}

func Test_RunBindings(t *testing.T) {
	out, err := run(t, config(titles, "author=<http://example.org/author/austen>"))
	require.Nil(t, err)
	assert.Equal(t, "[1]     Emma \tJane Austen\n", out)

	out, err = run(t, config(titles, `title="Dune"`))
	require.Nil(t, err)
	assert.Equal(t, "[1]     Dune \tFrank Herbert\n", out)

	// the last binding of a name wins
	out, err = run(t, config(titles, `title="Dune"`, `title="Emma"`))
	require.Nil(t, err)
	assert.Equal(t, "[1]     Emma \tJane Austen\n", out)
}

func Test_RunBindingWithoutMatch(t *testing.T) {
	out, err := run(t, config(titles, `title="Moby Dick"`))
	require.Nil(t, err)
	assert.Empty(t, out)
}

func Test_RunConstruct(t *testing.T) {
	cfg := config(prefixes + "CONSTRUCT { ?author <http://example.org/wrote> ?book } WHERE { ?book dc:creator ?author }")
	out, err := run(t, cfg)
	require.Nil(t, err)
	assert.Equal(t,
		"<http://example.org/author/herbert> <http://example.org/wrote> <http://example.org/book/1> .\n"+
			"<http://example.org/author/austen> <http://example.org/wrote> <http://example.org/book/2> .\n"+
			"\n",
		out)
}

func Test_RunAsk(t *testing.T) {
	out, err := run(t, config(prefixes+`ASK { ?book dc:title "Emma" }`))
	require.Nil(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, config(prefixes+`ASK { ?book dc:title "Persuasion" }`))
	require.Nil(t, err)
	assert.Equal(t, "false\n", out)
}

func Test_RunSqliteStore(t *testing.T) {
	cfg := config(titles, "author=<http://example.org/author/herbert>")
	cfg.Store = SqliteStore
	cfg.SqliteDsn = "file:process_test?mode=memory&cache=shared"

	out, err := run(t, cfg)
	require.Nil(t, err)
	assert.Equal(t, "[1]     Dune \tFrank Herbert\n", out)
}

func Test_RunRemoteGraph(t *testing.T) {
	data, err := os.ReadFile(library)
	require.Nil(t, err)

	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	cfg := config(titles)
	cfg.Graph = server.URL + "/library.nt"
	cfg.HttpTimeoutMs = 5000
	cfg.UserAgent = "process.Test"

	out, err := run(t, cfg)
	require.Nil(t, err)
	assert.Equal(t, allTitles, out)
	assert.Equal(t, "process.Test", userAgent)
}

func Test_RunErrors(t *testing.T) {
	unknownStore := config(titles)
	unknownStore.Store = "postgres"

	unknownGraphFormat := config(titles)
	unknownGraphFormat.GraphFormat = "csv"

	missingGraph := config(titles)
	missingGraph.Graph = "testdata/missing.nt"

	unknownOutputFormat := config(prefixes + "CONSTRUCT { ?b dc:title ?t } WHERE { ?b dc:title ?t }")
	unknownOutputFormat.OutputFormat = "xml"

	for name, tc := range map[string]struct {
		cfg    Config
		target interface{}
	}{
		"delimiter mismatch": {config(titles, `title="Dune>`), new(*query.BindingDelimiterMismatchError)},
		"binding syntax":     {config(titles, `=<http://example.org/book/1>`), new(*query.BindingSyntaxError)},
		"missing query file": {config("testdata/missing.rq"), new(*query.QueryFileError)},
		// without a '{' the argument names a file, even when it reads like a query
		"query without brace": {config("DESCRIBE <http://example.org/book/1>"), new(*query.QueryFileError)},
		"graph format":        {unknownGraphFormat, new(*retrieve.GraphLoadError)},
		"missing graph":       {missingGraph, new(*retrieve.GraphLoadError)},
		"query syntax":        {config("SELECT ?x WHERE { ?x"), new(*sparql.QueryExecutionError)},
		"output format":       {unknownOutputFormat, new(*output.FormatError)},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := run(t, tc.cfg)
			require.NotNil(t, err)
			assert.True(t, errors.As(err, tc.target), "unexpected error %s", err)
			assert.Empty(t, out)
		})
	}

	out, err := run(t, unknownStore)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "unsupported store 'postgres'")
	assert.Empty(t, out)
}
