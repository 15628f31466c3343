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

//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"github.com/logrusorgru/aurora/v3"
	"io/fs"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"spahqler/env"
	"spahqler/process"
	"strconv"
	"testing"
)

// Answers the embedded graph fixtures matching the shell glob
func testResources(shellGlob string, embeddedFs embed.FS) []fs.DirEntry {
	var matches []fs.DirEntry

	if entries, err := embeddedFs.ReadDir("."); err != nil {
		log.Fatalf("Error listing graph test resources: %s", err.Error())
	} else {
		for _, entry := range entries {
			if matched, _ := path.Match(shellGlob, entry.Name()); matched {
				matches = append(matches, entry)
			}
		}
	}

	return matches
}

// Serves the embedded graph fixtures over http, standing in for a remote graph location
func startGraphServer() {
	graphServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := graphs.ReadFile(path.Base(r.URL.Path))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if accept := r.Header.Get("Accept"); accept != "" {
			w.Header().Set("Content-Type", accept)
		}
		_, _ = w.Write(body)
	}))
	log.Println(aurora.Sprintf(aurora.Green("setup: serving %d graphs at %s"), len(testResources("catalog.*", graphs)), graphServer.URL))
}

// Creates the directory holding the sqlite databases written by the tests
func createStoreDir() {
	var err error
	if storeDir, err = os.MkdirTemp("", "spahqler-it-"); err != nil {
		log.Fatal(aurora.Sprintf(aurora.Red("error creating temporary directory for databases: %s"), err))
	}
	log.Println(aurora.Sprintf(aurora.Green("setup: sqlite databases under %s"), storeDir))
}

func cleanup() {
	graphServer.Close()

	if isPreserveState() {
		log.Println(aurora.Sprintf(aurora.Green("tear down: preserving database state at %s per %s=%s"),
			storeDir, env.IT_PRESERVE_STATE, environment.ItPreserveState))
		return
	}

	log.Println(aurora.Green("tear down: removing the sqlite databases"))
	if err := os.RemoveAll(storeDir); err != nil {
		log.Println(aurora.Red(fmt.Sprintf("error cleaning up state: %s", err)))
	}
}

// Answers the value of the SPAHQLER_IT_PRESERVE_STATE environment variable.  If 'true', the sqlite database written
// by the tests is kept after they complete.
func isPreserveState() bool {
	preserve, _ := strconv.ParseBool(environment.ItPreserveState)
	return preserve
}

// Answers a Config loading the named fixture from the graph server into the sqlite database db.  Invocations naming
// the same db share its file.
func sqliteConfig(db, q, graph, format string, bindings ...string) process.Config {
	return process.Config{
		Query:         q,
		Graph:         graphServer.URL + "/" + graph,
		Bindings:      bindings,
		GraphFormat:   format,
		OutputFormat:  "nt",
		Store:         process.SqliteStore,
		SqliteDsn:     fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(storeDir, db+".db")),
		HttpTimeoutMs: httpTimeoutMs,
		UserAgent:     environment.UserAgent,
	}
}

// Runs the query, answering what it wrote.  May be invoked from any goroutine.
func runQuery(t *testing.T, cfg process.Config) string {
	var out bytes.Buffer
	if err := process.Run(context.Background(), cfg, &out); err != nil {
		t.Errorf("error running %s against %s: %s", cfg.Query, cfg.Graph, err)
	}
	return out.String()
}
