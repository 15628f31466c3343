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

package main

import (
	"context"
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"io"
	"os"
	"spahqler/env"
	"spahqler/logger"
	"spahqler/process"
	"strconv"
)

// Usage: ./spahqler -q <query or query file> -g <graph file or uri> [-b name=<uri>] [-b name="literal"]
// SPAHQLER_GRAPH_FORMAT nt
// SPAHQLER_FORMAT nt
// SPAHQLER_STORE memory
// SPAHQLER_SQLITE_DSN file::memory:?cache=shared
// SPAHQLER_LOG_LEVEL warn
// SPAHQLER_HTTP_TIMEOUT_MS 30000
func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Executes the command line, answering the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(env.New())
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

type options struct {
	process.Config
	logLevel      string
	httpTimeoutMs string
}

// Answers the root command, its flag defaults taken from the environment
func newRootCommand(environment env.Env) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "spahqler -q <query> -g <graph> [-b name=<uri>|name=\"literal\"]...",
		Short: "Runs a SPARQL query against an RDF graph",
		Long: `Runs a SPARQL query against an RDF graph loaded from a file or an http(s) URI.

The query is either inline text (anything containing '{') or the path of a query file.
Variables may be bound before evaluation: -b name=<http://example.org/x> binds an IRI,
-b name="text" binds a literal.

SELECT rows are printed one per line, numbered from 1. CONSTRUCT and DESCRIBE
graphs are serialized in the --format syntax. ASK prints true or false.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Query, "query", "q", "", "the query text, or the path of a file containing it")
	flags.StringVarP(&opts.Graph, "graph", "g", "", "the path or http(s) URI of the graph data")
	flags.StringArrayVarP(&opts.Bindings, "binding", "b", nil, "an initial binding, name=<uri> or name=\"literal\"; may be repeated")
	flags.StringVar(&opts.GraphFormat, "graph-format", environment.GraphFormat, "format of the graph data: nt, ttl, xml, nq or json-ld")
	flags.StringVar(&opts.OutputFormat, "format", environment.OutputFormat, "format of CONSTRUCT and DESCRIBE results: nt, ttl, nq or json-ld")
	flags.StringVar(&opts.Store, "store", environment.Store, "triple store holding the graph: memory or sqlite")
	flags.StringVar(&opts.SqliteDsn, "dsn", environment.SqliteDsn, "DSN of the sqlite database, used with --store sqlite")
	flags.StringVar(&opts.logLevel, "log-level", environment.LogLevel, "level of diagnostics written to stderr: debug, info, warn or error")
	opts.httpTimeoutMs = environment.HttpTimeoutMs
	opts.UserAgent = environment.UserAgent

	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("graph")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *options) error {
	if err := logger.Initialize(opts.logLevel); err != nil {
		return errors.Wrapf(err, "invalid --log-level %s", opts.logLevel)
	}

	timeout, err := strconv.Atoi(opts.httpTimeoutMs)
	if err != nil || timeout < 1 {
		return errors.Newf("the value of env var %s must be a positive integer, was '%s'", env.HTTP_TIMEOUT_MS, opts.httpTimeoutMs)
	}
	opts.HttpTimeoutMs = timeout

	logger.Logger.Debugw("running query", "graph", opts.Graph, "graphFormat", opts.GraphFormat,
		"format", opts.OutputFormat, "store", opts.Store, "bindings", len(opts.Bindings))

	return process.Run(cmd.Context(), opts.Config, cmd.OutOrStdout())
}
