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

// Evaluates relevant environment variables and provides reasonable defaults for runtime operation
package env

import (
	"github.com/spf13/viper"
	"strings"
)

const (
	prefix = "SPAHQLER"

	// Environment variables consulted by New
	GRAPH_FORMAT      = prefix + "_GRAPH_FORMAT"
	OUTPUT_FORMAT     = prefix + "_FORMAT"
	STORE             = prefix + "_STORE"
	SQLITE_DSN        = prefix + "_SQLITE_DSN"
	LOG_LEVEL         = prefix + "_LOG_LEVEL"
	HTTP_TIMEOUT_MS   = prefix + "_HTTP_TIMEOUT_MS"
	HTTP_USER_AGENT   = prefix + "_HTTP_USER_AGENT"
	IT_PRESERVE_STATE = prefix + "_IT_PRESERVE_STATE"
	defaultUserAgent  = "spahqler/0.1"
)

type Env struct {
	// format of the graph data, e.g. 'nt' or 'turtle'
	GraphFormat,
	// format used to serialize CONSTRUCT and DESCRIBE results
	OutputFormat,
	// triple store backing the loaded graph: 'memory' or 'sqlite'
	Store,
	// DSN of the sqlite database, only used by the 'sqlite' store
	SqliteDsn,
	// zap level name for diagnostics written to stderr
	LogLevel,
	// timeout applied when the graph is retrieved over http
	HttpTimeoutMs,
	// User-Agent header sent when the graph is retrieved over http
	UserAgent,
	// integration tests keep their sqlite database when 'true'
	ItPreserveState string
}

// answers a struct containing supported environment variables
func New() Env {
	v := newViper()
	return Env{
		GraphFormat:     v.GetString(key(GRAPH_FORMAT)),
		OutputFormat:    v.GetString(key(OUTPUT_FORMAT)),
		Store:           v.GetString(key(STORE)),
		SqliteDsn:       v.GetString(key(SQLITE_DSN)),
		LogLevel:        v.GetString(key(LOG_LEVEL)),
		HttpTimeoutMs:   v.GetString(key(HTTP_TIMEOUT_MS)),
		UserAgent:       v.GetString(key(HTTP_USER_AGENT)),
		ItPreserveState: v.GetString(key(IT_PRESERVE_STATE)),
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()

	v.SetDefault(key(GRAPH_FORMAT), "nt")
	v.SetDefault(key(OUTPUT_FORMAT), "nt")
	v.SetDefault(key(STORE), "memory")
	// shared cache so every connection in the pool sees the same in-memory database
	v.SetDefault(key(SQLITE_DSN), "file::memory:?cache=shared")
	v.SetDefault(key(LOG_LEVEL), "warn")
	v.SetDefault(key(HTTP_TIMEOUT_MS), "30000")
	v.SetDefault(key(HTTP_USER_AGENT), defaultUserAgent)
	v.SetDefault(key(IT_PRESERVE_STATE), "false")

	return v
}

// answers the viper key for an environment variable name, i.e. the name without the prefix, lower-cased
func key(varName string) string {
	return strings.ToLower(strings.TrimPrefix(varName, prefix+"_"))
}
