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

// Responsible for reading graph data from the filesystem, or over HTTP, and decoding it into triples
package retrieve

import (
	"context"
	"fmt"
	"github.com/knakk/rdf"
	"io"
	"net/http"
	"os"
	"spahqler/logger"
	"strings"
)

// The graph could not be read or decoded
type GraphLoadError struct {
	Location string
	Format   string
	Message  string
	Wrapped  error
}

func (e *GraphLoadError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("retrieve: error loading graph %s (format %s), %s: %s", e.Location, e.Format, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("retrieve: error loading graph %s (format %s), %s", e.Location, e.Format, e.Message)
}

func (e *GraphLoadError) Unwrap() error {
	return e.Wrapped
}

// Loads the graph at a location: a file path, or an http(s) URI
type Loader interface {
	Load(ctx context.Context, location, format string) ([]rdf.Triple, error)
}

type loader struct {
	httpClient *http.Client
	useragent  string
}

// Creates a new Loader.  The client is used for http(s) locations; if the useragent string is supplied each request
// will use that value in the User-Agent header.
func New(httpClient *http.Client, useragent string) Loader {
	return loader{
		httpClient: httpClient,
		useragent:  useragent,
	}
}

// Reads and decodes the graph at the location according to the format tag (e.g. 'nt', 'turtle', 'json-ld').  The
// file or response body is always closed before Load returns.
func (l loader) Load(ctx context.Context, location, format string) ([]rdf.Triple, error) {
	var f Format
	var triples []rdf.Triple
	var err error

	if f, err = LookupFormat(format); err != nil {
		return nil, &GraphLoadError{Location: location, Format: format, Message: "unsupported graph format", Wrapped: err}
	}

	if isRemote(location) {
		triples, err = l.get(ctx, location, f)
	} else {
		triples, err = l.open(location, f)
	}

	if err != nil {
		return nil, err
	}

	logger.Logger.Debugw("loaded graph", "location", location, "format", f.Name, "triples", len(triples))
	return triples, nil
}

func (l loader) open(path string, f Format) ([]rdf.Triple, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &GraphLoadError{Location: path, Format: f.Name, Message: "unable to open", Wrapped: err}
	}

	defer func() { _ = file.Close() }()

	triples, err := f.decode(file)
	if err != nil {
		return nil, &GraphLoadError{Location: path, Format: f.Name, Message: "unable to decode", Wrapped: err}
	}

	return triples, nil
}

func (l loader) get(ctx context.Context, uri string, f Format) ([]rdf.Triple, error) {
	var req *http.Request
	var res *http.Response
	var err error

	if req, err = http.NewRequestWithContext(ctx, "GET", uri, nil); err != nil {
		return nil, &GraphLoadError{Location: uri, Format: f.Name, Message: "bad request", Wrapped: err}
	} else {
		if len(l.useragent) > 0 {
			req.Header.Add("User-Agent", l.useragent)
		}
		req.Header.Add("Accept", f.MediaType)
	}

	if res, err = l.httpClient.Do(req); err != nil {
		return nil, &GraphLoadError{Location: uri, Format: f.Name, Message: "error executing GET", Wrapped: err}
	}

	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != 200 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, &GraphLoadError{Location: uri, Format: f.Name, Message: fmt.Sprintf("status code %d: %s", res.StatusCode, string(buf))}
	}

	triples, err := f.decode(res.Body)
	if err != nil {
		return nil, &GraphLoadError{Location: uri, Format: f.Name, Message: "unable to decode", Wrapped: err}
	}

	return triples, nil
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
