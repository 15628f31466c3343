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

package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
	"io"
	"strings"
)

// The output format is unknown, or cannot be written
type FormatError struct {
	Format  string
	Wrapped error
}

func (e *FormatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("output: unable to serialize graph as '%s': %s", e.Format, e.Wrapped)
	}
	return fmt.Sprintf("output: unsupported output format '%s'", e.Format)
}

func (e *FormatError) Unwrap() error {
	return e.Wrapped
}

// Serializes triples in one RDF format
type Serializer interface {
	Name() string
	Serialize(w io.Writer, triples []rdf.Triple) error
}

type serializer struct {
	name      string
	serialize func(w io.Writer, triples []rdf.Triple) error
}

func (s serializer) Name() string {
	return s.name
}

func (s serializer) Serialize(w io.Writer, triples []rdf.Triple) error {
	if err := s.serialize(w, triples); err != nil {
		return &FormatError{Format: s.name, Wrapped: err}
	}
	return nil
}

var (
	nTriples = serializer{"nt", tripleEncoder(rdf.NTriples)}
	turtle   = serializer{"turtle", tripleEncoder(rdf.Turtle)}
	// a graph without names: its N-Quads are its N-Triples
	nQuads = serializer{"nquads", tripleEncoder(rdf.NTriples)}
	jsonLd = serializer{"json-ld", encodeJsonLd}
)

var serializers = map[string]serializer{
	"nt":                    nTriples,
	"ntriples":              nTriples,
	"n-triples":             nTriples,
	"application/n-triples": nTriples,
	"ttl":                   turtle,
	"turtle":                turtle,
	"n3":                    turtle,
	"text/turtle":           turtle,
	"nq":                    nQuads,
	"nquads":                nQuads,
	"n-quads":               nQuads,
	"application/n-quads":   nQuads,
	"json-ld":               jsonLd,
	"jsonld":                jsonLd,
	"application/ld+json":   jsonLd,
}

// Answers the Serializer for the format tag, e.g. 'nt', 'ttl' or 'json-ld'.  Unknown tags answer a *FormatError.
func NewSerializer(format string) (Serializer, error) {
	if s, ok := serializers[strings.ToLower(strings.TrimSpace(format))]; ok {
		return s, nil
	}
	return nil, &FormatError{Format: format}
}

func tripleEncoder(f rdf.Format) func(w io.Writer, triples []rdf.Triple) error {
	return func(w io.Writer, triples []rdf.Triple) error {
		enc := rdf.NewTripleEncoder(w, f)
		if err := enc.EncodeAll(triples); err != nil {
			return err
		}
		return enc.Close()
	}
}

// Converts the triples to expanded JSON-LD by way of N-Quads
func encodeJsonLd(w io.Writer, triples []rdf.Triple) error {
	var nquads bytes.Buffer
	if err := tripleEncoder(rdf.NTriples)(&nquads, triples); err != nil {
		return err
	}

	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	doc, err := ld.NewJsonLdProcessor().FromRDF(nquads.String(), opts)
	if err != nil {
		return errors.Wrap(err, "converting to JSON-LD")
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding JSON-LD")
	}
	_, err = w.Write(out)
	return err
}
