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

package retrieve

import (
	"encoding/json"
	"fmt"
	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
	"io"
	"strings"
)

const (
	NTriplesMediaType = "application/n-triples"
	TurtleMediaType   = "text/turtle"
	RdfXmlMediaType   = "application/rdf+xml"
	NQuadsMediaType   = "application/n-quads"
	JsonLdMediaType   = "application/ld+json"
)

// A graph serialization which can be decoded into triples
type Format struct {
	Name      string
	MediaType string
	decode    func(r io.Reader) ([]rdf.Triple, error)
}

var (
	nTriples = Format{"nt", NTriplesMediaType, tripleDecoder(rdf.NTriples)}
	turtle   = Format{"turtle", TurtleMediaType, tripleDecoder(rdf.Turtle)}
	rdfXml   = Format{"xml", RdfXmlMediaType, tripleDecoder(rdf.RDFXML)}
	nQuads   = Format{"nquads", NQuadsMediaType, decodeNQuads}
	jsonLd   = Format{"json-ld", JsonLdMediaType, decodeJsonLd}
)

// format tags, as accepted on the command line, keyed by their lower-case form
var formats = map[string]Format{
	"nt":              nTriples,
	"ntriples":        nTriples,
	"n-triples":       nTriples,
	NTriplesMediaType: nTriples,
	"ttl":             turtle,
	"turtle":          turtle,
	"n3":              turtle,
	TurtleMediaType:   turtle,
	"xml":             rdfXml,
	"rdfxml":          rdfXml,
	"rdf/xml":         rdfXml,
	RdfXmlMediaType:   rdfXml,
	"nq":              nQuads,
	"nquads":          nQuads,
	"n-quads":         nQuads,
	NQuadsMediaType:   nQuads,
	"json-ld":         jsonLd,
	"jsonld":          jsonLd,
	JsonLdMediaType:   jsonLd,
}

// Answers the Format for the tag, e.g. 'nt', 'ttl' or 'application/rdf+xml'
func LookupFormat(tag string) (Format, error) {
	if f, ok := formats[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return f, nil
	}
	return Format{}, fmt.Errorf("retrieve: unknown graph format '%s'", tag)
}

func tripleDecoder(f rdf.Format) func(r io.Reader) ([]rdf.Triple, error) {
	return func(r io.Reader) ([]rdf.Triple, error) {
		return rdf.NewTripleDecoder(r, f).DecodeAll()
	}
}

// Decodes N-Quads, merging every named graph into the default graph
func decodeNQuads(r io.Reader) ([]rdf.Triple, error) {
	quads, err := rdf.NewQuadDecoder(r, rdf.NQuads).DecodeAll()
	if err != nil {
		return nil, err
	}

	triples := make([]rdf.Triple, len(quads))
	for i := range quads {
		triples[i] = quads[i].Triple
	}

	return triples, nil
}

// Decodes JSON-LD by converting it to N-Quads with json-gold
func decodeJsonLd(r io.Reader) ([]rdf.Triple, error) {
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = NQuadsMediaType

	nquads, err := proc.ToRDF(doc, opts)
	if err != nil {
		return nil, err
	}

	s, ok := nquads.(string)
	if !ok {
		return nil, fmt.Errorf("retrieve: unexpected JSON-LD conversion result %T", nquads)
	}

	return decodeNQuads(strings.NewReader(s))
}
