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

package model

import (
	"fmt"
	"github.com/knakk/rdf"
	"strings"
)

var (
	XsdString     = mustIRI(XsdNsUri + "string")
	XsdBoolean    = mustIRI(XsdNsUri + "boolean")
	XsdInteger    = mustIRI(XsdNsUri + "integer")
	XsdDecimal    = mustIRI(XsdNsUri + "decimal")
	XsdDouble     = mustIRI(XsdNsUri + "double")
	XsdFloat      = mustIRI(XsdNsUri + "float")
	XsdDateTime   = mustIRI(XsdNsUri + "dateTime")
	RdfLangString = mustIRI(RdfNsUri + "langString")
	RdfType       = mustIRI(RdfTypeUri)
)

func mustIRI(iri string) rdf.IRI {
	i, err := rdf.NewIRI(iri)
	if err != nil {
		panic(fmt.Sprintf("model: invalid IRI %s: %s", iri, err))
	}
	return i
}

// Answers a string which uniquely identifies the term: its N-Triples serialization.  Simple literals and
// xsd:string literals share one key, since RDF 1.1 treats them as the same term.  The nil term answers the empty
// string.
func Key(t rdf.Term) string {
	if t == nil {
		return ""
	}
	if l, ok := t.(rdf.Literal); ok && IsString(l) {
		return "\"" + literalEscaper.Replace(l.String()) + "\""
	}
	return t.Serialize(rdf.NTriples)
}

var literalEscaper = strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n", "\r", "\\r", "\t", "\\t")

func TripleKey(t rdf.Triple) string {
	return Key(t.Subj) + " " + Key(t.Pred) + " " + Key(t.Obj)
}

// Answers true if both terms are nil, or both are the same RDF term
func Equal(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type() == b.Type() && Key(a) == Key(b)
}

// Answers the plain string value of a term: the IRI of an IRI, the lexical form of a literal and the label of
// a blank node.  The nil term (an unbound variable) answers the empty string.
func Value(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.Blank:
		return BlankLabel(v)
	default:
		return v.String()
	}
}

// Answers the label of a blank node, without the '_:' prefix
func BlankLabel(b rdf.Blank) string {
	return strings.TrimPrefix(b.Serialize(rdf.NTriples), "_:")
}

// Answers the datatype IRI of a literal.  Language-tagged literals answer rdf:langString.
func Datatype(l rdf.Literal) rdf.IRI {
	if l.Lang() != "" {
		return RdfLangString
	}
	if l.DataType.String() == "" {
		return XsdString
	}
	return l.DataType
}

// Answers true for a simple literal or an xsd:string literal
func IsString(l rdf.Literal) bool {
	return l.Lang() == "" && Datatype(l).String() == XsdString.String()
}

// Parses a single term from its N-Triples serialization, i.e. the inverse of Key
func ParseTerm(key string) (rdf.Term, error) {
	line := fmt.Sprintf("<urn:spahqler:s> <urn:spahqler:p> %s .\n", key)
	triple, err := rdf.NewTripleDecoder(strings.NewReader(line), rdf.NTriples).Decode()
	if err != nil {
		return nil, fmt.Errorf("model: unable to parse term %s: %w", key, err)
	}
	return triple.Obj, nil
}

// Answers the term as a triple subject, or false if the term may not appear in subject position
func AsSubject(t rdf.Term) (rdf.Subject, bool) {
	switch v := t.(type) {
	case rdf.IRI:
		return v, true
	case rdf.Blank:
		return v, true
	}
	return nil, false
}

// Answers the term as a triple predicate, or false if the term is not an IRI
func AsPredicate(t rdf.Term) (rdf.Predicate, bool) {
	if v, ok := t.(rdf.IRI); ok {
		return v, true
	}
	return nil, false
}

// Answers the term as a triple object, or false if the term is nil
func AsObject(t rdf.Term) (rdf.Object, bool) {
	switch v := t.(type) {
	case rdf.IRI:
		return v, true
	case rdf.Blank:
		return v, true
	case rdf.Literal:
		return v, true
	}
	return nil, false
}
