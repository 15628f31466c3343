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
	"math"
	"net/url"
	"spahqler/model"
	"strconv"
	"strings"
	"time"
)

var integerTypes = map[string]bool{
	model.XsdNsUri + "integer":            true,
	model.XsdNsUri + "int":                true,
	model.XsdNsUri + "long":               true,
	model.XsdNsUri + "short":              true,
	model.XsdNsUri + "byte":               true,
	model.XsdNsUri + "nonNegativeInteger": true,
	model.XsdNsUri + "nonPositiveInteger": true,
	model.XsdNsUri + "negativeInteger":    true,
	model.XsdNsUri + "positiveInteger":    true,
	model.XsdNsUri + "unsignedLong":       true,
	model.XsdNsUri + "unsignedInt":        true,
	model.XsdNsUri + "unsignedShort":      true,
	model.XsdNsUri + "unsignedByte":       true,
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02Z07:00",
	"2006-01-02",
}

type numType int

const (
	numInteger numType = iota
	numDecimal
	numFloat
	numDouble
)

// number is the value of a numeric literal; i holds integers, f everything else
type number struct {
	typ numType
	i   int64
	f   float64
}

func (n number) float() float64 {
	if n.typ == numInteger {
		return float64(n.i)
	}
	return n.f
}

func (n number) term() rdf.Term {
	switch n.typ {
	case numInteger:
		return rdf.NewTypedLiteral(strconv.FormatInt(n.i, 10), model.XsdInteger)
	case numDecimal:
		return rdf.NewTypedLiteral(formatDecimal(n.f), model.XsdDecimal)
	case numFloat:
		return rdf.NewTypedLiteral(formatDouble(n.f), model.XsdFloat)
	default:
		return rdf.NewTypedLiteral(formatDouble(n.f), model.XsdDouble)
	}
}

func formatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") && !math.IsInf(f, 0) && !math.IsNaN(f) {
		s += ".0"
	}
	return s
}

// formatDouble writes the canonical xsd:double form, e.g. 1.5E2
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mantissa, exponent, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	exp, _ := strconv.Atoi(exponent)
	return mantissa + "E" + strconv.Itoa(exp)
}

// Answers the numeric value of a literal with a numeric datatype
func numericValue(t rdf.Term) (number, bool) {
	l, ok := t.(rdf.Literal)
	if !ok || l.Lang() != "" {
		return number{}, false
	}
	dt := l.DataType.String()
	lexical := strings.TrimSpace(l.String())
	switch {
	case integerTypes[dt]:
		i, err := strconv.ParseInt(strings.TrimPrefix(lexical, "+"), 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			// too large for int64, the value is carried as a decimal
			f, err := strconv.ParseFloat(lexical, 64)
			return number{typ: numDecimal, f: f}, err == nil
		}
		if err != nil {
			return number{}, false
		}
		return number{typ: numInteger, i: i}, true
	case dt == model.XsdDecimal.String():
		f, err := strconv.ParseFloat(lexical, 64)
		return number{typ: numDecimal, f: f}, err == nil
	case dt == model.XsdDouble.String(), dt == model.XsdFloat.String():
		f, ok := parseDouble(lexical)
		typ := numDouble
		if dt == model.XsdFloat.String() {
			typ = numFloat
		}
		return number{typ: typ, f: f}, ok
	}
	return number{}, false
}

func parseDouble(lexical string) (float64, bool) {
	switch lexical {
	case "INF", "+INF":
		return math.Inf(1), true
	case "-INF":
		return math.Inf(-1), true
	case "NaN":
		return math.NaN(), true
	}
	f, err := strconv.ParseFloat(lexical, 64)
	return f, err == nil
}

func isNumeric(t rdf.Term) bool {
	_, ok := numericValue(t)
	return ok
}

// Answers the lexical form and language of a simple, xsd:string or language-tagged literal
func stringValue(t rdf.Term) (lexical, lang string, ok bool) {
	l, isLiteral := t.(rdf.Literal)
	if !isLiteral {
		return "", "", false
	}
	if l.Lang() != "" {
		return l.String(), l.Lang(), true
	}
	if model.IsString(l) {
		return l.String(), "", true
	}
	return "", "", false
}

func booleanValue(t rdf.Term) (bool, bool) {
	l, ok := t.(rdf.Literal)
	if !ok || l.Lang() != "" || l.DataType.String() != model.XsdBoolean.String() {
		return false, false
	}
	switch strings.TrimSpace(l.String()) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// Answers the time of an xsd:dateTime or xsd:date literal
func dateTimeValue(t rdf.Term) (time.Time, bool) {
	l, ok := t.(rdf.Literal)
	if !ok {
		return time.Time{}, false
	}
	dt := l.DataType.String()
	if dt != model.XsdDateTime.String() && dt != model.XsdNsUri+"date" {
		return time.Time{}, false
	}
	if typed, err := l.Typed(); err == nil {
		if tm, ok := typed.(time.Time); ok {
			return tm, true
		}
	}
	lexical := strings.TrimSpace(l.String())
	for _, layout := range dateTimeLayouts {
		if tm, err := time.Parse(layout, lexical); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

func newString(s string) rdf.Term {
	return rdf.NewTypedLiteral(s, model.XsdString)
}

// Answers a language-tagged literal, or a simple literal when lang is empty
func newLangString(s, lang string) rdf.Term {
	if lang == "" {
		return newString(s)
	}
	l, err := rdf.NewLangLiteral(s, lang)
	if err != nil {
		return newString(s)
	}
	return l
}

func newBoolean(b bool) rdf.Term {
	return rdf.NewTypedLiteral(strconv.FormatBool(b), model.XsdBoolean)
}

func newInteger(i int64) rdf.Term {
	return rdf.NewTypedLiteral(strconv.FormatInt(i, 10), model.XsdInteger)
}

// Resolves a relative IRI reference against the base IRI; absolute references, or an empty base, answer ref itself
func resolveIRI(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
