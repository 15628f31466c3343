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
	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"testing"
)

func Test_KeyRoundTrip(t *testing.T) {
	iri, _ := rdf.NewIRI("http://example.org/a")
	lit, _ := rdf.NewLangLiteral("chat", "fr")
	blank, _ := rdf.NewBlank("b1")
	typed := rdf.NewTypedLiteral("42", XsdInteger)

	for _, term := range []rdf.Term{iri, lit, blank, typed} {
		parsed, err := ParseTerm(Key(term))
		assert.Nil(t, err)
		assert.True(t, Equal(term, parsed), "%s did not survive a round trip", Key(term))
	}
}

func Test_ParseTermBad(t *testing.T) {
	_, err := ParseTerm("not a term")
	assert.NotNil(t, err)
}

func Test_Equal(t *testing.T) {
	a, _ := rdf.NewIRI("http://example.org/a")
	a2, _ := rdf.NewIRI("http://example.org/a")
	litA, _ := rdf.NewLiteral("http://example.org/a")

	assert.True(t, Equal(a, a2))
	assert.False(t, Equal(a, litA))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))
}

func Test_Value(t *testing.T) {
	iri, _ := rdf.NewIRI("http://example.org/a")
	lit, _ := rdf.NewLangLiteral("chat", "fr")
	blank, _ := rdf.NewBlank("b1")

	assert.Equal(t, "http://example.org/a", Value(iri))
	assert.Equal(t, "chat", Value(lit))
	assert.Equal(t, "b1", Value(blank))
	assert.Equal(t, "", Value(nil))
}

func Test_Datatype(t *testing.T) {
	plain, _ := rdf.NewLiteral("x")
	lang, _ := rdf.NewLangLiteral("x", "en")
	num := rdf.NewTypedLiteral("1", XsdInteger)

	assert.Equal(t, XsdString.String(), Datatype(plain).String())
	assert.Equal(t, RdfLangString.String(), Datatype(lang).String())
	assert.Equal(t, XsdInteger.String(), Datatype(num).String())
	assert.True(t, IsString(plain))
	assert.False(t, IsString(lang))
	assert.False(t, IsString(num))
}

func Test_Positions(t *testing.T) {
	iri, _ := rdf.NewIRI("http://example.org/a")
	lit, _ := rdf.NewLiteral("x")
	blank, _ := rdf.NewBlank("b1")

	_, ok := AsSubject(lit)
	assert.False(t, ok)
	_, ok = AsSubject(blank)
	assert.True(t, ok)
	_, ok = AsPredicate(blank)
	assert.False(t, ok)
	_, ok = AsPredicate(iri)
	assert.True(t, ok)
	_, ok = AsObject(nil)
	assert.False(t, ok)
	_, ok = AsObject(lit)
	assert.True(t, ok)
}

func Test_KeySimpleLiteral(t *testing.T) {
	plain, _ := rdf.NewLiteral("say \"hi\"\n")
	typed := rdf.NewTypedLiteral("say \"hi\"\n", XsdString)

	assert.Equal(t, `"say \"hi\"\n"`, Key(plain))
	assert.Equal(t, Key(plain), Key(typed))

	parsed, err := ParseTerm(Key(plain))
	assert.Nil(t, err)
	assert.True(t, Equal(plain, parsed))
}
