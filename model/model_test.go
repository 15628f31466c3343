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
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

const twoSubjects = `<http://example.org/a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/Thing> .
<http://example.org/a> <http://example.org/name> "Alice"@en .
<http://example.org/b> <http://example.org/knows> _:x .
<http://example.org/a> <http://example.org/name> "Alice"@en .
`

func decode(t *testing.T, nt string) []rdf.Triple {
	triples, err := rdf.NewTripleDecoder(strings.NewReader(nt), rdf.NTriples).DecodeAll()
	require.Nil(t, err)
	return triples
}

func Test_GraphDropsDuplicates(t *testing.T) {
	g := NewGraph(decode(t, twoSubjects))

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, "http://example.org/a", g.Triples()[0].Subj.String())
	assert.Equal(t, "http://example.org/b", g.Triples()[2].Subj.String())
	assert.False(t, g.Add(g.Triples()[1]))
	assert.True(t, g.Contains(g.Triples()[1]))
}

func Test_GraphSubjects(t *testing.T) {
	g := NewGraph(decode(t, twoSubjects))

	subjects := g.Subjects()
	assert.Equal(t, 2, len(subjects))
	assert.Equal(t, "http://example.org/a", subjects[0].String())
}

func Test_GraphFilter(t *testing.T) {
	g := NewGraph(decode(t, twoSubjects))

	typed := g.Filter(func(triple rdf.Triple) bool {
		return triple.Pred.String() == RdfTypeUri
	})

	assert.Equal(t, 1, len(typed))
	assert.Equal(t, "http://example.org/Thing", typed[0].Obj.String())
}

func Test_ZeroGraph(t *testing.T) {
	g := &Graph{}
	assert.Equal(t, 0, g.Len())

	s, _ := rdf.NewIRI("http://example.org/s")
	assert.True(t, g.Add(rdf.Triple{Subj: s, Pred: RdfType, Obj: s}))
	assert.Equal(t, 1, g.Len())
}
