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

// Writes query results to standard output: numbered rows for SELECT, a serialized graph for CONSTRUCT and DESCRIBE,
// and true or false for ASK
package output

import (
	"bufio"
	"bytes"
	"fmt"
	"github.com/cockroachdb/errors"
	"io"
	"spahqler/logger"
	"spahqler/model"
	"spahqler/sparql"
	"strings"
)

// Writes the result.  Rows are written one at a time as they are produced; a graph is serialized in the format
// first, so an unsupported format is reported before anything is written.
func Write(w io.Writer, result *sparql.Result, format string) error {
	switch result.Type {
	case sparql.Rows:
		return writeRows(w, result.Rows)
	case sparql.Graph:
		return writeGraph(w, result.Graph, format)
	default:
		_, err := fmt.Fprintln(w, result.Boolean)
		return errors.Wrap(err, "output: error writing boolean result")
	}
}

// Formats one row: its 1-based number in brackets, padded to six characters, then the plain value of each term.
// The padding is "%-6s" plus two spaces, so "[1]" is followed by exactly five spaces (not six); existing consumers of
// the row output depend on this layout.
func FormatRow(n int, row []string) string {
	return fmt.Sprintf("%-6s  %s", fmt.Sprintf("[%d]", n), strings.Join(row, " \t"))
}

func writeRows(w io.Writer, rows sparql.RowIterator) error {
	defer rows.Close()

	buffered := bufio.NewWriter(w)
	n := 0
	for rows.Next() {
		n++
		row := rows.Row()
		values := make([]string, len(row))
		for i, term := range row {
			values[i] = model.Value(term)
		}
		if _, err := fmt.Fprintln(buffered, FormatRow(n, values)); err != nil {
			return errors.Wrapf(err, "output: error writing row %d", n)
		}
		// rows appear as soon as they are produced
		if err := buffered.Flush(); err != nil {
			return errors.Wrapf(err, "output: error writing row %d", n)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	logger.Logger.Debugf("output: wrote %d rows", n)
	return nil
}

func writeGraph(w io.Writer, g *model.Graph, format string) error {
	serializer, err := NewSerializer(format)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := serializer.Serialize(&buf, g.Triples()); err != nil {
		return err
	}
	logger.Logger.Debugf("output: serialized %d triples as %s", g.Len(), serializer.Name())

	// the serialization is printed as one block, followed by a newline
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return errors.Wrap(err, "output: error writing graph")
}
