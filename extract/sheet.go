// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gocarina/gocsv"
)

// missingValues are the cell contents treated as an absent value
var missingValues = mapset.NewSet(
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a",
	"nan", "null",
)

// cellValue trims val and maps every missing marker to the empty string
func cellValue(val string) string {
	val = strings.TrimSpace(val)
	if missingValues.Contains(val) {
		return ""
	}
	return val
}

// sheet is one table of the extract with its cells normalized by cellValue
type sheet struct {
	name    string
	header  []string
	columns mapset.Set[string]
	rows    [][]string

	// lines holds the 1-based source line of each row, counting the header
	lines []int
}

// newSheet builds a sheet from a header row and its data rows. Rows where
// every cell is missing are dropped and short rows are padded to the header.
func newSheet(name string, header []string, body [][]string) *sheet {
	sh := &sheet{
		name:    name,
		header:  make([]string, len(header)),
		columns: mapset.NewSet[string](),
	}

	for idx, col := range header {
		sh.header[idx] = strings.TrimSpace(col)
		if sh.header[idx] != "" {
			sh.columns.Add(sh.header[idx])
		}
	}

	for idx, cells := range body {
		row := make([]string, max(len(cells), len(header)))
		empty := true
		for col, val := range cells {
			row[col] = cellValue(val)
			if row[col] != "" && col < len(header) && sh.header[col] != "" {
				empty = false
			}
		}

		if !empty {
			sh.rows = append(sh.rows, row)
			sh.lines = append(sh.lines, idx+2)
		}
	}

	return sh
}

func (sh *sheet) validate(spec sheetSpec) error {
	for _, col := range spec.required {
		if !sh.columns.Contains(col) {
			return fmt.Errorf("%w: %s.%s", ErrMissingColumn, sh.name, col)
		}
	}
	return nil
}

func (sh *sheet) column(name string) int {
	for idx, col := range sh.header {
		if col == name {
			return idx
		}
	}
	return -1
}

// reader serves the header followed by the data rows to gocsv
func (sh *sheet) reader() gocsv.CSVReader {
	return &sheetReader{sheet: sh}
}

// cellError names the sheet, row and column of a failed conversion
func (sh *sheet) cellError(err error) error {
	var parseErr *csv.ParseError
	if !errors.As(err, &parseErr) {
		return fmt.Errorf("sheet %s: %w", sh.name, err)
	}

	line := parseErr.Line
	if idx := parseErr.Line - 2; idx >= 0 && idx < len(sh.lines) {
		line = sh.lines[idx]
	}

	col := fmt.Sprintf("%d", parseErr.Column)
	if idx := parseErr.Column - 1; idx >= 0 && idx < len(sh.header) {
		col = sh.header[idx]
	}

	return fmt.Errorf("sheet %s row %d column %s: %w", sh.name, line, col, parseErr.Err)
}

type sheetReader struct {
	sheet *sheet
	pos   int
}

func (r *sheetReader) Read() ([]string, error) {
	if r.pos > len(r.sheet.rows) {
		return nil, io.EOF
	}

	row := r.sheet.header
	if r.pos > 0 {
		row = r.sheet.rows[r.pos-1]
	}
	r.pos++
	return row, nil
}

func (r *sheetReader) ReadAll() ([][]string, error) {
	var all [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		all = append(all, row)
	}
}

// lineSetter is implemented by every record type so decoded records remember
// where they came from
type lineSetter interface {
	setLine(int)
}

// unmarshalSheet decodes the rows of sh into records through their csv tags
func unmarshalSheet[T any, P interface {
	*T
	lineSetter
}](sh *sheet) ([]*T, error) {
	records := make([]*T, 0, len(sh.rows))
	if err := gocsv.UnmarshalCSV(sh.reader(), &records); err != nil {
		return nil, sh.cellError(err)
	}

	for idx, rec := range records {
		P(rec).setLine(sh.lines[idx])
	}
	return records, nil
}
