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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads every sheet of an Excel workbook. Cells are read raw so
// numbers keep full precision; date cells arrive as serials and are rendered
// back to text.
func ReadXLSX(fn string) (*Workbook, error) {
	book, err := excelize.OpenFile(fn)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", fn, err)
	}
	defer func() {
		if err := book.Close(); err != nil {
			log.Warn().Err(err).Str("FileName", fn).Msg("closing workbook failed")
		}
	}()

	present := make(map[string]bool)
	for _, name := range book.GetSheetList() {
		present[name] = true
	}

	sheets := make(map[string]*sheet, len(sheetSpecs))
	for _, spec := range sheetSpecs {
		if !present[spec.name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingSheet, spec.name)
		}

		rows, err := book.GetRows(spec.name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", spec.name, err)
		}

		var sh *sheet
		if len(rows) == 0 {
			sh = newSheet(spec.name, nil, nil)
		} else {
			sh = newSheet(spec.name, rows[0], rows[1:])
		}

		for col, layout := range spec.dateColumns {
			idx := sh.column(col)
			if idx < 0 {
				continue
			}
			for _, row := range sh.rows {
				row[idx] = renderSerial(row[idx], layout)
			}
		}

		log.Debug().Str("Sheet", spec.name).Int("NumRows", len(sh.rows)).Msg("read workbook sheet")
		sheets[spec.name] = sh
	}

	return decode(fn, sheets)
}

// Excel serials below minDateSerial (1927-05-18) are far more likely to be a
// bare year or a count than a date; maxDateSerial is 9999-12-31.
const (
	minDateSerial = 10000
	maxDateSerial = 2958465
)

// SerialDate converts an Excel date serial to a time. The second result is
// false when val is not a serial in the plausible date range.
func SerialDate(val string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || serial < minDateSerial || serial > maxDateSerial {
		return time.Time{}, false
	}

	tm, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return tm, true
}

// renderSerial formats an Excel date serial with layout. Anything that is not
// a serial is returned unchanged.
func renderSerial(val, layout string) string {
	if tm, ok := SerialDate(val); ok {
		return tm.Format(layout)
	}
	return val
}
