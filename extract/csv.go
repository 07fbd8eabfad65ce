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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// ReadCSVDir reads a directory where each sheet is stored as <Sheet>.csv
func ReadCSVDir(dir string) (*Workbook, error) {
	sheets := make(map[string]*sheet, len(sheetSpecs))

	for _, spec := range sheetSpecs {
		fn := filepath.Join(dir, spec.name+".csv")
		sh, err := readCSVSheet(spec.name, fn)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (looked for %s)", ErrMissingSheet, spec.name, fn)
		}
		if err != nil {
			return nil, err
		}

		log.Debug().Str("Sheet", spec.name).Str("FileName", fn).Int("NumRows", len(sh.rows)).Msg("read csv sheet")
		sheets[spec.name] = sh
	}

	return decode(dir, sheets)
}

func readCSVSheet(name, fn string) (*sheet, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rows, err := gocsv.DefaultCSVReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fn, err)
	}

	if len(rows) == 0 {
		return newSheet(name, nil, nil), nil
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return newSheet(name, header, rows[1:]), nil
}
