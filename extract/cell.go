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
	"math"
	"strconv"
)

// Float is an optional numeric cell; the zero value is an absent cell
type Float struct {
	value *float64
}

// Int is an optional whole-number cell that fits a 32-bit warehouse column
type Int struct {
	value *int64
}

// Text is an optional text cell, stored trimmed
type Text struct {
	value *string
}

func FloatOf(v float64) Float {
	return Float{value: &v}
}

func IntOf(v int64) Int {
	return Int{value: &v}
}

func TextOf(v string) Text {
	return Text{value: &v}
}

// Ptr returns nil when the cell was absent
func (cell Float) Ptr() *float64 {
	return cell.value
}

func (cell Float) MarshalCSV() (string, error) {
	if cell.value == nil {
		return "", nil
	}
	return strconv.FormatFloat(*cell.value, 'f', -1, 64), nil
}

func (cell *Float) UnmarshalCSV(val string) error {
	cell.value = nil

	val = cellValue(val)
	if val == "" {
		return nil
	}

	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("%w: value %q: %w", ErrBadValue, val, err)
	}

	if !math.IsNaN(num) {
		cell.value = &num
	}
	return nil
}

func (cell Int) Ptr() *int64 {
	return cell.value
}

func (cell Int) MarshalCSV() (string, error) {
	if cell.value == nil {
		return "", nil
	}
	return strconv.FormatInt(*cell.value, 10), nil
}

// UnmarshalCSV accepts integral values written as floats ("2015.0"),
// truncating any fractional part
func (cell *Int) UnmarshalCSV(val string) error {
	var num Float
	if err := num.UnmarshalCSV(val); err != nil {
		return err
	}

	cell.value = nil
	if num.value == nil {
		return nil
	}

	if math.IsInf(*num.value, 0) || *num.value >= math.MaxInt32+1 || *num.value <= math.MinInt32-1 {
		return fmt.Errorf("%w: value %q: %w", ErrBadValue, cellValue(val), strconv.ErrRange)
	}

	whole := int64(*num.value)
	cell.value = &whole
	return nil
}

func (cell Text) Ptr() *string {
	return cell.value
}

func (cell Text) MarshalCSV() (string, error) {
	if cell.value == nil {
		return "", nil
	}
	return *cell.value, nil
}

func (cell *Text) UnmarshalCSV(val string) error {
	cell.value = nil
	if val = cellValue(val); val != "" {
		cell.value = &val
	}
	return nil
}
