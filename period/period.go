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

// Package period derives the integer date keys that join every fact table to
// the monthly date dimension.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Key is a date_id of the form YYYYMMDD. Keys produced by this package always
// point at the first day of a month.
type Key int

// Unresolved is the zero Key; it never identifies a month.
const Unresolved Key = 0

var ErrUnparseableDate = errors.New("unparseable date")

// layouts accepted by ParseDate, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"20060102",
	"2006",
}

// FromLabel converts a "YYYY-MM" label into the key of the first day of that
// month. The second return value is false when the label is not exactly in
// that form.
func FromLabel(label string) (Key, bool) {
	if len(label) != 7 || label[4] != '-' {
		return Unresolved, false
	}

	year, ok := digits(label[:4])
	if !ok || year < 1 {
		return Unresolved, false
	}

	month, ok := digits(label[5:])
	if !ok || month < 1 || month > 12 {
		return Unresolved, false
	}

	return FromDate(year, time.Month(month)), true
}

// FromTime truncates t to its month and returns the key. The calendar fields
// are read in t's own location; no conversion is applied.
func FromTime(t time.Time) Key {
	return FromDate(t.Year(), t.Month())
}

// FromDate returns the key for the first day of the given month
func FromDate(year int, month time.Month) Key {
	return Key(year*10000 + int(month)*100 + 1)
}

// ParseDate reads a calendar date in any of the layouts found in portfolio
// extracts. Time of day, if present, is kept.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, value)
}

func (key Key) Year() int {
	return int(key) / 10000
}

func (key Key) Month() time.Month {
	return time.Month(int(key) / 100 % 100)
}

// Valid reports whether the key names the first day of a real month
func (key Key) Valid() bool {
	return key.Year() > 0 && key.Month() >= time.January && key.Month() <= time.December && int(key)%100 == 1
}

// Time returns midnight UTC on the first day of the key's month
func (key Key) Time() time.Time {
	return time.Date(key.Year(), key.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Label formats the key as "YYYY-MM"
func (key Key) Label() string {
	return fmt.Sprintf("%04d-%02d", key.Year(), int(key.Month()))
}

func (key Key) String() string {
	return fmt.Sprintf("%d", int(key))
}

func digits(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
