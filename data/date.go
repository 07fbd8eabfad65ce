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
package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/penny-vault/pvportfolio/period"
)

var ErrInvalidYearRange = errors.New("invalid year range")

// Date is one row of the monthly date dimension. Each row stands for a whole
// month and carries the first day of that month as its representative date.
type Date struct {
	DateID       period.Key `db:"date_id"`
	Date         time.Time  `db:"date"`
	Year         int        `db:"year"`
	Month        int        `db:"month"`
	Quarter      int        `db:"quarter"`
	YearMonth    string     `db:"year_month"`
	MonthName    string     `db:"month_name"`
	DayOfWeek    int        `db:"day_of_week"`
	IsMonthEnd   bool       `db:"is_month_end"`
	IsQuarterEnd bool       `db:"is_quarter_end"`
	IsYearEnd    bool       `db:"is_year_end"`
}

// GenerateDateDimension returns one row per calendar month from January of
// startYear through December of endYear in chronological order.
func GenerateDateDimension(startYear, endYear int) ([]*Date, error) {
	if startYear < 1 || endYear < startYear {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidYearRange, startYear, endYear)
	}

	dates := make([]*Date, 0, (endYear-startYear+1)*12)
	for year := startYear; year <= endYear; year++ {
		for month := time.January; month <= time.December; month++ {
			dates = append(dates, NewDate(year, month))
		}
	}

	return dates, nil
}

// NewDate builds the dimension row for the given month
func NewDate(year int, month time.Month) *Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	m := int(month)

	return &Date{
		DateID:    period.FromTime(first),
		Date:      first,
		Year:      year,
		Month:     m,
		Quarter:   1 + (m-1)/3,
		YearMonth: first.Format("2006-01"),
		MonthName: month.String(),
		// Monday is 0
		DayOfWeek: (int(first.Weekday()) + 6) % 7,
		// the representative date covers the whole month
		IsMonthEnd:   true,
		IsQuarterEnd: m%3 == 0,
		IsYearEnd:    month == time.December,
	}
}

func (date *Date) Values() []any {
	return []any{
		int(date.DateID),
		date.Date,
		date.Year,
		date.Month,
		date.Quarter,
		date.YearMonth,
		date.MonthName,
		date.DayOfWeek,
		date.IsMonthEnd,
		date.IsQuarterEnd,
		date.IsYearEnd,
	}
}
