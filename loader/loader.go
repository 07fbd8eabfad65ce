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

// Package loader moves extract records into the warehouse. Each loader runs
// inside the unit of work it is handed and never commits; the caller decides
// whether the batch becomes durable.
package loader

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/period"
	"github.com/penny-vault/pvportfolio/warehouse"
)

// batch collects the rows of one loader invocation, collapsing rows that
// repeat a key already in the batch onto the first occurrence
type batch struct {
	tbl    *data.Table
	result *data.LoadResult
	seen   mapset.Set[string]
	rows   [][]any
}

func newBatch(tbl *data.Table, read int) *batch {
	return &batch{
		tbl:    tbl,
		result: data.NewLoadResult("", tbl, read),
		seen:   mapset.NewThreadUnsafeSet[string](),
	}
}

func (b *batch) add(row []any) {
	if key := b.tbl.RowKey(row); key != "" {
		if !b.seen.Add(key) {
			b.result.Duplicates++
			return
		}
	}
	b.rows = append(b.rows, row)
}

// flush writes the batch through tx and returns the final counts
func (b *batch) flush(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
	b.result.Prepared = len(b.rows)

	inserted, err := tx.Insert(ctx, b.tbl, b.rows)
	if err != nil {
		return b.result, err
	}
	b.result.Inserted = inserted

	zerolog.Ctx(ctx).Info().Object("Result", b.result).Str("Table", b.tbl.QualifiedName()).Msg("loaded table")
	return b.result, nil
}

// skip records a row that cannot be loaded
func (b *batch) skip(ctx context.Context, reason string, line int, companyID string) {
	b.result.Skip(reason)
	zerolog.Ctx(ctx).Warn().
		Str("Table", b.tbl.QualifiedName()).
		Str("Reason", reason).
		Int("Line", line).
		Str("CompanyID", companyID).
		Msg("skipping row")
}

// keySets reads the key set of each table once so rows can be resolved
// without a round trip per row
func keySets(ctx context.Context, tx warehouse.Tx, tables ...*data.Table) ([]mapset.Set[string], error) {
	sets := make([]mapset.Set[string], len(tables))
	for idx, tbl := range tables {
		keys, err := tx.Keys(ctx, tbl)
		if err != nil {
			return nil, err
		}
		sets[idx] = keys
	}
	return sets, nil
}

// resolvePeriod maps a YYYY-MM label to a date key present in the date
// dimension; the returned reason is empty on success
func resolvePeriod(label string, dates mapset.Set[string]) (period.Key, string) {
	key, ok := period.FromLabel(label)
	if !ok {
		return period.Unresolved, data.SkipPeriod
	}
	if !dates.Contains(key.String()) {
		return period.Unresolved, data.SkipDate
	}
	return key, ""
}

// parseDate accepts the date forms found in extracts, including a bare Excel
// date serial. Layouts win over serials, so "2024" is a year.
func parseDate(value string) (time.Time, error) {
	tm, err := period.ParseDate(value)
	if err == nil {
		return tm, nil
	}

	if tm, ok := extract.SerialDate(value); ok {
		return tm, nil
	}
	return time.Time{}, err
}
