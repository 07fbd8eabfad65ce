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

// Package warehousetest provides an in-memory warehouse for tests. It honours
// table keys, generated ids and transaction boundaries the way the
// PostgreSQL store does.
package warehousetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jackc/pgx/v5"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/warehouse"
)

var ErrInjected = errors.New("injected failure")

type table struct {
	rows []map[string]any
	keys mapset.Set[string]
}

// Store is an in-memory warehouse.Store
type Store struct {
	// FailOn names a table; any insert into it fails with ErrInjected
	FailOn string

	Begun      int
	Committed  int
	RolledBack int

	mu        sync.Mutex
	tables    map[string]*table
	sequences map[string]int64
}

func New() *Store {
	return &Store{
		tables:    make(map[string]*table),
		sequences: make(map[string]int64),
	}
}

func (store *Store) Begin(ctx context.Context) (warehouse.Tx, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.Begun++
	return &memTx{
		store:  store,
		staged: make(map[string]*table),
	}, nil
}

// Rows returns a copy of the committed rows of tbl keyed by column name
func (store *Store) Rows(tbl *data.Table) []map[string]any {
	store.mu.Lock()
	defer store.mu.Unlock()

	committed, ok := store.tables[tbl.Name]
	if !ok {
		return nil
	}

	rows := make([]map[string]any, len(committed.rows))
	for idx, row := range committed.rows {
		rows[idx] = make(map[string]any, len(row))
		for col, val := range row {
			rows[idx][col] = val
		}
	}
	return rows
}

// Count returns the number of committed rows in tbl
func (store *Store) Count(tbl *data.Table) int {
	store.mu.Lock()
	defer store.mu.Unlock()

	if committed, ok := store.tables[tbl.Name]; ok {
		return len(committed.rows)
	}
	return 0
}

// nextID mimics a database sequence: ids are never reused, even when the
// transaction that drew them rolls back
func (store *Store) nextID(tbl *data.Table) int64 {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.sequences[tbl.Name]++
	return store.sequences[tbl.Name]
}

type memTx struct {
	store  *Store
	staged map[string]*table
	closed bool
}

func newTable() *table {
	return &table{keys: mapset.NewThreadUnsafeSet[string]()}
}

func (tx *memTx) stagedTable(tbl *data.Table) *table {
	staged, ok := tx.staged[tbl.Name]
	if !ok {
		staged = newTable()
		tx.staged[tbl.Name] = staged
	}
	return staged
}

func (tx *memTx) hasKey(tbl *data.Table, key string) bool {
	if tx.stagedTable(tbl).keys.Contains(key) {
		return true
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	committed, ok := tx.store.tables[tbl.Name]
	return ok && committed.keys.Contains(key)
}

func (tx *memTx) Insert(ctx context.Context, tbl *data.Table, rows [][]any) (int64, error) {
	if tx.closed {
		return 0, pgx.ErrTxClosed
	}

	if tx.store.FailOn == tbl.Name {
		return 0, fmt.Errorf("insert into %s: %w", tbl.QualifiedName(), ErrInjected)
	}

	staged := tx.stagedTable(tbl)

	var inserted int64
	for idx, row := range rows {
		if len(row) != len(tbl.Columns) {
			return inserted, fmt.Errorf("insert into %s: row %d has %d values, want %d", tbl.QualifiedName(), idx, len(row), len(tbl.Columns))
		}

		key := tbl.RowKey(row)
		if key != "" {
			if tx.hasKey(tbl, key) {
				continue
			}
			staged.keys.Add(key)
		}

		values := make(map[string]any, len(row)+1)
		for colIdx, col := range tbl.Columns {
			values[col] = row[colIdx]
		}
		if tbl.Generated != "" {
			values[tbl.Generated] = tx.store.nextID(tbl)
		}

		staged.rows = append(staged.rows, values)
		inserted++
	}

	return inserted, nil
}

func (tx *memTx) Keys(ctx context.Context, tbl *data.Table) (mapset.Set[string], error) {
	if tx.closed {
		return nil, pgx.ErrTxClosed
	}

	keys := mapset.NewThreadUnsafeSet[string]()
	if len(tbl.Key) == 0 {
		return keys, nil
	}

	tx.store.mu.Lock()
	if committed, ok := tx.store.tables[tbl.Name]; ok {
		keys = keys.Union(committed.keys)
	}
	tx.store.mu.Unlock()

	return keys.Union(tx.stagedTable(tbl).keys), nil
}

func (tx *memTx) KpiCatalog(ctx context.Context) (data.KpiCatalog, error) {
	if tx.closed {
		return data.KpiCatalog{}, pgx.ErrTxClosed
	}

	var kpis []*data.Kpi
	collect := func(rows []map[string]any) {
		for _, row := range rows {
			kpis = append(kpis, &data.Kpi{
				KpiID:   row[data.KpiTable.Generated].(int64),
				KpiName: fmt.Sprint(row["kpi_name"]),
			})
		}
	}

	tx.store.mu.Lock()
	if committed, ok := tx.store.tables[data.KpiTable.Name]; ok {
		collect(committed.rows)
	}
	tx.store.mu.Unlock()
	collect(tx.stagedTable(data.KpiTable).rows)

	return data.NewKpiCatalog(kpis), nil
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for name, staged := range tx.staged {
		committed, ok := tx.store.tables[name]
		if !ok {
			committed = newTable()
			tx.store.tables[name] = committed
		}
		committed.rows = append(committed.rows, staged.rows...)
		committed.keys = committed.keys.Union(staged.keys)
	}

	tx.store.Committed++
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	tx.store.RolledBack++
	return nil
}
