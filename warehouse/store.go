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

// Package warehouse persists the portfolio star schema in PostgreSQL
package warehouse

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/penny-vault/pvportfolio/data"
)

// Tx is one unit of work against the warehouse. Every write made through a Tx
// becomes visible together on Commit or not at all.
type Tx interface {
	// Insert writes rows, given in the column order of tbl. Rows whose key
	// already exists are silently skipped; tables without a key always
	// append. The number of rows actually added is returned.
	Insert(ctx context.Context, tbl *data.Table, rows [][]any) (int64, error)

	// Keys returns the key of every row currently in tbl in the format of
	// data.Table.RowKey
	Keys(ctx context.Context, tbl *data.Table) (mapset.Set[string], error)

	// KpiCatalog reads the KPI dimension as a name to id mapping
	KpiCatalog(ctx context.Context) (data.KpiCatalog, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store hands out units of work
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}
