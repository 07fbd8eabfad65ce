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
package warehouse

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvportfolio/data"
)

// maxParams is the largest number of bind parameters PostgreSQL accepts in a
// single statement
const maxParams = 65535

type Warehouse struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// URL assembles a connection string from its parts
func URL(host string, port int, user, password, dbName string) string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + dbName,
	}
	return dsn.String()
}

// New connects to the warehouse and verifies the connection
func New(ctx context.Context, dbURL string) (*Warehouse, error) {
	myWarehouse := &Warehouse{
		DBUrl: dbURL,
	}

	if err := myWarehouse.Connect(ctx); err != nil {
		return nil, err
	}

	if err := myWarehouse.Pool.Ping(ctx); err != nil {
		myWarehouse.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return myWarehouse, nil
}

// Connect to the database configured for the warehouse
func (myWarehouse *Warehouse) Connect(ctx context.Context) error {
	if myWarehouse.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myWarehouse.DBUrl)
	if err != nil {
		return err
	}
	myWarehouse.Pool = pool

	return nil
}

// Close the database pool
func (myWarehouse *Warehouse) Close() {
	if myWarehouse.Pool != nil {
		myWarehouse.Pool.Close()
		myWarehouse.Pool = nil
	}
}

// Redacted returns the connection string with the password masked
func (myWarehouse *Warehouse) Redacted() string {
	dsn, err := url.Parse(myWarehouse.DBUrl)
	if err != nil {
		return "<invalid database url>"
	}
	return dsn.Redacted()
}

// Begin starts a new unit of work, connecting first if needed
func (myWarehouse *Warehouse) Begin(ctx context.Context) (Tx, error) {
	if err := myWarehouse.Connect(ctx); err != nil {
		return nil, err
	}

	tx, err := myWarehouse.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func tableIdentifier(tbl *data.Table) string {
	return pgx.Identifier{data.Schema, tbl.Name}.Sanitize()
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for idx, col := range cols {
		quoted[idx] = pgx.Identifier{col}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func (wtx *pgTx) Insert(ctx context.Context, tbl *data.Table, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(tbl.Key) == 0 {
		return wtx.copyRows(ctx, tbl, rows)
	}

	chunkSize := maxParams / len(tbl.Columns)

	var inserted int64
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		sql, args := insertOrIgnore(tbl, rows[start:end])
		tag, err := wtx.tx.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert into %s: %w", tbl.QualifiedName(), err)
		}

		inserted += tag.RowsAffected()
	}

	zerolog.Ctx(ctx).Debug().Str("Table", tbl.QualifiedName()).Int("NumRows", len(rows)).Int64("Inserted", inserted).Msg("insert or ignore")
	return inserted, nil
}

// insertOrIgnore builds a multi-row insert that skips rows colliding with an
// existing key
func insertOrIgnore(tbl *data.Table, rows [][]any) (string, []any) {
	numCols := len(tbl.Columns)
	args := make([]any, 0, len(rows)*numCols)

	builder := strings.Builder{}
	builder.WriteString("INSERT INTO ")
	builder.WriteString(tableIdentifier(tbl))
	builder.WriteString(" (")
	builder.WriteString(columnList(tbl.Columns))
	builder.WriteString(") VALUES ")

	for rowIdx, row := range rows {
		if rowIdx > 0 {
			builder.WriteString(", ")
		}
		builder.WriteByte('(')
		for colIdx := 0; colIdx < numCols; colIdx++ {
			if colIdx > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString("$")
			builder.WriteString(strconv.Itoa(len(args) + 1))
			args = append(args, row[colIdx])
		}
		builder.WriteByte(')')
	}

	builder.WriteString(" ON CONFLICT (")
	builder.WriteString(columnList(tbl.Key))
	builder.WriteString(") DO NOTHING")

	return builder.String(), args
}

func (wtx *pgTx) copyRows(ctx context.Context, tbl *data.Table, rows [][]any) (int64, error) {
	count, err := wtx.tx.CopyFrom(ctx, pgx.Identifier{data.Schema, tbl.Name}, tbl.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", tbl.QualifiedName(), err)
	}

	zerolog.Ctx(ctx).Debug().Str("Table", tbl.QualifiedName()).Int64("Inserted", count).Msg("copy rows")
	return count, nil
}

func (wtx *pgTx) Keys(ctx context.Context, tbl *data.Table) (mapset.Set[string], error) {
	if len(tbl.Key) == 0 {
		return mapset.NewThreadUnsafeSet[string](), nil
	}

	cols := make([]string, len(tbl.Key))
	for idx, col := range tbl.Key {
		cols[idx] = pgx.Identifier{col}.Sanitize() + "::text"
	}

	sql := fmt.Sprintf("SELECT concat_ws(E'\\x1f', %s) FROM %s", strings.Join(cols, ", "), tableIdentifier(tbl))

	var keys []string
	if err := pgxscan.Select(ctx, wtx.tx, &keys, sql); err != nil {
		return nil, fmt.Errorf("read keys of %s: %w", tbl.QualifiedName(), err)
	}

	return mapset.NewThreadUnsafeSet(keys...), nil
}

func (wtx *pgTx) KpiCatalog(ctx context.Context) (data.KpiCatalog, error) {
	var kpis []*data.Kpi
	if err := pgxscan.Select(ctx, wtx.tx, &kpis, `SELECT kpi_id, kpi_name, display_name FROM raw_data.dim_kpi`); err != nil {
		return data.KpiCatalog{}, fmt.Errorf("read kpi catalog: %w", err)
	}

	return data.NewKpiCatalog(kpis), nil
}

func (wtx *pgTx) Commit(ctx context.Context) error {
	return wtx.tx.Commit(ctx)
}

func (wtx *pgTx) Rollback(ctx context.Context) error {
	return wtx.tx.Rollback(ctx)
}
