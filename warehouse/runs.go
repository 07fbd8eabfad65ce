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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/goccy/go-json"

	"github.com/penny-vault/pvportfolio/data"
)

// SaveRun records a finished pipeline run in the run ledger
func (myWarehouse *Warehouse) SaveRun(ctx context.Context, run *data.Run) error {
	if err := myWarehouse.Connect(ctx); err != nil {
		return err
	}

	stages, err := json.Marshal(run.Stages)
	if err != nil {
		return err
	}

	_, err = myWarehouse.Pool.Exec(ctx, `INSERT INTO raw_data.etl_runs
("run_id", "source", "started_at", "finished_at", "status", "failed_stage", "error", "stage_results")
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`,
		run.ID.String(), run.Source, run.StartedAt, run.FinishedAt, string(run.Status),
		run.FailedStage, run.Error, stages)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	return nil
}

// Runs returns the most recent runs, newest first
func (myWarehouse *Warehouse) Runs(ctx context.Context, limit int) ([]*data.Run, error) {
	var runs []*data.Run
	err := pgxscan.Select(ctx, myWarehouse.Pool, &runs, `SELECT run_id, source, started_at, finished_at, status,
coalesce(failed_stage, '') AS failed_stage, coalesce(error, '') AS error, stage_results
FROM raw_data.etl_runs ORDER BY started_at DESC LIMIT $1`, limit)
	return runs, err
}
