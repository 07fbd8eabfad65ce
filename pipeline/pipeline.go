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

// Package pipeline sequences the loaders that turn one extract into committed
// warehouse state
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/loader"
	"github.com/penny-vault/pvportfolio/warehouse"
)

// Stages in the order they run
const (
	ReadExtract           = "ReadExtract"
	GenerateDateDimension = "GenerateDateDimension"
	LoadCompanyDim        = "LoadCompanyDim"
	LoadFundDim           = "LoadFundDim"
	LoadDateDim           = "LoadDateDim"
	LoadKpiDim            = "LoadKpiDim"
	LoadInvestmentDim     = "LoadInvestmentDim"
	LoadFinancialsFact    = "LoadFinancialsFact"
	LoadKpiFact           = "LoadKpiFact"
	LoadBudgetFact        = "LoadBudgetFact"
	LoadCommentFact       = "LoadCommentFact"
	Done                  = "Done"
)

// Config holds the settings of a deployment
type Config struct {
	// StartYear and EndYear bound the date dimension, inclusive
	StartYear int
	EndYear   int
}

// StageError reports the stage a run halted in
type StageError struct {
	Stage string
	Err   error
}

func (stageErr *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", stageErr.Stage, stageErr.Err)
}

func (stageErr *StageError) Unwrap() error {
	return stageErr.Err
}

// ReachedWarehouse reports whether run got past the stages that run before
// any unit of work is opened. A run that stopped earlier left nothing in the
// warehouse and is not recorded.
func ReachedWarehouse(run *data.Run) bool {
	switch run.FailedStage {
	case ReadExtract, GenerateDateDimension:
		return false
	}
	return true
}

type stage struct {
	name string
	load func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error)
}

type Pipeline struct {
	store  warehouse.Store
	config Config
}

func New(store warehouse.Store, config Config) *Pipeline {
	return &Pipeline{
		store:  store,
		config: config,
	}
}

// Run reads the extract and loads it stage by stage. Each database stage is
// its own unit of work and is committed before the next stage starts. The
// first failure rolls back the current stage and halts the run; stages that
// already committed stay committed. The returned run describes the attempt
// whether or not it succeeded.
func (pipeline *Pipeline) Run(ctx context.Context, reader extract.Reader) (*data.Run, error) {
	run := &data.Run{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Status:    data.RunFailed,
	}

	logger := zerolog.Ctx(ctx).With().Str("RunID", run.ID.String()).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Str("Stage", ReadExtract).Msg("starting stage")
	workbook, err := reader.Read()
	if err != nil {
		return pipeline.fail(ctx, run, ReadExtract, err)
	}
	run.Source = workbook.Source
	run.Stages = append(run.Stages, data.NewLoadResult(ReadExtract, nil, numRecords(workbook)))
	logger.Info().Object("Extract", workbook).Msg("read extract")

	logger.Info().Str("Stage", GenerateDateDimension).Msg("starting stage")
	dates, err := data.GenerateDateDimension(pipeline.config.StartYear, pipeline.config.EndYear)
	if err != nil {
		return pipeline.fail(ctx, run, GenerateDateDimension, err)
	}
	generated := data.NewLoadResult(GenerateDateDimension, nil, 0)
	generated.Prepared = len(dates)
	run.Stages = append(run.Stages, generated)

	for _, st := range stages(workbook, dates) {
		result, err := pipeline.runStage(ctx, st)
		if err != nil {
			return pipeline.fail(ctx, run, st.name, err)
		}
		run.Stages = append(run.Stages, result)
	}

	run.Status = data.RunSuccess
	run.FinishedAt = time.Now()
	logger.Info().Str("Stage", Done).Int64("Inserted", run.Inserted()).Dur("Duration", run.Duration()).Msg("run complete")

	return run, nil
}

func stages(workbook *extract.Workbook, dates []*data.Date) []stage {
	return []stage{
		{LoadCompanyDim, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Companies(ctx, tx, workbook.Companies)
		}},
		{LoadFundDim, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Funds(ctx, tx, workbook.Funds)
		}},
		{LoadDateDim, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Dates(ctx, tx, dates)
		}},
		{LoadKpiDim, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Kpis(ctx, tx, workbook.KPIs)
		}},
		{LoadInvestmentDim, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Investments(ctx, tx, workbook.Investments)
		}},
		{LoadFinancialsFact, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Financials(ctx, tx, workbook.Financials)
		}},
		{LoadKpiFact, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.KpiFacts(ctx, tx, workbook.KPIs)
		}},
		{LoadBudgetFact, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Budgets(ctx, tx, workbook.Budgets)
		}},
		{LoadCommentFact, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Comments(ctx, tx, workbook.Comments)
		}},
	}
}

func (pipeline *Pipeline) runStage(ctx context.Context, st stage) (*data.LoadResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("Stage", st.name).Logger()
	ctx = logger.WithContext(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info().Msg("starting stage")

	tx, err := pipeline.store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	result, err := st.load(ctx, tx)
	if err != nil {
		rollback(ctx, tx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		rollback(ctx, tx)
		return nil, err
	}

	result.Stage = st.name
	return result, nil
}

func rollback(ctx context.Context, tx warehouse.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("rollback failed")
	}
}

func (pipeline *Pipeline) fail(ctx context.Context, run *data.Run, stageName string, err error) (*data.Run, error) {
	run.FinishedAt = time.Now()
	run.FailedStage = stageName
	run.Error = err.Error()

	zerolog.Ctx(ctx).Error().Err(err).Str("Stage", stageName).Msg("run halted")
	return run, &StageError{Stage: stageName, Err: err}
}

func numRecords(workbook *extract.Workbook) int {
	return len(workbook.Companies) + len(workbook.Funds) + len(workbook.Investments) +
		len(workbook.Financials) + len(workbook.KPIs) + len(workbook.Budgets) + len(workbook.Comments)
}
