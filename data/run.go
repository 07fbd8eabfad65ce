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
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Skip reasons recorded by the loaders
const (
	SkipMissingKey  = "missing_key"
	SkipPeriod      = "period"
	SkipDate        = "date"
	SkipCompany     = "company"
	SkipFund        = "fund"
	SkipKpi         = "kpi"
	SkipFiscalYear  = "fiscal_year"
	SkipCommentDate = "comment_date"
)

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// LoadResult counts what happened to the rows offered to one loader
type LoadResult struct {
	Stage string `json:"stage"`
	Table string `json:"table,omitempty"`

	// Read is the number of source rows the stage received
	Read int `json:"read"`

	// Prepared is the number of rows sent to the warehouse
	Prepared int `json:"prepared"`

	// Inserted is the number of rows the warehouse actually added; rows whose
	// key already existed are not counted
	Inserted int64 `json:"inserted"`

	// Duplicates collapsed onto an earlier row with the same key
	Duplicates int `json:"duplicates"`

	Skipped map[string]int `json:"skipped,omitempty"`
}

func NewLoadResult(stage string, tbl *Table, read int) *LoadResult {
	result := &LoadResult{
		Stage:   stage,
		Read:    read,
		Skipped: make(map[string]int),
	}
	if tbl != nil {
		result.Table = tbl.QualifiedName()
	}
	return result
}

func (result *LoadResult) Skip(reason string) {
	result.Skipped[reason]++
}

func (result *LoadResult) NumSkipped() int {
	total := 0
	for _, cnt := range result.Skipped {
		total += cnt
	}
	return total
}

func (result *LoadResult) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Stage", result.Stage)
	e.Int("Read", result.Read)
	e.Int("Prepared", result.Prepared)
	e.Int64("Inserted", result.Inserted)
	e.Int("Duplicates", result.Duplicates)

	reasons := make([]string, 0, len(result.Skipped))
	for reason := range result.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	skipped := zerolog.Dict()
	for _, reason := range reasons {
		skipped.Int(reason, result.Skipped[reason])
	}
	e.Dict("Skipped", skipped)
}

// Run describes one execution of the load pipeline
type Run struct {
	ID          uuid.UUID     `json:"id" db:"run_id"`
	Source      string        `json:"source" db:"source"`
	StartedAt   time.Time     `json:"started_at" db:"started_at"`
	FinishedAt  time.Time     `json:"finished_at" db:"finished_at"`
	Status      RunStatus     `json:"status" db:"status"`
	FailedStage string        `json:"failed_stage,omitempty" db:"failed_stage"`
	Error       string        `json:"error,omitempty" db:"error"`
	Stages      []*LoadResult `json:"stages" db:"stage_results"`
}

func (run *Run) Duration() time.Duration {
	return run.FinishedAt.Sub(run.StartedAt)
}

// Inserted totals the rows added across all stages
func (run *Run) Inserted() int64 {
	var total int64
	for _, stage := range run.Stages {
		total += stage.Inserted
	}
	return total
}
