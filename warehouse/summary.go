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
	"strings"

	"github.com/hako/durafmt"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/penny-vault/pvportfolio/data"
)

// RowCount returns the number of rows in tbl
func (myWarehouse *Warehouse) RowCount(ctx context.Context, tbl *data.Table) (int64, error) {
	var count int64
	err := myWarehouse.Pool.QueryRow(ctx, "SELECT count(*) FROM "+tableIdentifier(tbl)).Scan(&count)
	return count, err
}

// Summary returns a description of the warehouse in markdown
func (myWarehouse *Warehouse) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# Portfolio Warehouse\n")
	builder.WriteString("## Details\n\n")
	builder.WriteString(fmt.Sprintf("Database: %s\n\n", myWarehouse.Redacted()))

	// table sizes
	builder.WriteString("## Tables\n\n")
	for _, tbl := range data.Tables {
		count, err := myWarehouse.RowCount(ctx, tbl)
		if err != nil {
			return "", err
		}
		builder.WriteString(p.Sprintf("  * %s: %d\n", tbl.QualifiedName(), count))
	}
	builder.WriteString("\n")

	// integrity
	orphans, err := myWarehouse.Orphans(ctx)
	if err != nil {
		return "", err
	}

	if len(orphans) == 0 {
		builder.WriteString("Every fact row references an existing dimension row.\n\n")
	} else {
		builder.WriteString("## Orphaned facts\n\n")
		for _, orphan := range orphans {
			builder.WriteString(p.Sprintf("  * %s.%s: %d\n", orphan.Table, orphan.Column, orphan.Count))
		}
		builder.WriteString("\n")
	}

	// recent runs
	builder.WriteString("## Recent Runs\n\n")

	runs, err := myWarehouse.Runs(ctx, 5)
	if err != nil {
		return "", err
	}

	if len(runs) == 0 {
		builder.WriteString("Last Updated: Never\n")
		return builder.String(), nil
	}

	for _, run := range runs {
		age := timeago.English.Format(run.FinishedAt)
		line := p.Sprintf("  * %s %s (%s, took %s) [%s]: %d rows inserted", run.Status,
			run.StartedAt.Local().Format("01/02/2006 15:04"), age,
			durafmt.Parse(run.Duration()).LimitFirstN(2).String(), run.ID.String()[:6], run.Inserted())
		builder.WriteString(line)
		if run.FailedStage != "" {
			builder.WriteString(fmt.Sprintf(", failed in %s: %s", run.FailedStage, run.Error))
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}
