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
	"fmt"
	"strings"
)

const Schema = "raw_data"

// Table describes a warehouse table the loaders write to
type Table struct {
	Name    string
	Columns []string

	// Key lists the business key columns. Inserts into a keyed table skip rows
	// whose key already exists; tables without a key are append only.
	Key []string

	// Generated is the surrogate key column assigned by the database, if any.
	// It is never part of Columns.
	Generated string
}

var (
	CompanyTable = &Table{
		Name: "dim_company",
		Columns: []string{"company_id", "company_name", "legal_name", "industry", "subindustry",
			"hq_city", "hq_country", "website", "founded_year", "employees"},
		Key: []string{"company_id"},
	}

	FundTable = &Table{
		Name:    "dim_fund",
		Columns: []string{"fund_id", "fund_name", "vintage_year"},
		Key:     []string{"fund_id"},
	}

	DateTable = &Table{
		Name: "dim_date",
		Columns: []string{"date_id", "date", "year", "month", "quarter", "year_month", "month_name",
			"day_of_week", "is_month_end", "is_quarter_end", "is_year_end"},
		Key: []string{"date_id"},
	}

	KpiTable = &Table{
		Name:      "dim_kpi",
		Columns:   []string{"kpi_name", "display_name"},
		Key:       []string{"kpi_name"},
		Generated: "kpi_id",
	}

	InvestmentTable = &Table{
		Name:    "dim_investment",
		Columns: []string{"company_id", "fund_id", "investment_date", "ownership_type"},
		Key:     []string{"company_id", "fund_id"},
	}

	FinancialsTable = &Table{
		Name: "fact_financials_monthly",
		Columns: []string{"company_id", "date_id", "revenue", "cogs", "gross_profit", "ebitda",
			"depreciation", "amortization", "ebita", "ebit", "net_income", "cash_from_ops", "capex",
			"ebitda_margin_pct", "working_capital", "net_debt", "currency"},
		Key: []string{"company_id", "date_id"},
	}

	KpiFactTable = &Table{
		Name:    "fact_kpis_monthly",
		Columns: []string{"company_id", "date_id", "kpi_id", "kpi_value"},
		Key:     []string{"company_id", "date_id", "kpi_id"},
	}

	BudgetTable = &Table{
		Name: "fact_budget",
		Columns: []string{"company_id", "fiscal_year", "currency", "revenue_budget", "cogs_budget",
			"gross_profit_budget", "ebitda_budget", "depreciation_budget", "amortization_budget",
			"ebita_budget", "ebit_budget", "net_income_budget", "cash_from_ops_budget",
			"capex_budget", "working_capital_budget", "net_debt_budget"},
		Key: []string{"company_id", "fiscal_year"},
	}

	CommentTable = &Table{
		Name:      "fact_comments",
		Columns:   []string{"company_id", "date_id", "author", "role", "comment_text"},
		Generated: "comment_id",
	}

	// Tables in load order
	Tables = []*Table{CompanyTable, FundTable, DateTable, KpiTable, InvestmentTable,
		FinancialsTable, KpiFactTable, BudgetTable, CommentTable}
)

// QualifiedName returns the schema qualified table name
func (tbl *Table) QualifiedName() string {
	return fmt.Sprintf("%s.%s", Schema, tbl.Name)
}

// KeyIndexes returns the positions of the key columns within Columns
func (tbl *Table) KeyIndexes() []int {
	idx := make([]int, 0, len(tbl.Key))
	for _, keyCol := range tbl.Key {
		for ii, col := range tbl.Columns {
			if col == keyCol {
				idx = append(idx, ii)
				break
			}
		}
	}
	return idx
}

// RowKey joins the key columns of row into a single comparable string. Tables
// without a key return the empty string.
func (tbl *Table) RowKey(row []any) string {
	idx := tbl.KeyIndexes()
	if len(idx) == 0 {
		return ""
	}

	parts := make([]string, len(idx))
	for ii, col := range idx {
		parts[ii] = fmt.Sprint(row[col])
	}
	return strings.Join(parts, "\x1f")
}
