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

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/penny-vault/pvportfolio/data"
)

// Orphan counts fact rows whose foreign key has no dimension row
type Orphan struct {
	Table  string `db:"table_name"`
	Column string `db:"column_name"`
	Count  int64  `db:"num_rows"`
}

const financialsViewSQL = `SELECT f.company_id, c.company_name, f.date_id, d.year_month, f.revenue, f.cogs,
f.gross_profit, f.ebitda, f.ebit, f.net_income, f.cash_from_ops, f.capex, f.ebitda_margin_pct, f.net_debt, f.currency
FROM raw_data.fact_financials_monthly f
JOIN raw_data.dim_company c ON c.company_id = f.company_id
JOIN raw_data.dim_date d ON d.date_id = f.date_id`

// Funds lists every fund ordered by name
func (myWarehouse *Warehouse) Funds(ctx context.Context) ([]*data.Fund, error) {
	var funds []*data.Fund
	err := pgxscan.Select(ctx, myWarehouse.Pool, &funds,
		`SELECT fund_id, fund_name, vintage_year FROM raw_data.dim_fund ORDER BY fund_name, fund_id`)
	return funds, err
}

// Companies lists the companies held by fundID, or every company when fundID
// is empty
func (myWarehouse *Warehouse) Companies(ctx context.Context, fundID string) ([]*data.Company, error) {
	var companies []*data.Company
	err := pgxscan.Select(ctx, myWarehouse.Pool, &companies,
		`SELECT DISTINCT c.company_id, c.company_name, c.legal_name, c.industry, c.subindustry, c.hq_city,
c.hq_country, c.website, c.founded_year, c.employees
FROM raw_data.dim_company c
LEFT JOIN raw_data.dim_investment i ON i.company_id = c.company_id
WHERE $1 = '' OR i.fund_id = $1
ORDER BY c.company_name, c.company_id`, fundID)
	return companies, err
}

// CompanyFinancials returns the monthly financials of one company by month
func (myWarehouse *Warehouse) CompanyFinancials(ctx context.Context, companyID string) ([]*data.FinancialsView, error) {
	var rows []*data.FinancialsView
	err := pgxscan.Select(ctx, myWarehouse.Pool, &rows,
		financialsViewSQL+` WHERE f.company_id = $1 ORDER BY f.date_id`, companyID)
	return rows, err
}

// FinancialsSnapshot returns every monthly financials row
func (myWarehouse *Warehouse) FinancialsSnapshot(ctx context.Context) ([]*data.FinancialsView, error) {
	var rows []*data.FinancialsView
	err := pgxscan.Select(ctx, myWarehouse.Pool, &rows, financialsViewSQL+` ORDER BY f.company_id, f.date_id`)
	return rows, err
}

// KpiSnapshot returns every KPI observation with its KPI name
func (myWarehouse *Warehouse) KpiSnapshot(ctx context.Context) ([]*data.KpiView, error) {
	var rows []*data.KpiView
	err := pgxscan.Select(ctx, myWarehouse.Pool, &rows, `SELECT f.company_id, f.date_id, d.year_month, k.kpi_name, f.kpi_value
FROM raw_data.fact_kpis_monthly f
JOIN raw_data.dim_kpi k ON k.kpi_id = f.kpi_id
JOIN raw_data.dim_date d ON d.date_id = f.date_id
ORDER BY f.company_id, f.date_id, k.kpi_name`)
	return rows, err
}

// Orphans reports every fact foreign key with rows that do not resolve. An
// empty result means the warehouse is referentially complete.
func (myWarehouse *Warehouse) Orphans(ctx context.Context) ([]*Orphan, error) {
	var orphans []*Orphan
	err := pgxscan.Select(ctx, myWarehouse.Pool, &orphans, `SELECT * FROM (
SELECT 'fact_financials_monthly' AS table_name, 'company_id' AS column_name, count(*) AS num_rows
  FROM raw_data.fact_financials_monthly f LEFT JOIN raw_data.dim_company c USING (company_id) WHERE c.company_id IS NULL
UNION ALL
SELECT 'fact_financials_monthly', 'date_id', count(*)
  FROM raw_data.fact_financials_monthly f LEFT JOIN raw_data.dim_date d USING (date_id) WHERE d.date_id IS NULL
UNION ALL
SELECT 'fact_kpis_monthly', 'company_id', count(*)
  FROM raw_data.fact_kpis_monthly f LEFT JOIN raw_data.dim_company c USING (company_id) WHERE c.company_id IS NULL
UNION ALL
SELECT 'fact_kpis_monthly', 'date_id', count(*)
  FROM raw_data.fact_kpis_monthly f LEFT JOIN raw_data.dim_date d USING (date_id) WHERE d.date_id IS NULL
UNION ALL
SELECT 'fact_kpis_monthly', 'kpi_id', count(*)
  FROM raw_data.fact_kpis_monthly f LEFT JOIN raw_data.dim_kpi k USING (kpi_id) WHERE k.kpi_id IS NULL
UNION ALL
SELECT 'fact_budget', 'company_id', count(*)
  FROM raw_data.fact_budget f LEFT JOIN raw_data.dim_company c USING (company_id) WHERE c.company_id IS NULL
UNION ALL
SELECT 'fact_comments', 'company_id', count(*)
  FROM raw_data.fact_comments f LEFT JOIN raw_data.dim_company c USING (company_id) WHERE c.company_id IS NULL
UNION ALL
SELECT 'fact_comments', 'date_id', count(*)
  FROM raw_data.fact_comments f LEFT JOIN raw_data.dim_date d USING (date_id) WHERE d.date_id IS NULL
UNION ALL
SELECT 'dim_investment', 'company_id', count(*)
  FROM raw_data.dim_investment f LEFT JOIN raw_data.dim_company c USING (company_id) WHERE c.company_id IS NULL
UNION ALL
SELECT 'dim_investment', 'fund_id', count(*)
  FROM raw_data.dim_investment f LEFT JOIN raw_data.dim_fund d USING (fund_id) WHERE d.fund_id IS NULL
) checks WHERE num_rows > 0 ORDER BY table_name, column_name`)
	return orphans, err
}
