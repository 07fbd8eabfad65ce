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
	"github.com/penny-vault/pvportfolio/period"
)

// FinancialsCurrency is the reporting currency of the monthly financials
const FinancialsCurrency = "EUR"

// Financials is one company's income, cash flow and leverage figures for a
// month. Every figure is optional; a missing figure is stored as NULL.
type Financials struct {
	CompanyID       string
	DateID          period.Key
	Revenue         *float64
	COGS            *float64
	GrossProfit     *float64
	EBITDA          *float64
	Depreciation    *float64
	Amortization    *float64
	EBITA           *float64
	EBIT            *float64
	NetIncome       *float64
	CashFromOps     *float64
	Capex           *float64
	EBITDAMarginPct *float64
	WorkingCapital  *float64
	NetDebt         *float64
	Currency        string
}

func (financials *Financials) Values() []any {
	return []any{
		financials.CompanyID,
		int(financials.DateID),
		Nullable(financials.Revenue),
		Nullable(financials.COGS),
		Nullable(financials.GrossProfit),
		Nullable(financials.EBITDA),
		Nullable(financials.Depreciation),
		Nullable(financials.Amortization),
		Nullable(financials.EBITA),
		Nullable(financials.EBIT),
		Nullable(financials.NetIncome),
		Nullable(financials.CashFromOps),
		Nullable(financials.Capex),
		Nullable(financials.EBITDAMarginPct),
		Nullable(financials.WorkingCapital),
		Nullable(financials.NetDebt),
		financials.Currency,
	}
}

type KpiValue struct {
	CompanyID string
	DateID    period.Key
	KpiID     int64
	Value     *float64
}

func (kpiValue *KpiValue) Values() []any {
	return []any{kpiValue.CompanyID, int(kpiValue.DateID), kpiValue.KpiID, Nullable(kpiValue.Value)}
}

// Budget holds a company's budgeted figures for a fiscal year
type Budget struct {
	CompanyID      string
	FiscalYear     int64
	Currency       *string
	Revenue        *float64
	COGS           *float64
	GrossProfit    *float64
	EBITDA         *float64
	Depreciation   *float64
	Amortization   *float64
	EBITA          *float64
	EBIT           *float64
	NetIncome      *float64
	CashFromOps    *float64
	Capex          *float64
	WorkingCapital *float64
	NetDebt        *float64
}

func (budget *Budget) Values() []any {
	return []any{
		budget.CompanyID,
		budget.FiscalYear,
		Nullable(budget.Currency),
		Nullable(budget.Revenue),
		Nullable(budget.COGS),
		Nullable(budget.GrossProfit),
		Nullable(budget.EBITDA),
		Nullable(budget.Depreciation),
		Nullable(budget.Amortization),
		Nullable(budget.EBITA),
		Nullable(budget.EBIT),
		Nullable(budget.NetIncome),
		Nullable(budget.CashFromOps),
		Nullable(budget.Capex),
		Nullable(budget.WorkingCapital),
		Nullable(budget.NetDebt),
	}
}

// Comment is a management or deal team remark about a company. Comments have
// no natural key and are never deduplicated.
type Comment struct {
	CompanyID string
	DateID    period.Key
	Author    *string
	Role      *string
	Text      *string
}

func (comment *Comment) Values() []any {
	return []any{comment.CompanyID, int(comment.DateID), Nullable(comment.Author),
		Nullable(comment.Role), Nullable(comment.Text)}
}

// FinancialsView is a monthly financials row joined with its company and
// month, as read back by reports and exports
type FinancialsView struct {
	CompanyID       string   `db:"company_id" parquet:"name=company_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CompanyName     *string  `db:"company_name" parquet:"name=company_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	DateID          int32    `db:"date_id" parquet:"name=date_id, type=INT32"`
	YearMonth       string   `db:"year_month" parquet:"name=year_month, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Revenue         *float64 `db:"revenue" parquet:"name=revenue, type=DOUBLE, repetitiontype=OPTIONAL"`
	COGS            *float64 `db:"cogs" parquet:"name=cogs, type=DOUBLE, repetitiontype=OPTIONAL"`
	GrossProfit     *float64 `db:"gross_profit" parquet:"name=gross_profit, type=DOUBLE, repetitiontype=OPTIONAL"`
	EBITDA          *float64 `db:"ebitda" parquet:"name=ebitda, type=DOUBLE, repetitiontype=OPTIONAL"`
	EBIT            *float64 `db:"ebit" parquet:"name=ebit, type=DOUBLE, repetitiontype=OPTIONAL"`
	NetIncome       *float64 `db:"net_income" parquet:"name=net_income, type=DOUBLE, repetitiontype=OPTIONAL"`
	CashFromOps     *float64 `db:"cash_from_ops" parquet:"name=cash_from_ops, type=DOUBLE, repetitiontype=OPTIONAL"`
	Capex           *float64 `db:"capex" parquet:"name=capex, type=DOUBLE, repetitiontype=OPTIONAL"`
	EBITDAMarginPct *float64 `db:"ebitda_margin_pct" parquet:"name=ebitda_margin_pct, type=DOUBLE, repetitiontype=OPTIONAL"`
	NetDebt         *float64 `db:"net_debt" parquet:"name=net_debt, type=DOUBLE, repetitiontype=OPTIONAL"`
	Currency        string   `db:"currency" parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// KpiView is a KPI observation joined with its name and month
type KpiView struct {
	CompanyID string   `db:"company_id" parquet:"name=company_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DateID    int32    `db:"date_id" parquet:"name=date_id, type=INT32"`
	YearMonth string   `db:"year_month" parquet:"name=year_month, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	KpiName   string   `db:"kpi_name" parquet:"name=kpi_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value     *float64 `db:"kpi_value" parquet:"name=kpi_value, type=DOUBLE, repetitiontype=OPTIONAL"`
}
