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
package loader

import (
	"context"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/period"
	"github.com/penny-vault/pvportfolio/warehouse"
)

// Financials loads the monthly financials fact. Figures absent from the
// extract are stored as NULL.
func Financials(ctx context.Context, tx warehouse.Tx, records []*extract.Financial) (*data.LoadResult, error) {
	b := newBatch(data.FinancialsTable, len(records))

	sets, err := keySets(ctx, tx, data.CompanyTable, data.DateTable)
	if err != nil {
		return b.result, err
	}
	companies, dates := sets[0], sets[1]

	for _, rec := range records {
		if rec.CompanyID == "" {
			b.skip(ctx, data.SkipMissingKey, rec.Line, "")
			continue
		}

		dateID, reason := resolvePeriod(rec.YearMonth, dates)
		if reason == "" && !companies.Contains(rec.CompanyID) {
			reason = data.SkipCompany
		}
		if reason != "" {
			b.skip(ctx, reason, rec.Line, rec.CompanyID)
			continue
		}

		financials := &data.Financials{
			CompanyID:       rec.CompanyID,
			DateID:          dateID,
			Revenue:         rec.Revenue.Ptr(),
			COGS:            rec.COGS.Ptr(),
			GrossProfit:     rec.GrossProfit.Ptr(),
			EBITDA:          rec.EBITDA.Ptr(),
			Depreciation:    rec.Depreciation.Ptr(),
			Amortization:    rec.Amortization.Ptr(),
			EBITA:           rec.EBITA.Ptr(),
			EBIT:            rec.EBIT.Ptr(),
			NetIncome:       rec.NetIncome.Ptr(),
			CashFromOps:     rec.CashFromOps.Ptr(),
			Capex:           rec.Capex.Ptr(),
			EBITDAMarginPct: rec.EBITDAMarginPct.Ptr(),
			WorkingCapital:  rec.WorkingCapital.Ptr(),
			NetDebt:         rec.NetDebt.Ptr(),
			Currency:        data.FinancialsCurrency,
		}
		b.add(financials.Values())
	}

	return b.flush(ctx, tx)
}

// KpiFacts loads the monthly KPI fact. The KPI catalog is read once, up front,
// and rows naming a KPI it does not know are skipped.
func KpiFacts(ctx context.Context, tx warehouse.Tx, records []*extract.KPI) (*data.LoadResult, error) {
	b := newBatch(data.KpiFactTable, len(records))

	catalog, err := tx.KpiCatalog(ctx)
	if err != nil {
		return b.result, err
	}

	sets, err := keySets(ctx, tx, data.CompanyTable, data.DateTable)
	if err != nil {
		return b.result, err
	}
	companies, dates := sets[0], sets[1]

	for _, rec := range records {
		if rec.CompanyID == "" {
			b.skip(ctx, data.SkipMissingKey, rec.Line, "")
			continue
		}

		dateID, reason := resolvePeriod(rec.YearMonth, dates)
		if reason == "" && !companies.Contains(rec.CompanyID) {
			reason = data.SkipCompany
		}

		kpiID, known := catalog.ID(rec.KPIName)
		if reason == "" && !known {
			reason = data.SkipKpi
		}

		if reason != "" {
			b.skip(ctx, reason, rec.Line, rec.CompanyID)
			continue
		}

		kpiValue := &data.KpiValue{
			CompanyID: rec.CompanyID,
			DateID:    dateID,
			KpiID:     kpiID,
			Value:     rec.KPIValue.Ptr(),
		}
		b.add(kpiValue.Values())
	}

	return b.flush(ctx, tx)
}

// Budgets loads the annual budget fact
func Budgets(ctx context.Context, tx warehouse.Tx, records []*extract.Budget) (*data.LoadResult, error) {
	b := newBatch(data.BudgetTable, len(records))

	companies, err := tx.Keys(ctx, data.CompanyTable)
	if err != nil {
		return b.result, err
	}

	for _, rec := range records {
		var reason string
		switch {
		case rec.CompanyID == "":
			reason = data.SkipMissingKey
		case rec.FiscalYear.Ptr() == nil:
			reason = data.SkipFiscalYear
		case !companies.Contains(rec.CompanyID):
			reason = data.SkipCompany
		}
		if reason != "" {
			b.skip(ctx, reason, rec.Line, rec.CompanyID)
			continue
		}

		budget := &data.Budget{
			CompanyID:      rec.CompanyID,
			FiscalYear:     *rec.FiscalYear.Ptr(),
			Currency:       rec.Currency.Ptr(),
			Revenue:        rec.Revenue.Ptr(),
			COGS:           rec.COGS.Ptr(),
			GrossProfit:    rec.GrossProfit.Ptr(),
			EBITDA:         rec.EBITDA.Ptr(),
			Depreciation:   rec.Depreciation.Ptr(),
			Amortization:   rec.Amortization.Ptr(),
			EBITA:          rec.EBITA.Ptr(),
			EBIT:           rec.EBIT.Ptr(),
			NetIncome:      rec.NetIncome.Ptr(),
			CashFromOps:    rec.CashFromOps.Ptr(),
			Capex:          rec.Capex.Ptr(),
			WorkingCapital: rec.WorkingCapital.Ptr(),
			NetDebt:        rec.NetDebt.Ptr(),
		}
		b.add(budget.Values())
	}

	return b.flush(ctx, tx)
}

// Comments loads the comment fact. Each comment is filed under the month of
// its comment date. Comments have no key, so loading the same extract twice
// stores every comment twice.
func Comments(ctx context.Context, tx warehouse.Tx, records []*extract.Comment) (*data.LoadResult, error) {
	b := newBatch(data.CommentTable, len(records))

	sets, err := keySets(ctx, tx, data.CompanyTable, data.DateTable)
	if err != nil {
		return b.result, err
	}
	companies, dates := sets[0], sets[1]

	for _, rec := range records {
		if rec.CompanyID == "" {
			b.skip(ctx, data.SkipMissingKey, rec.Line, "")
			continue
		}

		commented, err := parseDate(rec.CommentDate)
		if err != nil {
			b.skip(ctx, data.SkipCommentDate, rec.Line, rec.CompanyID)
			continue
		}

		dateID := period.FromTime(commented)
		var reason string
		switch {
		case !dates.Contains(dateID.String()):
			reason = data.SkipDate
		case !companies.Contains(rec.CompanyID):
			reason = data.SkipCompany
		}
		if reason != "" {
			b.skip(ctx, reason, rec.Line, rec.CompanyID)
			continue
		}

		comment := &data.Comment{
			CompanyID: rec.CompanyID,
			DateID:    dateID,
			Author:    rec.Author.Ptr(),
			Role:      rec.Role.Ptr(),
			Text:      rec.Comment.Ptr(),
		}
		b.add(comment.Values())
	}

	return b.flush(ctx, tx)
}
