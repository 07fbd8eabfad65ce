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

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/warehouse"
)

// Companies loads the company dimension. Companies already in the warehouse
// keep their original attributes.
func Companies(ctx context.Context, tx warehouse.Tx, records []*extract.Company) (*data.LoadResult, error) {
	b := newBatch(data.CompanyTable, len(records))

	for _, rec := range records {
		if rec.CompanyID == "" {
			b.skip(ctx, data.SkipMissingKey, rec.Line, "")
			continue
		}

		company := &data.Company{
			CompanyID:   rec.CompanyID,
			CompanyName: rec.CompanyName.Ptr(),
			LegalName:   rec.LegalName.Ptr(),
			Industry:    rec.Industry.Ptr(),
			Subindustry: rec.Subindustry.Ptr(),
			HQCity:      rec.HQCity.Ptr(),
			HQCountry:   rec.HQCountry.Ptr(),
			Website:     rec.Website.Ptr(),
			FoundedYear: rec.FoundedYear.Ptr(),
			Employees:   rec.Employees.Ptr(),
		}
		b.add(company.Values())
	}

	return b.flush(ctx, tx)
}

// Funds loads the fund dimension
func Funds(ctx context.Context, tx warehouse.Tx, records []*extract.Fund) (*data.LoadResult, error) {
	b := newBatch(data.FundTable, len(records))

	for _, rec := range records {
		if rec.FundID == "" {
			b.skip(ctx, data.SkipMissingKey, rec.Line, "")
			continue
		}

		fund := &data.Fund{
			FundID:      rec.FundID,
			FundName:    rec.FundName.Ptr(),
			VintageYear: rec.VintageYear.Ptr(),
		}
		b.add(fund.Values())
	}

	return b.flush(ctx, tx)
}

// Dates loads the generated date dimension
func Dates(ctx context.Context, tx warehouse.Tx, dates []*data.Date) (*data.LoadResult, error) {
	b := newBatch(data.DateTable, len(dates))
	for _, date := range dates {
		b.add(date.Values())
	}
	return b.flush(ctx, tx)
}

// Kpis registers every distinct KPI name of the extract in the KPI catalog,
// in order of first appearance. The warehouse assigns the ids.
func Kpis(ctx context.Context, tx warehouse.Tx, records []*extract.KPI) (*data.LoadResult, error) {
	b := newBatch(data.KpiTable, len(records))

	for _, rec := range records {
		if rec.KPIName == "" {
			b.skip(ctx, data.SkipMissingKey, rec.Line, rec.CompanyID)
			continue
		}

		kpi := &data.Kpi{KpiName: rec.KPIName}
		b.add(kpi.Values())
	}

	return b.flush(ctx, tx)
}

// Investments loads the company to fund bridge. Both sides must already be in
// the warehouse; a missing or malformed investment date is stored as NULL.
func Investments(ctx context.Context, tx warehouse.Tx, records []*extract.Investment) (*data.LoadResult, error) {
	b := newBatch(data.InvestmentTable, len(records))

	sets, err := keySets(ctx, tx, data.CompanyTable, data.FundTable)
	if err != nil {
		return b.result, err
	}
	companies, funds := sets[0], sets[1]

	for _, rec := range records {
		if reason := resolveInvestment(rec, companies, funds); reason != "" {
			b.skip(ctx, reason, rec.Line, rec.CompanyID)
			continue
		}

		investment := &data.Investment{
			CompanyID:     rec.CompanyID,
			FundID:        rec.FundID,
			OwnershipType: rec.OwnershipType.Ptr(),
		}

		if rec.InvestmentDate != "" {
			invested, err := parseDate(rec.InvestmentDate)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Object("Investment", investment).Int("Line", rec.Line).Msg("investment date not understood, storing NULL")
			} else {
				investment.InvestmentDate = &invested
			}
		}

		b.add(investment.Values())
	}

	return b.flush(ctx, tx)
}

func resolveInvestment(rec *extract.Investment, companies, funds mapset.Set[string]) string {
	switch {
	case rec.CompanyID == "" || rec.FundID == "":
		return data.SkipMissingKey
	case !companies.Contains(rec.CompanyID):
		return data.SkipCompany
	case !funds.Contains(rec.FundID):
		return data.SkipFund
	default:
		return ""
	}
}
