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
	"time"

	"github.com/rs/zerolog"
)

type Company struct {
	CompanyID   string  `db:"company_id"`
	CompanyName *string `db:"company_name"`
	LegalName   *string `db:"legal_name"`
	Industry    *string `db:"industry"`
	Subindustry *string `db:"subindustry"`
	HQCity      *string `db:"hq_city"`
	HQCountry   *string `db:"hq_country"`
	Website     *string `db:"website"`
	FoundedYear *int64  `db:"founded_year"`
	Employees   *int64  `db:"employees"`
}

func (company *Company) Values() []any {
	return []any{
		company.CompanyID,
		Nullable(company.CompanyName),
		Nullable(company.LegalName),
		Nullable(company.Industry),
		Nullable(company.Subindustry),
		Nullable(company.HQCity),
		Nullable(company.HQCountry),
		Nullable(company.Website),
		Nullable(company.FoundedYear),
		Nullable(company.Employees),
	}
}

func (company *Company) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CompanyID", company.CompanyID)
	if company.CompanyName != nil {
		e.Str("CompanyName", *company.CompanyName)
	}
}

type Fund struct {
	FundID      string  `db:"fund_id"`
	FundName    *string `db:"fund_name"`
	VintageYear *int64  `db:"vintage_year"`
}

func (fund *Fund) Values() []any {
	return []any{fund.FundID, Nullable(fund.FundName), Nullable(fund.VintageYear)}
}

type Kpi struct {
	KpiID       int64   `db:"kpi_id"`
	KpiName     string  `db:"kpi_name"`
	DisplayName *string `db:"display_name"`
}

func (kpi *Kpi) Values() []any {
	return []any{kpi.KpiName, Nullable(kpi.DisplayName)}
}

// Investment links a portfolio company to the fund that owns it
type Investment struct {
	CompanyID      string     `db:"company_id"`
	FundID         string     `db:"fund_id"`
	InvestmentDate *time.Time `db:"investment_date"`
	OwnershipType  *string    `db:"ownership_type"`
}

func (investment *Investment) Values() []any {
	return []any{investment.CompanyID, investment.FundID, Nullable(investment.InvestmentDate),
		Nullable(investment.OwnershipType)}
}

func (investment *Investment) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CompanyID", investment.CompanyID)
	e.Str("FundID", investment.FundID)
}

// Nullable dereferences v, mapping a nil pointer to an untyped nil so that the
// database receives NULL
func Nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
