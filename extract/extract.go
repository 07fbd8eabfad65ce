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

// Package extract decodes the portfolio monitoring extract, either an Excel
// workbook or a directory holding one CSV file per sheet, into typed records.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	SheetCompanies   = "Companies"
	SheetFunds       = "Funds"
	SheetInvestments = "Investments"
	SheetFinancials  = "Financials_Monthly"
	SheetKPIs        = "KPIs_Monthly"
	SheetBudget      = "Annual_Budget"
	SheetComments    = "Comments"
)

var (
	ErrMissingSheet  = errors.New("required sheet missing from extract")
	ErrMissingColumn = errors.New("required column missing from sheet")
	ErrBadValue      = errors.New("cell value cannot be converted")
	ErrUnsupported   = errors.New("unsupported extract format")
)

// sheetSpec describes how a sheet is validated and normalized
type sheetSpec struct {
	name     string
	required []string

	// dateColumns maps a column to the layout its Excel date serials are
	// rendered in
	dateColumns map[string]string
}

var sheetSpecs = []sheetSpec{
	{name: SheetCompanies, required: []string{"CompanyID"}},
	{name: SheetFunds, required: []string{"FundID"}},
	{
		name:        SheetInvestments,
		required:    []string{"CompanyID", "FundID"},
		dateColumns: map[string]string{"InvestmentDate": "2006-01-02"},
	},
	{
		name:        SheetFinancials,
		required:    []string{"CompanyID", "YearMonth"},
		dateColumns: map[string]string{"YearMonth": "2006-01"},
	},
	{
		name:        SheetKPIs,
		required:    []string{"CompanyID", "YearMonth", "KPI_Name"},
		dateColumns: map[string]string{"YearMonth": "2006-01"},
	},
	{name: SheetBudget, required: []string{"CompanyID", "FiscalYear"}},
	{
		name:        SheetComments,
		required:    []string{"CompanyID", "CommentDate"},
		dateColumns: map[string]string{"CommentDate": "2006-01-02 15:04:05"},
	},
}

type Company struct {
	Line        int    `csv:"-"`
	CompanyID   string `csv:"CompanyID"`
	CompanyName Text   `csv:"CompanyName"`
	LegalName   Text   `csv:"LegalName"`
	Industry    Text   `csv:"Industry"`
	Subindustry Text   `csv:"Subindustry"`
	HQCity      Text   `csv:"HQ_City"`
	HQCountry   Text   `csv:"HQ_Country"`
	Website     Text   `csv:"Website"`
	FoundedYear Int    `csv:"FoundedYear"`
	Employees   Int    `csv:"Employees"`
}

type Fund struct {
	Line        int    `csv:"-"`
	FundID      string `csv:"FundID"`
	FundName    Text   `csv:"FundName"`
	VintageYear Int    `csv:"VintageYear"`
}

type Investment struct {
	Line           int    `csv:"-"`
	CompanyID      string `csv:"CompanyID"`
	FundID         string `csv:"FundID"`
	InvestmentDate string `csv:"InvestmentDate"`
	OwnershipType  Text   `csv:"OwnershipType"`
}

type Financial struct {
	Line            int    `csv:"-"`
	CompanyID       string `csv:"CompanyID"`
	YearMonth       string `csv:"YearMonth"`
	Revenue         Float  `csv:"Revenue"`
	COGS            Float  `csv:"COGS"`
	GrossProfit     Float  `csv:"GrossProfit"`
	EBITDA          Float  `csv:"EBITDA"`
	Depreciation    Float  `csv:"Depreciation"`
	Amortization    Float  `csv:"Amortization"`
	EBITA           Float  `csv:"EBITA"`
	EBIT            Float  `csv:"EBIT"`
	NetIncome       Float  `csv:"NetIncome"`
	CashFromOps     Float  `csv:"CashFromOps"`
	Capex           Float  `csv:"Capex"`
	EBITDAMarginPct Float  `csv:"EBITDA_Margin_%"`
	WorkingCapital  Float  `csv:"WorkingCapital"`
	NetDebt         Float  `csv:"NetDebt"`
}

type KPI struct {
	Line      int    `csv:"-"`
	CompanyID string `csv:"CompanyID"`
	YearMonth string `csv:"YearMonth"`
	KPIName   string `csv:"KPI_Name"`
	KPIValue  Float  `csv:"KPI_Value"`
}

type Budget struct {
	Line           int    `csv:"-"`
	CompanyID      string `csv:"CompanyID"`
	FiscalYear     Int    `csv:"FiscalYear"`
	Currency       Text   `csv:"Currency"`
	Revenue        Float  `csv:"Revenue_Budget"`
	COGS           Float  `csv:"COGS_Budget"`
	GrossProfit    Float  `csv:"GrossProfit_Budget"`
	EBITDA         Float  `csv:"EBITDA_Budget"`
	Depreciation   Float  `csv:"Depreciation_Budget"`
	Amortization   Float  `csv:"Amortization_Budget"`
	EBITA          Float  `csv:"EBITA_Budget"`
	EBIT           Float  `csv:"EBIT_Budget"`
	NetIncome      Float  `csv:"NetIncome_Budget"`
	CashFromOps    Float  `csv:"CashFromOps_Budget"`
	Capex          Float  `csv:"Capex_Budget"`
	WorkingCapital Float  `csv:"WorkingCapital_Budget"`
	NetDebt        Float  `csv:"NetDebt_Budget"`
}

type Comment struct {
	Line        int    `csv:"-"`
	CompanyID   string `csv:"CompanyID"`
	CommentDate string `csv:"CommentDate"`
	Author      Text   `csv:"Author"`
	Role        Text   `csv:"Role"`
	Comment     Text   `csv:"Comment"`
}

func (rec *Company) setLine(n int)    { rec.Line = n }
func (rec *Fund) setLine(n int)       { rec.Line = n }
func (rec *Investment) setLine(n int) { rec.Line = n }
func (rec *Financial) setLine(n int)  { rec.Line = n }
func (rec *KPI) setLine(n int)        { rec.Line = n }
func (rec *Budget) setLine(n int)     { rec.Line = n }
func (rec *Comment) setLine(n int)    { rec.Line = n }

// Workbook holds every table of one extract
type Workbook struct {
	Source string

	Companies   []*Company
	Funds       []*Fund
	Investments []*Investment
	Financials  []*Financial
	KPIs        []*KPI
	Budgets     []*Budget
	Comments    []*Comment
}

// Reader produces a workbook. Reading is the only step of a run that may fail
// before the warehouse is touched.
type Reader interface {
	Read() (*Workbook, error)
}

// Path reads the extract at the given location with Open
type Path string

func (path Path) Read() (*Workbook, error) {
	return Open(string(path))
}

// Read returns the workbook itself so an in-memory extract can feed a run
func (workbook *Workbook) Read() (*Workbook, error) {
	return workbook, nil
}

func (workbook *Workbook) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Source", workbook.Source)
	e.Int(SheetCompanies, len(workbook.Companies))
	e.Int(SheetFunds, len(workbook.Funds))
	e.Int(SheetInvestments, len(workbook.Investments))
	e.Int(SheetFinancials, len(workbook.Financials))
	e.Int(SheetKPIs, len(workbook.KPIs))
	e.Int(SheetBudget, len(workbook.Budgets))
	e.Int(SheetComments, len(workbook.Comments))
}

// Open reads an .xlsx/.xlsm workbook, or a directory containing one
// <Sheet>.csv file per sheet
func Open(path string) (*Workbook, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return ReadCSVDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

func decode(source string, sheets map[string]*sheet) (*Workbook, error) {
	for _, spec := range sheetSpecs {
		sh, ok := sheets[spec.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSheet, spec.name)
		}
		if err := sh.validate(spec); err != nil {
			return nil, err
		}
	}

	workbook := &Workbook{Source: source}

	var err error
	if workbook.Companies, err = unmarshalSheet[Company](sheets[SheetCompanies]); err != nil {
		return nil, err
	}
	if workbook.Funds, err = unmarshalSheet[Fund](sheets[SheetFunds]); err != nil {
		return nil, err
	}
	if workbook.Investments, err = unmarshalSheet[Investment](sheets[SheetInvestments]); err != nil {
		return nil, err
	}
	if workbook.Financials, err = unmarshalSheet[Financial](sheets[SheetFinancials]); err != nil {
		return nil, err
	}
	if workbook.KPIs, err = unmarshalSheet[KPI](sheets[SheetKPIs]); err != nil {
		return nil, err
	}
	if workbook.Budgets, err = unmarshalSheet[Budget](sheets[SheetBudget]); err != nil {
		return nil, err
	}
	if workbook.Comments, err = unmarshalSheet[Comment](sheets[SheetComments]); err != nil {
		return nil, err
	}

	return workbook, nil
}
