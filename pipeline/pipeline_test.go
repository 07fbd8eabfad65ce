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
package pipeline_test

import (
	"context"
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/pipeline"
	"github.com/penny-vault/pvportfolio/warehouse/warehousetest"
)

func sampleWorkbook() *extract.Workbook {
	return &extract.Workbook{
		Source: "memory",
		Companies: []*extract.Company{
			{Line: 2, CompanyID: "C001", CompanyName: extract.TextOf("Acme")},
		},
		Funds: []*extract.Fund{
			{Line: 2, FundID: "F001", FundName: extract.TextOf("Fund One"), VintageYear: extract.IntOf(2019)},
		},
		Investments: []*extract.Investment{
			{Line: 2, CompanyID: "C001", FundID: "F001", InvestmentDate: "2024-01-15"},
		},
		Financials: []*extract.Financial{
			{Line: 2, CompanyID: "C001", YearMonth: "2024-03", Revenue: extract.FloatOf(10.5)},
		},
		KPIs: []*extract.KPI{
			{Line: 2, CompanyID: "C001", YearMonth: "2024-03", KPIName: "ARR", KPIValue: extract.FloatOf(100.0)},
			{Line: 3, CompanyID: "C001", YearMonth: "2024-03", KPIName: "Churn", KPIValue: extract.FloatOf(0.02)},
		},
		Budgets: []*extract.Budget{
			{Line: 2, CompanyID: "C001", FiscalYear: extract.IntOf(2024), Currency: extract.TextOf("EUR"), Revenue: extract.FloatOf(120.0)},
		},
		Comments: []*extract.Comment{
			{Line: 2, CompanyID: "C001", CommentDate: "2024-03-05", Author: extract.TextOf("Jane"), Comment: extract.TextOf("Strong quarter")},
		},
	}
}

var config = pipeline.Config{StartYear: 2023, EndYear: 2025}

var _ = Describe("Pipeline", func() {
	var (
		ctx   context.Context
		store *warehousetest.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = warehousetest.New()
	})

	It("loads one company, fund, investment and month of financials", func() {
		run, err := pipeline.New(store, config).Run(ctx, sampleWorkbook())
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Status).To(Equal(data.RunSuccess))
		Expect(run.Source).To(Equal("memory"))
		Expect(run.FailedStage).To(BeEmpty())

		financials := store.Rows(data.FinancialsTable)
		Expect(financials).To(HaveLen(1))
		Expect(financials[0]).To(HaveKeyWithValue("date_id", 20240301))
		Expect(financials[0]).To(HaveKeyWithValue("revenue", 10.5))
		Expect(financials[0]["ebitda"]).To(BeNil())

		investments := store.Rows(data.InvestmentTable)
		Expect(investments).To(HaveLen(1))
		Expect(investments[0]["investment_date"]).To(WithTransform(func(v any) string {
			return v.(interface{ Format(string) string }).Format("2006-01-02")
		}, Equal("2024-01-15")))

		Expect(store.Count(data.DateTable)).To(Equal(36))
		Expect(store.Count(data.KpiTable)).To(Equal(2))
		Expect(store.Count(data.KpiFactTable)).To(Equal(2))
	})

	It("commits every stage in its own unit of work and reports them in order", func() {
		run, err := pipeline.New(store, config).Run(ctx, sampleWorkbook())
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Begun).To(Equal(9))
		Expect(store.Committed).To(Equal(9))
		Expect(pipeline.ReachedWarehouse(run)).To(BeTrue())

		names := make([]string, len(run.Stages))
		for idx, result := range run.Stages {
			names[idx] = result.Stage
		}
		Expect(names).To(Equal([]string{
			pipeline.ReadExtract, pipeline.GenerateDateDimension, pipeline.LoadCompanyDim,
			pipeline.LoadFundDim, pipeline.LoadDateDim, pipeline.LoadKpiDim, pipeline.LoadInvestmentDim,
			pipeline.LoadFinancialsFact, pipeline.LoadKpiFact, pipeline.LoadBudgetFact, pipeline.LoadCommentFact,
		}))
		Expect(run.Stages[0].Read).To(Equal(8))
		Expect(run.Stages[1].Prepared).To(Equal(36))
	})

	It("leaves row counts unchanged on a rerun, except for comments", func() {
		runner := pipeline.New(store, config)
		_, err := runner.Run(ctx, sampleWorkbook())
		Expect(err).NotTo(HaveOccurred())

		before := make(map[string]int)
		for _, tbl := range data.Tables {
			before[tbl.Name] = store.Count(tbl)
		}

		run, err := runner.Run(ctx, sampleWorkbook())
		Expect(err).NotTo(HaveOccurred())

		for _, tbl := range data.Tables {
			if tbl == data.CommentTable {
				Expect(store.Count(tbl)).To(Equal(2*before[tbl.Name]), tbl.Name)
				continue
			}
			Expect(store.Count(tbl)).To(Equal(before[tbl.Name]), tbl.Name)
		}
		Expect(run.Inserted()).To(Equal(int64(1)))
	})

	It("only writes fact rows whose keys resolve to dimension rows", func() {
		workbook := sampleWorkbook()
		workbook.Financials = append(workbook.Financials,
			&extract.Financial{Line: 3, CompanyID: "C404", YearMonth: "2024-03", Revenue: extract.FloatOf(1.0)},
			&extract.Financial{Line: 4, CompanyID: "C001", YearMonth: "2019-01", Revenue: extract.FloatOf(1.0)},
		)
		workbook.Comments = append(workbook.Comments,
			&extract.Comment{Line: 3, CompanyID: "C404", CommentDate: "2024-03-05"},
		)

		_, err := pipeline.New(store, config).Run(ctx, workbook)
		Expect(err).NotTo(HaveOccurred())

		keys := func(tbl *data.Table, col string) mapset.Set[any] {
			set := mapset.NewSet[any]()
			for _, row := range store.Rows(tbl) {
				set.Add(row[col])
			}
			return set
		}

		companies := keys(data.CompanyTable, "company_id")
		dates := keys(data.DateTable, "date_id")
		kpis := keys(data.KpiTable, "kpi_id")

		for _, tbl := range []*data.Table{data.FinancialsTable, data.KpiFactTable, data.CommentTable} {
			Expect(keys(tbl, "company_id").IsSubset(companies)).To(BeTrue(), tbl.Name)
			Expect(keys(tbl, "date_id").IsSubset(dates)).To(BeTrue(), tbl.Name)
		}
		Expect(keys(data.BudgetTable, "company_id").IsSubset(companies)).To(BeTrue())
		Expect(keys(data.KpiFactTable, "kpi_id").IsSubset(kpis)).To(BeTrue())
		Expect(store.Count(data.FinancialsTable)).To(Equal(1))
		Expect(store.Count(data.CommentTable)).To(Equal(1))
	})

	It("rolls back the failing stage and halts the run", func() {
		store.FailOn = data.KpiFactTable.Name

		run, err := pipeline.New(store, config).Run(ctx, sampleWorkbook())
		Expect(err).To(MatchError(warehousetest.ErrInjected))

		var stageErr *pipeline.StageError
		Expect(errors.As(err, &stageErr)).To(BeTrue())
		Expect(stageErr.Stage).To(Equal(pipeline.LoadKpiFact))
		Expect(err.Error()).To(ContainSubstring("LoadKpiFact"))

		Expect(run.Status).To(Equal(data.RunFailed))
		Expect(run.FailedStage).To(Equal(pipeline.LoadKpiFact))
		Expect(run.FinishedAt).NotTo(BeZero())
		Expect(pipeline.ReachedWarehouse(run)).To(BeTrue())

		Expect(store.RolledBack).To(Equal(1))
		Expect(store.Count(data.FinancialsTable)).To(Equal(1))
		Expect(store.Count(data.KpiFactTable)).To(BeZero())
		Expect(store.Count(data.BudgetTable)).To(BeZero())
		Expect(store.Count(data.CommentTable)).To(BeZero())
	})

	It("aborts before touching the warehouse when the extract is incomplete", func() {
		run, err := pipeline.New(store, config).Run(ctx, extract.Path(GinkgoT().TempDir()))
		Expect(err).To(MatchError(extract.ErrMissingSheet))

		var stageErr *pipeline.StageError
		Expect(errors.As(err, &stageErr)).To(BeTrue())
		Expect(stageErr.Stage).To(Equal(pipeline.ReadExtract))
		Expect(run.FailedStage).To(Equal(pipeline.ReadExtract))
		Expect(store.Begun).To(BeZero())
		Expect(pipeline.ReachedWarehouse(run)).To(BeFalse())
	})

	It("rejects an inverted calendar before touching the warehouse", func() {
		run, err := pipeline.New(store, pipeline.Config{StartYear: 2025, EndYear: 2023}).Run(ctx, sampleWorkbook())
		Expect(err).To(MatchError(data.ErrInvalidYearRange))
		Expect(store.Begun).To(BeZero())
		Expect(pipeline.ReachedWarehouse(run)).To(BeFalse())
	})

	It("stops at the next stage once the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		run, err := pipeline.New(store, config).Run(cancelled, sampleWorkbook())
		Expect(err).To(MatchError(context.Canceled))
		Expect(run.FailedStage).To(Equal(pipeline.LoadCompanyDim))
		Expect(store.Begun).To(BeZero())
	})
})

