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
package loader_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/loader"
	"github.com/penny-vault/pvportfolio/warehouse"
	"github.com/penny-vault/pvportfolio/warehouse/warehousetest"
)

var _ = Describe("Fact loaders", func() {
	var store *warehousetest.Store

	BeforeEach(func() {
		store = warehousetest.New()
		seedDimensions(store)
	})

	Describe("Financials", func() {
		financials := []*extract.Financial{
			{Line: 2, CompanyID: "C001", YearMonth: "2024-03", Revenue: extract.FloatOf(10.5)},
			{Line: 3, CompanyID: "C001", YearMonth: "2024/03", Revenue: extract.FloatOf(11.0)},
			{Line: 4, CompanyID: "C001", YearMonth: "Q1-2024", Revenue: extract.FloatOf(12.0)},
			{Line: 5, CompanyID: "C001", YearMonth: "", Revenue: extract.FloatOf(13.0)},
			{Line: 6, CompanyID: "C001", YearMonth: "2030-01", Revenue: extract.FloatOf(14.0)},
			{Line: 7, CompanyID: "C404", YearMonth: "2024-03", Revenue: extract.FloatOf(15.0)},
			{Line: 8, CompanyID: "C001", YearMonth: "2024-03", Revenue: extract.FloatOf(16.0)},
		}

		loadFinancials := func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Financials(ctx, tx, financials)
		}

		It("keeps absent figures as NULL and fixes the currency", func() {
			result := load(store, loadFinancials)
			Expect(result.Inserted).To(Equal(int64(1)))

			rows := store.Rows(data.FinancialsTable)
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveKeyWithValue("date_id", 20240301))
			Expect(rows[0]).To(HaveKeyWithValue("revenue", 10.5))
			Expect(rows[0]).To(HaveKeyWithValue("currency", "EUR"))
			Expect(rows[0]["ebitda"]).To(BeNil())
		})

		It("counts every row it cannot resolve by reason", func() {
			result := load(store, loadFinancials)

			Expect(result.Read).To(Equal(7))
			Expect(result.Skipped).To(Equal(map[string]int{
				data.SkipPeriod:  3,
				data.SkipDate:    1,
				data.SkipCompany: 1,
			}))
			Expect(result.Duplicates).To(Equal(1))
		})

		It("is a no-op when run again", func() {
			load(store, loadFinancials)
			result := load(store, loadFinancials)

			Expect(result.Inserted).To(BeZero())
			Expect(store.Count(data.FinancialsTable)).To(Equal(1))
		})

		It("passes on warehouse failures", func() {
			store.FailOn = data.FinancialsTable.Name

			tx, err := store.Begin(context.Background())
			Expect(err).NotTo(HaveOccurred())

			_, err = loader.Financials(context.Background(), tx, financials)
			Expect(errors.Is(err, warehousetest.ErrInjected)).To(BeTrue())
		})
	})

	Describe("KpiFacts", func() {
		kpis := []*extract.KPI{
			{Line: 2, CompanyID: "C001", YearMonth: "2024-03", KPIName: "ARR", KPIValue: extract.FloatOf(100.0)},
			{Line: 3, CompanyID: "C001", YearMonth: "2024-03", KPIName: "Churn", KPIValue: extract.FloatOf(0.02)},
			{Line: 4, CompanyID: "C001", YearMonth: "2024-04", KPIName: "ARR"},
		}

		BeforeEach(func() {
			load(store, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
				return loader.Kpis(ctx, tx, []*extract.KPI{kpis[0]})
			})
		})

		It("skips KPIs missing from the catalog", func() {
			result := load(store, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
				return loader.KpiFacts(ctx, tx, kpis)
			})

			Expect(result.Inserted).To(Equal(int64(2)))
			Expect(result.Skipped).To(Equal(map[string]int{data.SkipKpi: 1}))

			rows := store.Rows(data.KpiFactTable)
			Expect(rows).To(HaveLen(2))
			Expect(rows[0]).To(HaveKeyWithValue("kpi_id", int64(1)))
			Expect(rows[0]).To(HaveKeyWithValue("kpi_value", 100.0))
			Expect(rows[1]).To(HaveKeyWithValue("date_id", 20240401))
			Expect(rows[1]["kpi_value"]).To(BeNil())
		})

		It("sees KPIs registered earlier in the same unit of work", func() {
			ctx := context.Background()
			tx, err := store.Begin(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = loader.Kpis(ctx, tx, kpis)
			Expect(err).NotTo(HaveOccurred())
			result, err := loader.KpiFacts(ctx, tx, kpis)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NumSkipped()).To(BeZero())
			Expect(tx.Commit(ctx)).To(Succeed())

			Expect(store.Count(data.KpiFactTable)).To(Equal(3))
		})
	})

	Describe("Budgets", func() {
		It("skips budgets without a fiscal year", func() {
			result := load(store, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
				return loader.Budgets(ctx, tx, []*extract.Budget{
					{Line: 2, CompanyID: "C001", FiscalYear: extract.IntOf(2024), Currency: extract.TextOf("EUR"), Revenue: extract.FloatOf(120.0)},
					{Line: 3, CompanyID: "C001", Revenue: extract.FloatOf(130.0)},
					{Line: 4, CompanyID: "C001", FiscalYear: extract.IntOf(2024), Revenue: extract.FloatOf(140.0)},
				})
			})

			Expect(result.Inserted).To(Equal(int64(1)))
			Expect(result.Duplicates).To(Equal(1))
			Expect(result.Skipped).To(Equal(map[string]int{data.SkipFiscalYear: 1}))

			rows := store.Rows(data.BudgetTable)
			Expect(rows[0]).To(HaveKeyWithValue("fiscal_year", int64(2024)))
			Expect(rows[0]).To(HaveKeyWithValue("revenue_budget", 120.0))
			Expect(rows[0]["cogs_budget"]).To(BeNil())
		})
	})

	Describe("Comments", func() {
		comments := []*extract.Comment{
			{Line: 2, CompanyID: "C001", CommentDate: "2024-03-15 10:30:00", Author: extract.TextOf("Jane"), Comment: extract.TextOf("Strong quarter")},
			{Line: 3, CompanyID: "C001", CommentDate: "2024-03-15 10:30:00", Author: extract.TextOf("Jane"), Comment: extract.TextOf("Strong quarter")},
			{Line: 4, CompanyID: "C001", CommentDate: "soon"},
			{Line: 5, CompanyID: "C001", CommentDate: "2031-02-01"},
		}

		loadComments := func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
			return loader.Comments(ctx, tx, comments)
		}

		It("files comments under the month they were written", func() {
			result := load(store, loadComments)

			Expect(result.Inserted).To(Equal(int64(2)))
			Expect(result.Duplicates).To(BeZero())
			Expect(result.Skipped).To(Equal(map[string]int{
				data.SkipCommentDate: 1,
				data.SkipDate:        1,
			}))

			rows := store.Rows(data.CommentTable)
			Expect(rows[0]).To(HaveKeyWithValue("date_id", 20240301))
			Expect(rows[0]).To(HaveKeyWithValue("comment_text", "Strong quarter"))
			Expect(rows[0]["role"]).To(BeNil())
			Expect(rows[0]).To(HaveKeyWithValue("comment_id", int64(1)))
			Expect(rows[1]).To(HaveKeyWithValue("comment_id", int64(2)))
		})

		It("files a comment dated only by its year under January", func() {
			result := load(store, func(ctx context.Context, tx warehouse.Tx) (*data.LoadResult, error) {
				return loader.Comments(ctx, tx, []*extract.Comment{
					{Line: 2, CompanyID: "C001", CommentDate: "2024", Comment: extract.TextOf("Year in review")},
				})
			})

			Expect(result.Inserted).To(Equal(int64(1)))
			Expect(result.Skipped).To(BeEmpty())
			Expect(store.Rows(data.CommentTable)[0]).To(HaveKeyWithValue("date_id", 20240101))
		})

		It("stores the comments again on every run", func() {
			load(store, loadComments)
			load(store, loadComments)

			Expect(store.Count(data.CommentTable)).To(Equal(4))
		})
	})
})
