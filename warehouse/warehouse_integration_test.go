//go:build integration

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
package warehouse_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/db"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/pipeline"
	"github.com/penny-vault/pvportfolio/warehouse"
)

func workbook() *extract.Workbook {
	return &extract.Workbook{
		Source:      "integration",
		Companies:   []*extract.Company{{Line: 2, CompanyID: "C001", CompanyName: extract.TextOf("Acme"), Employees: extract.IntOf(120)}},
		Funds:       []*extract.Fund{{Line: 2, FundID: "F001", FundName: extract.TextOf("Fund One")}},
		Investments: []*extract.Investment{{Line: 2, CompanyID: "C001", FundID: "F001", InvestmentDate: "2024-01-15"}},
		Financials: []*extract.Financial{
			{Line: 2, CompanyID: "C001", YearMonth: "2024-03", Revenue: extract.FloatOf(10.5)},
			{Line: 3, CompanyID: "C001", YearMonth: "2024/04", Revenue: extract.FloatOf(11.0)},
		},
		KPIs: []*extract.KPI{{Line: 2, CompanyID: "C001", YearMonth: "2024-03", KPIName: "ARR", KPIValue: extract.FloatOf(100.0)}},
		Budgets: []*extract.Budget{
			{Line: 2, CompanyID: "C001", FiscalYear: extract.IntOf(2024), Currency: extract.TextOf("EUR"), Revenue: extract.FloatOf(120.0)},
		},
		Comments: []*extract.Comment{{Line: 2, CompanyID: "C001", CommentDate: "2024-03-05 09:00:00", Comment: extract.TextOf("Strong quarter")}},
	}
}

var _ = Describe("PostgreSQL warehouse", Ordered, func() {
	var (
		ctx         context.Context
		container   testcontainers.Container
		myWarehouse *warehouse.Warehouse
		runner      *pipeline.Pipeline
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:15-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "my_user",
					"POSTGRES_PASSWORD": "my_password",
					"POSTGRES_DB":       "my_local_db",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		Expect(err).NotTo(HaveOccurred())

		host, err := container.Host(ctx)
		Expect(err).NotTo(HaveOccurred())
		port, err := container.MappedPort(ctx, "5432")
		Expect(err).NotTo(HaveOccurred())

		dbURL := warehouse.URL(host, port.Int(), "my_user", "my_password", "my_local_db")
		Expect(db.Migrate(dbURL)).To(Succeed())
		// a second migration is a no-op
		Expect(db.Migrate(dbURL)).To(Succeed())

		myWarehouse, err = warehouse.New(ctx, dbURL)
		Expect(err).NotTo(HaveOccurred())

		runner = pipeline.New(myWarehouse, pipeline.Config{StartYear: 2023, EndYear: 2025})
	})

	AfterAll(func() {
		if myWarehouse != nil {
			myWarehouse.Close()
		}
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	counts := func() map[string]int64 {
		result := make(map[string]int64)
		for _, tbl := range data.Tables {
			count, err := myWarehouse.RowCount(ctx, tbl)
			Expect(err).NotTo(HaveOccurred())
			result[tbl.Name] = count
		}
		return result
	}

	It("loads the extract into the star schema", func() {
		run, err := runner.Run(ctx, workbook())
		Expect(err).NotTo(HaveOccurred())
		Expect(myWarehouse.SaveRun(ctx, run)).To(Succeed())

		Expect(counts()).To(Equal(map[string]int64{
			"dim_company":             1,
			"dim_fund":                1,
			"dim_date":                36,
			"dim_kpi":                 1,
			"dim_investment":          1,
			"fact_financials_monthly": 1,
			"fact_kpis_monthly":       1,
			"fact_budget":             1,
			"fact_comments":           1,
		}))

		financials, err := myWarehouse.CompanyFinancials(ctx, "C001")
		Expect(err).NotTo(HaveOccurred())
		Expect(financials).To(HaveLen(1))
		Expect(financials[0].DateID).To(Equal(int32(20240301)))
		Expect(financials[0].YearMonth).To(Equal("2024-03"))
		Expect(*financials[0].Revenue).To(Equal(10.5))
		Expect(financials[0].EBITDA).To(BeNil())
		Expect(financials[0].Currency).To(Equal("EUR"))

		var investmentDate time.Time
		Expect(myWarehouse.Pool.QueryRow(ctx,
			`SELECT investment_date FROM raw_data.dim_investment WHERE company_id = $1 AND fund_id = $2`,
			"C001", "F001").Scan(&investmentDate)).To(Succeed())
		Expect(investmentDate.Format("2006-01-02")).To(Equal("2024-01-15"))
	})

	It("answers the presentation queries", func() {
		funds, err := myWarehouse.Funds(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(funds).To(HaveLen(1))
		Expect(*funds[0].FundName).To(Equal("Fund One"))

		companies, err := myWarehouse.Companies(ctx, "F001")
		Expect(err).NotTo(HaveOccurred())
		Expect(companies).To(HaveLen(1))
		Expect(*companies[0].Employees).To(Equal(int64(120)))

		companies, err = myWarehouse.Companies(ctx, "F404")
		Expect(err).NotTo(HaveOccurred())
		Expect(companies).To(BeEmpty())

		kpis, err := myWarehouse.KpiSnapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(kpis).To(HaveLen(1))
		Expect(kpis[0].KpiName).To(Equal("ARR"))
	})

	It("leaves no fact without its dimension rows", func() {
		orphans, err := myWarehouse.Orphans(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(orphans).To(BeEmpty())
	})

	It("only appends comments when the same extract is loaded again", func() {
		before := counts()

		run, err := runner.Run(ctx, workbook())
		Expect(err).NotTo(HaveOccurred())
		Expect(myWarehouse.SaveRun(ctx, run)).To(Succeed())

		after := counts()
		for name, count := range before {
			if name == data.CommentTable.Name {
				Expect(after[name]).To(Equal(2*count), name)
				continue
			}
			Expect(after[name]).To(Equal(count), name)
		}
	})

	It("records every run in the ledger", func() {
		runs, err := myWarehouse.Runs(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].Status).To(Equal(data.RunSuccess))
		Expect(runs[0].Stages).To(HaveLen(11))
		Expect(runs[0].Stages[7].Stage).To(Equal(pipeline.LoadFinancialsFact))
		Expect(runs[0].Stages[7].Skipped).To(HaveKeyWithValue(data.SkipPeriod, 1))

		summary, err := myWarehouse.Summary(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(ContainSubstring("raw_data.dim_date: 36"))
		Expect(summary).To(ContainSubstring(fmt.Sprintf("[%s]", runs[0].ID.String()[:6])))
	})
})
