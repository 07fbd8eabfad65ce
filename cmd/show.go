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
package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/penny-vault/pvportfolio/warehouse"
)

var showFund string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print funds, companies or company financials from the warehouse",
}

var showFundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "List every fund",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := commandContext()
		myWarehouse := connectWarehouse()
		defer myWarehouse.Close()

		funds, err := myWarehouse.Funds(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list funds")
		}

		tbl := newTable("Fund", "Name", "Vintage")
		for _, fund := range funds {
			tbl.Row(fund.FundID, text(fund.FundName), integer(fund.VintageYear))
		}
		fmt.Println(tbl)
	},
}

var showCompaniesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the companies of a fund, or every company",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := commandContext()
		myWarehouse := connectWarehouse()
		defer myWarehouse.Close()

		companies, err := myWarehouse.Companies(ctx, showFund)
		if err != nil {
			log.Fatal().Err(err).Str("FundID", showFund).Msg("could not list companies")
		}

		tbl := newTable("Company", "Name", "Industry", "Country", "Employees")
		for _, company := range companies {
			tbl.Row(company.CompanyID, text(company.CompanyName), text(company.Industry),
				text(company.HQCountry), integer(company.Employees))
		}
		fmt.Println(tbl)
	},
}

var showFinancialsCmd = &cobra.Command{
	Use:   "financials COMPANY_ID",
	Short: "Print the monthly financials of a company",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := commandContext()
		myWarehouse := connectWarehouse()
		defer myWarehouse.Close()

		rows, err := myWarehouse.CompanyFinancials(ctx, args[0])
		if err != nil {
			log.Fatal().Err(err).Str("CompanyID", args[0]).Msg("could not read financials")
		}

		if len(rows) == 0 {
			log.Warn().Str("CompanyID", args[0]).Msg("no financials loaded for company")
			return
		}

		tbl := newTable("Month", "Revenue", "EBITDA", "EBITDA %", "Net Income", "Net Debt", "Currency")
		for _, row := range rows {
			tbl.Row(row.YearMonth, amount(row.Revenue), amount(row.EBITDA), amount(row.EBITDAMarginPct),
				amount(row.NetIncome), amount(row.NetDebt), row.Currency)
		}
		fmt.Println(tbl)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showFundsCmd, showCompaniesCmd, showFinancialsCmd)
	showCompaniesCmd.Flags().StringVar(&showFund, "fund", "", "only list companies held by this fund")
}

func connectWarehouse() *warehouse.Warehouse {
	myWarehouse, err := warehouse.New(commandContext(), databaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to warehouse")
	}
	return myWarehouse
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers(headers...)
}

var printer = message.NewPrinter(language.English)

// missing values print as a dash rather than zero
const missing = "-"

func text(v *string) string {
	if v == nil {
		return missing
	}
	return *v
}

func integer(v *int64) string {
	if v == nil {
		return missing
	}
	return printer.Sprintf("%d", *v)
}

func amount(v *float64) string {
	if v == nil {
		return missing
	}
	return printer.Sprintf("%.2f", *v)
}
