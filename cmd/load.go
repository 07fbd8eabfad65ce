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
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/db"
	"github.com/penny-vault/pvportfolio/extract"
	"github.com/penny-vault/pvportfolio/healthcheck"
	"github.com/penny-vault/pvportfolio/pipeline"
	"github.com/penny-vault/pvportfolio/warehouse"
)

var migrateFirst bool

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load [extract]",
	Short: "Load a portfolio extract into the warehouse",
	Long: `The load sub-command reads the extract (an .xlsx workbook, or a directory with
one CSV file per sheet) and loads it stage by stage. If no extract is given the
configured extract path is used. The run stops at the first stage that fails;
stages that finished before it stay committed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := commandContext()

		source := viper.GetString("extract")
		if len(args) == 1 {
			source = args[0]
		}

		monitor := healthcheck.New(viper.GetString("healthchecks.ping_url"))
		if err := monitor.Ping(ctx, healthcheck.Start, source); err != nil {
			log.Warn().Err(err).Msg("could not ping health check")
		}

		dbURL := databaseURL()
		if migrateFirst {
			if err := db.Migrate(dbURL); err != nil {
				log.Fatal().Err(err).Msg("error running database migration")
			}
		}

		myWarehouse := &warehouse.Warehouse{DBUrl: dbURL}
		defer myWarehouse.Close()

		runner := pipeline.New(myWarehouse, pipeline.Config{
			StartYear: viper.GetInt("calendar.start_year"),
			EndYear:   viper.GetInt("calendar.end_year"),
		})

		run, runErr := runner.Run(ctx, extract.Path(source))
		if run.Source == "" {
			run.Source = source
		}

		if pipeline.ReachedWarehouse(run) {
			if err := myWarehouse.SaveRun(ctx, run); err != nil {
				log.Error().Err(err).Msg("could not record run in the run ledger")
			}
		} else {
			log.Warn().Str("Stage", run.FailedStage).Msg("run stopped before loading; not recorded in the run ledger")
		}

		fmt.Println(renderRun(run))

		if runErr != nil {
			if err := monitor.Ping(ctx, healthcheck.Failure, runErr.Error()); err != nil {
				log.Warn().Err(err).Msg("could not ping health check")
			}
			myWarehouse.Close()
			log.Fatal().Err(runErr).Str("Stage", run.FailedStage).Msg("load failed")
		}

		if err := monitor.Ping(ctx, healthcheck.Success, fmt.Sprintf("inserted %d rows", run.Inserted())); err != nil {
			log.Warn().Err(err).Msg("could not ping health check")
		}

		log.Info().Str("RunTime", durafmt.Parse(run.Duration()).String()).Int64("Inserted", run.Inserted()).Msg("load complete")
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().BoolVar(&migrateFirst, "migrate", false, "create or update the warehouse schema before loading")
}

// renderRun draws the per-stage counts of a run inside a bordered box
func renderRun(run *data.Run) string {
	p := message.NewPrinter(language.English)

	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	status := string(run.Status)
	if run.FailedStage != "" {
		status = fmt.Sprintf("%s in %s", run.Status, run.FailedStage)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\nRun: %s\nSource: %s\nStatus: %s\nDuration: %s\n\n",
		lipgloss.NewStyle().Bold(true).Render("PORTFOLIO LOAD"),
		keyword(run.ID.String()),
		keyword(run.Source),
		keyword(status),
		keyword(durafmt.Parse(run.Duration()).LimitFirstN(2).String()),
	)

	stages := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers("Stage", "Read", "Prepared", "Inserted", "Duplicates", "Skipped")

	for _, result := range run.Stages {
		stages.Row(
			result.Stage,
			p.Sprintf("%d", result.Read),
			p.Sprintf("%d", result.Prepared),
			p.Sprintf("%d", result.Inserted),
			p.Sprintf("%d", result.Duplicates),
			formatSkipped(result.Skipped),
		)
	}

	if run.FailedStage != "" {
		stages.Row(run.FailedStage, "-", "-", "-", "-", "halted")
	}

	sb.WriteString(stages.String())

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2).
		Render(sb.String())
}

func formatSkipped(skipped map[string]int) string {
	if len(skipped) == 0 {
		return "0"
	}

	reasons := make([]string, 0, len(skipped))
	for reason, count := range skipped {
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, count))
	}
	sort.Strings(reasons)

	return strings.Join(reasons, " ")
}
