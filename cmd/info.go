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

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvportfolio/warehouse"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display table sizes, integrity and recent runs of the warehouse",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := commandContext()

		myWarehouse, err := warehouse.New(ctx, databaseURL())
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to warehouse")
		}
		defer myWarehouse.Close()

		summary, err := myWarehouse.Summary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create warehouse summary document")
		}

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(summary)
		if err != nil {
			log.Fatal().Err(err).Msg("could not render summary document")
		}

		fmt.Print(out)

		if !checkIntegrity {
			return
		}

		orphans, err := myWarehouse.Orphans(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not check referential integrity")
		}

		for _, orphan := range orphans {
			log.Error().Str("Table", orphan.Table).Str("Column", orphan.Column).Int64("NumRows", orphan.Count).Msg("fact rows without a dimension row")
		}

		if len(orphans) > 0 {
			myWarehouse.Close()
			log.Fatal().Int("NumChecks", len(orphans)).Msg("warehouse is not referentially complete")
		}
	},
}

var checkIntegrity bool

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&checkIntegrity, "check", false, "exit non-zero when a fact row references a missing dimension row")
}
