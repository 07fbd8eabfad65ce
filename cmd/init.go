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
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvportfolio/db"
)

type dbSettings struct {
	URL string `toml:"url"`
}

type calendarSettings struct {
	StartYear int `toml:"start_year"`
	EndYear   int `toml:"end_year"`
}

// settings is the layout of the config file written by init
type settings struct {
	Extract  string           `toml:"extract"`
	DB       dbSettings       `toml:"db"`
	Calendar calendarSettings `toml:"calendar"`
}

func validYear(value string) error {
	year, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if year < 1900 || year > 9999 {
		return fmt.Errorf("year %d out of range", year)
	}
	return nil
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather warehouse configuration and create the schema",
	Run: func(cmd *cobra.Command, args []string) {
		config := settings{
			Extract: "./portfolio_monitoring_case_data.xlsx",
			DB:      dbSettings{URL: databaseURL()},
		}
		startYear := "2023"
		endYear := "2025"

		form := huh.NewForm(
			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&config.DB.URL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Where the extract lives and which months the warehouse covers
			huh.NewGroup(
				huh.NewInput().
					Title("Path of the portfolio extract (.xlsx file or directory of CSV sheets):").
					Value(&config.Extract),

				huh.NewInput().
					Title("First year of the date dimension:").
					Value(&startYear).
					Validate(validYear),

				huh.NewInput().
					Title("Last year of the date dimension:").
					Value(&endYear).
					Validate(validYear),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering warehouse settings")
		}

		config.Calendar.StartYear, _ = strconv.Atoi(startYear)
		config.Calendar.EndYear, _ = strconv.Atoi(endYear)
		if config.Calendar.EndYear < config.Calendar.StartYear {
			log.Fatal().Int("StartYear", config.Calendar.StartYear).Int("EndYear", config.Calendar.EndYear).Msg("last year is before first year")
		}

		log.Info().Msg("creating warehouse tables")

		err = db.Migrate(config.DB.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("warehouse tables created")

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".pvportfolio.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving warehouse settings to config file")
		configData, err := toml.Marshal(config)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0600)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your portfolio warehouse has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
