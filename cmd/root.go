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
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pvportfolio/warehouse"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pvportfolio",
	Short: "pvportfolio loads private equity portfolio extracts into a star-schema warehouse",
	Long: `pvportfolio is a command line utility that turns the periodic portfolio
monitoring extract (companies, funds, investments, monthly financials, KPIs,
annual budgets and comments) into a PostgreSQL star schema ready for analysis.

Every load runs the same ordered stages:

	* read the extract (an .xlsx workbook or a directory of CSV sheets)
	* generate the monthly date dimension
	* load the company, fund, date, KPI and investment dimensions
	* load the financials, KPI, budget and comment facts

Each stage commits on its own. Dimensions and the financials, KPI and budget
facts can be reloaded safely; comments are appended on every load.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pvportfolio.toml)")
	rootCmd.PersistentFlags().String("dbUrl", "", "database connection string, overrides the POSTGRES_* settings")
	if err := viper.BindPFlag("db.url", rootCmd.PersistentFlags().Lookup("dbUrl")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbUrl failed")
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for log-level failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// a .env file in the working directory is optional
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded environment from .env")
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pvportfolio" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".pvportfolio")
	}

	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "my_user")
	viper.SetDefault("postgres.password", "my_password")
	viper.SetDefault("postgres.db", "my_local_db")
	viper.SetDefault("calendar.start_year", 2023)
	viper.SetDefault("calendar.end_year", 2025)
	viper.SetDefault("extract", "./portfolio_monitoring_case_data.xlsx")

	// POSTGRES_HOST, HEALTHCHECKS_PING_URL, ...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}

	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.Warn().Str("Level", viper.GetString("log.level")).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// databaseURL returns db.url when set, otherwise a url built from the
// postgres.* settings
func databaseURL() string {
	if dbURL := viper.GetString("db.url"); dbURL != "" {
		return dbURL
	}

	return warehouse.URL(
		viper.GetString("postgres.host"),
		viper.GetInt("postgres.port"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
	)
}

// commandContext carries the global logger so library code can log through
// zerolog.Ctx
func commandContext() context.Context {
	return log.Logger.WithContext(context.Background())
}
