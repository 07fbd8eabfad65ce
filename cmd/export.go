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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pvportfolio/backblaze"
	"github.com/penny-vault/pvportfolio/export"
)

var (
	exportDir    string
	exportUpload bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the financials and KPI facts to Parquet files",
	Long: `The export sub-command snapshots the monthly financials and KPI facts into
dated Parquet files. With --upload the files are also copied to the Backblaze B2
bucket configured as backblaze.bucket.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := commandContext()
		myWarehouse := connectWarehouse()
		defer myWarehouse.Close()

		exporter := &export.Exporter{
			Source: myWarehouse,
			Dir:    exportDir,
		}

		if exportUpload {
			bucketName := viper.GetString("backblaze.bucket")
			if bucketName == "" {
				myWarehouse.Close()
				log.Fatal().Msg("--upload requires backblaze.bucket to be configured")
			}

			exporter.Uploader = &backblaze.Bucket{
				KeyID:          viper.GetString("backblaze.application_id"),
				ApplicationKey: viper.GetString("backblaze.application_key"),
				Name:           bucketName,
			}
		}

		files, err := exporter.Export(ctx)
		if err != nil {
			myWarehouse.Close()
			log.Fatal().Err(err).Msg("export failed")
		}

		for _, fn := range files {
			fmt.Println(fn)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "directory to write the parquet files to")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "upload the files to backblaze")
}
