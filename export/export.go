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

// Package export snapshots the warehouse facts to Parquet files
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/penny-vault/pvportfolio/data"
)

// Source supplies the rows to export
type Source interface {
	FinancialsSnapshot(ctx context.Context) ([]*data.FinancialsView, error)
	KpiSnapshot(ctx context.Context) ([]*data.KpiView, error)
}

// Uploader copies a finished file to remote storage
type Uploader interface {
	Upload(fn, dirname string) error
}

type Exporter struct {
	Source Source

	// Dir receives the parquet files
	Dir string

	// Uploader is optional; when set every file is uploaded under RemoteDir
	Uploader  Uploader
	RemoteDir string

	Now func() time.Time
}

// Export writes the financials and KPI facts and returns the file names
func (exporter *Exporter) Export(ctx context.Context) ([]string, error) {
	now := time.Now
	if exporter.Now != nil {
		now = exporter.Now
	}
	stamp := now().Format("20060102")

	financials, err := exporter.Source.FinancialsSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read financials: %w", err)
	}

	kpis, err := exporter.Source.KpiSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read kpis: %w", err)
	}

	financialsFn := exporter.fileName("portfolio financials", stamp)
	if err := WriteParquet(ctx, financialsFn, financials); err != nil {
		return nil, err
	}

	kpisFn := exporter.fileName("portfolio kpis", stamp)
	if err := WriteParquet(ctx, kpisFn, kpis); err != nil {
		return nil, err
	}

	files := []string{financialsFn, kpisFn}

	if exporter.Uploader != nil {
		remoteDir := exporter.RemoteDir
		if remoteDir == "" {
			remoteDir = slug.Make("portfolio warehouse")
		}
		for _, fn := range files {
			if err := exporter.Uploader.Upload(fn, remoteDir); err != nil {
				return files, fmt.Errorf("upload %s: %w", fn, err)
			}
		}
	}

	return files, nil
}

func (exporter *Exporter) fileName(title, stamp string) string {
	return filepath.Join(exporter.Dir, slug.Make(fmt.Sprintf("%s %s", title, stamp))+".parquet")
}

// WriteParquet writes records with the schema given by the parquet tags of T
func WriteParquet[T any](ctx context.Context, fn string, records []*T) error {
	logger := zerolog.Ctx(ctx)

	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		logger.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(T), 4)
	if err != nil {
		logger.Error().Err(err).Str("FileName", fn).Msg("parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, record := range records {
		if err = pw.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", fn, err)
		}
	}

	if err = pw.WriteStop(); err != nil {
		logger.Error().Err(err).Str("FileName", fn).Msg("parquet write failed")
		return err
	}

	logger.Info().Int("NumRecords", len(records)).Str("FileName", fn).Msg("parquet write finished")
	return nil
}
