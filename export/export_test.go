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
package export_test

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/penny-vault/pvportfolio/data"
	"github.com/penny-vault/pvportfolio/export"
)

type fakeSource struct {
	financials []*data.FinancialsView
	kpis       []*data.KpiView
	err        error
}

func (source *fakeSource) FinancialsSnapshot(ctx context.Context) ([]*data.FinancialsView, error) {
	return source.financials, source.err
}

func (source *fakeSource) KpiSnapshot(ctx context.Context) ([]*data.KpiView, error) {
	return source.kpis, source.err
}

type fakeUploader struct {
	files []string
	dirs  []string
}

func (uploader *fakeUploader) Upload(fn, dirname string) error {
	uploader.files = append(uploader.files, filepath.Base(fn))
	uploader.dirs = append(uploader.dirs, dirname)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

var _ = Describe("Exporter", func() {
	var (
		dir    string
		source *fakeSource
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		source = &fakeSource{
			financials: []*data.FinancialsView{
				{CompanyID: "C001", CompanyName: ptr("Acme"), DateID: 20240301, YearMonth: "2024-03", Revenue: ptr(10.5), Currency: "EUR"},
				{CompanyID: "C001", CompanyName: ptr("Acme"), DateID: 20240401, YearMonth: "2024-04", Currency: "EUR"},
			},
			kpis: []*data.KpiView{
				{CompanyID: "C001", DateID: 20240301, YearMonth: "2024-03", KpiName: "ARR", Value: ptr(100.0)},
			},
		}
	})

	now := func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	}

	It("writes the facts to dated parquet files", func() {
		exporter := &export.Exporter{Source: source, Dir: dir, Now: now}

		files, err := exporter.Export(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(Equal([]string{
			filepath.Join(dir, "portfolio-financials-20240315.parquet"),
			filepath.Join(dir, "portfolio-kpis-20240315.parquet"),
		}))

		fr, err := local.NewLocalFileReader(files[0])
		Expect(err).NotTo(HaveOccurred())
		defer fr.Close()

		pr, err := reader.NewParquetReader(fr, new(data.FinancialsView), 1)
		Expect(err).NotTo(HaveOccurred())
		defer pr.ReadStop()

		Expect(pr.GetNumRows()).To(Equal(int64(2)))

		rows := make([]data.FinancialsView, 2)
		Expect(pr.Read(&rows)).To(Succeed())
		Expect(rows[0].CompanyID).To(Equal("C001"))
		Expect(rows[0].DateID).To(Equal(int32(20240301)))
		Expect(*rows[0].Revenue).To(Equal(10.5))
		Expect(rows[1].Revenue).To(BeNil())
	})

	It("uploads every file when an uploader is configured", func() {
		uploader := &fakeUploader{}
		exporter := &export.Exporter{Source: source, Dir: dir, Now: now, Uploader: uploader}

		_, err := exporter.Export(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(uploader.files).To(Equal([]string{"portfolio-financials-20240315.parquet", "portfolio-kpis-20240315.parquet"}))
		Expect(uploader.dirs).To(HaveEach("portfolio-warehouse"))
	})

	It("writes nothing when the warehouse cannot be read", func() {
		source.err = errors.New("connection refused")
		exporter := &export.Exporter{Source: source, Dir: dir, Now: now}

		files, err := exporter.Export(context.Background())
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
		Expect(files).To(BeEmpty())
	})
})
