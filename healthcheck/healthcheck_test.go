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
package healthcheck_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvportfolio/healthcheck"
)

var _ = Describe("Monitor", func() {
	var (
		server *httptest.Server
		mu     sync.Mutex
		paths  []string
		bodies []string
		status int
	)

	BeforeEach(func() {
		paths = nil
		bodies = nil
		status = http.StatusOK

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)

			mu.Lock()
			paths = append(paths, r.URL.Path)
			bodies = append(bodies, string(body))
			code := status
			mu.Unlock()

			w.WriteHeader(code)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("pings the start, success and failure endpoints", func() {
		monitor := healthcheck.New(server.URL + "/ping/abc/")

		Expect(monitor.Ping(context.Background(), healthcheck.Start, "")).To(Succeed())
		Expect(monitor.Ping(context.Background(), healthcheck.Success, "12 rows")).To(Succeed())
		Expect(monitor.Ping(context.Background(), healthcheck.Failure, "LoadKpiFact failed")).To(Succeed())

		Expect(paths).To(Equal([]string{"/ping/abc/start", "/ping/abc", "/ping/abc/fail"}))
		Expect(bodies[1]).To(Equal("12 rows"))
		Expect(bodies[2]).To(Equal("LoadKpiFact failed"))
	})

	It("reports an unexpected status", func() {
		status = http.StatusNotFound
		monitor := healthcheck.New(server.URL + "/ping/missing")

		err := monitor.Ping(context.Background(), healthcheck.Success, "")
		Expect(err).To(MatchError(healthcheck.ErrStatus))
	})

	It("does nothing without a ping url", func() {
		Expect(healthcheck.New("").Ping(context.Background(), healthcheck.Start, "")).To(Succeed())
		var monitor *healthcheck.Monitor
		Expect(monitor.Ping(context.Background(), healthcheck.Start, "")).To(Succeed())
		Expect(paths).To(BeEmpty())
	})
})
