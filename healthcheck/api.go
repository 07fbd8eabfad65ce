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

// Package healthcheck reports load runs to a healthchecks.io check
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrStatus = errors.New("status code is invalid")
)

// Signal is the kind of ping sent to the check
type Signal string

const (
	Start   Signal = "start"
	Success Signal = ""
	Failure Signal = "fail"
)

// Monitor pings a single check. A Monitor with an empty PingURL does nothing.
type Monitor struct {
	PingURL string

	client *resty.Client
}

func New(pingURL string) *Monitor {
	return &Monitor{
		PingURL: strings.TrimRight(pingURL, "/"),
		client:  resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
	}
}

// Ping sends signal to the check. The body is shown in the check's event log,
// so it carries the run summary or the failure message.
func (monitor *Monitor) Ping(ctx context.Context, signal Signal, body string) error {
	if monitor == nil || monitor.PingURL == "" {
		return nil
	}

	url := monitor.PingURL
	if signal != Success {
		url = fmt.Sprintf("%s/%s", url, signal)
	}

	resp, err := monitor.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(body).
		Post(url)

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
