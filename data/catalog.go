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
package data

// KpiCatalog maps KPI names to the ids the warehouse assigned them. A catalog
// is read once from dim_kpi and is not modified afterwards.
type KpiCatalog struct {
	ids map[string]int64
}

func NewKpiCatalog(kpis []*Kpi) KpiCatalog {
	ids := make(map[string]int64, len(kpis))
	for _, kpi := range kpis {
		ids[kpi.KpiName] = kpi.KpiID
	}
	return KpiCatalog{ids: ids}
}

// ID returns the kpi_id for name
func (catalog KpiCatalog) ID(name string) (int64, bool) {
	id, ok := catalog.ids[name]
	return id, ok
}

func (catalog KpiCatalog) Len() int {
	return len(catalog.ids)
}
