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
package pkginfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"

	"github.com/rs/zerolog/log"
)

const Name = "pvportfolio"

// set at link time with -ldflags "-X ..."
var (
	BuildDate  string
	CommitHash string
	Version    string
)

// Dependency is a module linked into the binary
type Dependency struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

type BuildInfo struct {
	Name       string       `json:"name"`
	Version    string       `json:"version"`
	BuildDate  string       `json:"build_date"`
	CommitHash string       `json:"commit"`
	GoVersion  string       `json:"go_version"`
	Platform   string       `json:"platform"`
	Deps       []Dependency `json:"dependencies,omitempty"`
}

// Info describes the running binary. Values not set at link time fall back
// to what the go toolchain embedded in the build.
func Info() *BuildInfo {
	info := &BuildInfo{
		Name:       Name,
		Version:    Version,
		BuildDate:  BuildDate,
		CommitHash: CommitHash,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		log.Error().Msg("could not get package build info")
		return info
	}

	if info.Version == "" {
		info.Version = buildInfo.Main.Version
	}

	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.CommitHash == "" {
				info.CommitHash = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = setting.Value
			}
		}
	}

	for _, dep := range buildInfo.Deps {
		info.Deps = append(info.Deps, Dependency{Path: dep.Path, Version: dep.Version})
	}

	sort.Slice(info.Deps, func(i, j int) bool {
		return info.Deps[i].Path < info.Deps[j].Path
	})

	return info
}

// BuildVersionString returns a version info string suitable for printing on the command line
func BuildVersionString() string {
	info := Info()

	return fmt.Sprintf(`%s %s %s

Build Date: %s
Commit: %s
Built with: %s`, info.Name, info.Version, info.Platform, info.BuildDate, info.CommitHash, info.GoVersion)
}

// GetDependencyList returns every linked module as `path="version"`
func GetDependencyList() []string {
	deps := Info().Deps
	list := make([]string, len(deps))
	for idx, dep := range deps {
		list[idx] = fmt.Sprintf("%s=%q", dep.Path, dep.Version)
	}
	return list
}
