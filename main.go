/*
Copyright 2022 The l7mp/stunner team.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/l7mp/supercouch/internal/buildinfo"
	"github.com/l7mp/supercouch/internal/cliconfig"
	"github.com/l7mp/supercouch/internal/logging"
	"github.com/l7mp/supercouch/pkg/queryserver"
	"github.com/l7mp/supercouch/pkg/sset"
)

var (
	version    = "dev"
	commitHash = "n/a"
	buildDate  = "<unknown>"
)

func main() {
	info := buildinfo.BuildInfo{Version: version, CommitHash: commitHash, BuildDate: buildDate}

	cfg, err := cliconfig.Parse(os.Args[1:], os.Stderr, info.String())
	if err != nil {
		os.Exit(1)
	}

	log, closeLog, err := logging.New(logging.Options{
		LogFile:   cfg.LogFile,
		SyslogURL: cfg.SyslogURL,
		Verbose:   cfg.Verbose,
		Debug:     cfg.Debug,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	setupLog := log.WithName("setup")
	setupLog.Info(fmt.Sprintf("starting supercouch %s", info.String()))

	service, err := sset.NewRedisService(cfg.Backend, log)
	if err != nil {
		setupLog.Error(err, "unable to set up sorted-set service")
		os.Exit(1)
	}

	engine := queryserver.NewEngine(queryserver.Config{EmitSSet: cfg.EmitSSet}, service, log.WithName("queryserver"))

	setupLog.Info("starting query server")
	if err := engine.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		setupLog.Error(err, "query server stopped with an error")
		os.Exit(1)
	}
}
