// Package main is the entry point for the worklog ingestion pipeline.
//
//	@title			worklog-ingest admin API
//	@version		1.0
//	@description	Operator-facing control plane for the worklog ingestion pipeline.
//
//	@license.name	MIT
//
//	@BasePath	/
//	@schemes	http
//
//	@tag.name			health
//	@tag.description	Liveness endpoints
//	@tag.name			status
//	@tag.description	Last batch run summary
//	@tag.name			batch
//	@tag.description	Out-of-band batch run triggers
//	@tag.name			progress
//	@tag.description	Streaming per-session progress events
package main

import (
	"fmt"
	"os"

	"github.com/brianly1003/worklog-ingest/cmd/worklog/cmd"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, buildTime, gitCommit)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
