package main

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/pkg/schema"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and schema version information",
		Long: `The version command prints the slabctl build, the Go toolchain it was
built with, and the schema versions it can load.

Example:
  slabctl version
  slabctl version --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	}
}

// VersionInfo is everything version prints.
type VersionInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	Built         string `json:"built"`
	Go            string `json:"go"`
	Schema        string `json:"schema"`
	SchemaSupport string `json:"schema_support"`
}

func buildVersion() VersionInfo {
	info := VersionInfo{
		Version:       version,
		Commit:        commit,
		Built:         date,
		Go:            runtime.Version(),
		Schema:        schema.CurrentVersion,
		SchemaSupport: schema.SupportedVersions,
	}
	// Fall back to VCS stamps for plain `go build` / `go install` binaries.
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Built == "unknown":
			info.Built = s.Value
		}
	}
	return info
}

func runVersion() error {
	info := buildVersion()
	if jsonOut {
		return printJSON(info)
	}
	printInfo("slabctl %s\n", info.Version)
	printInfo("  commit: %s\n", info.Commit)
	printInfo("  built:  %s (%s)\n", info.Built, info.Go)
	printInfo("  schema: %s (loads %s)\n", info.Schema, info.SchemaSupport)
	return nil
}
