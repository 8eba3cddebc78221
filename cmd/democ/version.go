package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// GitCommit is set at build time with -ldflags "-X main.GitCommit=...".
var GitCommit string

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

func VersionWithCommit(gitCommit string) string {
	if len(gitCommit) >= 8 {
		return Version + "-" + gitCommit[:8]
	}
	return Version
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the democ version",
	Aliases: []string{"V"},
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("democ %s %s/%s %s\n", VersionWithCommit(GitCommit), runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}
