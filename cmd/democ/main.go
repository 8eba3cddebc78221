package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(accountCmd)
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(versionCmd)
	clCmd.AddCommand(pubkeyCmd)
	clCmd.AddCommand(submitCmd)
	clCmd.AddCommand(voteCmd)
	clCmd.AddCommand(updateCmd)
	clCmd.AddCommand(cancelCmd)
	clCmd.AddCommand(communityCmd)
	clCmd.AddCommand(reputationCmd)
	clCmd.AddCommand(queryCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
