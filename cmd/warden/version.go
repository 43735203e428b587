package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the warden release version, overridable at build time with
// -ldflags "-X main.Version=...".
var Version = "0.2.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the warden version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("warden %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
