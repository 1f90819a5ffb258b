package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the goodmeasure version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("goodmeasure " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
