// Package main provides the entry point for the Good Measure giving service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/uabbasi/good-measure-giving/internal/log"
)

var logPretty bool

var rootCmd = &cobra.Command{
	Use:   "goodmeasure",
	Short: "Good Measure charity evaluation and giving-tracking service",
	Long: "Good Measure serves charity evaluation profiles with cited narratives and\n" +
		"tracks user giving against allocation plans. Subcommands cover the API\n" +
		"server and the data tooling around it.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		log.Configure(log.Config{Pretty: logPretty, Version: version})
	},
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "Human-readable console logs instead of JSON")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
