package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uabbasi/good-measure-giving/internal/linkcheck"
)

var (
	checklinksData    string
	checklinksOut     string
	checklinksWorkers int
	checklinksBrowser bool
	checklinksTimeout time.Duration
)

var checklinksCmd = &cobra.Command{
	Use:   "checklinks",
	Short: "Check every cited URL in the converted data",
	Long: `Fetch every distinct URL cited by the converted charity profiles and
classify it (ok, redirected, broken, unreachable). Writes linkcheck.json
and linkcheck.md reports to the output directory.`,
	RunE: runChecklinks,
}

func init() {
	checklinksCmd.Flags().StringVar(&checklinksData, "data", "./data", "Converted data directory to check")
	checklinksCmd.Flags().StringVar(&checklinksOut, "out", "./reports", "Report output directory (empty skips report files)")
	checklinksCmd.Flags().IntVar(&checklinksWorkers, "workers", 0, "Parallel fetches (0 uses the default)")
	checklinksCmd.Flags().BoolVar(&checklinksBrowser, "use-browser", false, "Render near-empty pages in a headless browser before judging them")
	checklinksCmd.Flags().DurationVar(&checklinksTimeout, "timeout", 0, "Per-request timeout (0 uses the default)")
	rootCmd.AddCommand(checklinksCmd)
}

func runChecklinks(cmd *cobra.Command, _ []string) error {
	report, err := linkcheck.Run(cmd.Context(), linkcheck.Options{
		DataDir:    checklinksData,
		OutputDir:  checklinksOut,
		Workers:    checklinksWorkers,
		UseBrowser: checklinksBrowser,
		Timeout:    checklinksTimeout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("checked %d urls: %d ok, %d redirected, %d broken, %d unreachable\n",
		len(report.Results), report.OK, report.Redirected, report.Broken, report.Unreachable)
	if problems := report.Problems(); len(problems) > 0 {
		return fmt.Errorf("%d citations need attention", len(problems))
	}
	return nil
}
