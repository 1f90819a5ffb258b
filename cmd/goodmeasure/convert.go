package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uabbasi/good-measure-giving/internal/convert"
)

var (
	convertInput   string
	convertOutput  string
	convertWorkers int
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert raw evaluation records into the public data dir",
	Long: `Convert the evaluation pipeline's raw JSON records into the public data
dir the server exposes: data/charities.json plus one
data/charities/charity-{ein}.json per charity, with derived signals and
deep-linked citations. Reruns over unchanged input are byte-identical.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "./raw", "Directory of raw evaluation records")
	convertCmd.Flags().StringVar(&convertOutput, "output", "./data", "Public data directory to write")
	convertCmd.Flags().IntVar(&convertWorkers, "workers", 0, "Parallel conversions (0 uses the default)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, _ []string) error {
	summary, err := convert.Run(cmd.Context(), convert.Options{
		InputDir:  convertInput,
		OutputDir: convertOutput,
		Workers:   convertWorkers,
	})
	if err != nil {
		return err
	}

	fmt.Println(summary.String())
	if summary.Failed > 0 {
		return fmt.Errorf("%d records failed to convert", summary.Failed)
	}
	return nil
}
