package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/uabbasi/good-measure-giving/internal/schemas"
)

var validateRaw bool

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate charity data files against the JSON Schemas",
	Long: `Validate every charity profile under a converted data dir (default ./data)
against the embedded charity-profile schema. With --raw the directory is
treated as raw pipeline output and its *.json files are validated against
the raw-evaluation schema instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateRaw, "raw", false, "Validate raw pipeline records instead of converted profiles")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	dir := "./data"
	if len(args) == 1 {
		dir = args[0]
	}

	schema := schemas.CharityProfile
	pattern := filepath.Join(dir, "charities", "charity-*.json")
	if validateRaw {
		schema = schemas.RawEvaluation
		pattern = filepath.Join(dir, "*.json")
	}

	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		fmt.Printf("no files matching %s\n", pattern)
		return nil
	}
	sort.Strings(files)

	invalid := 0
	for _, file := range files {
		if err := schemas.ValidateFile(schema, file); err != nil {
			fmt.Printf("✗ %s: %v\n", filepath.Base(file), err)
			invalid++
			continue
		}
		fmt.Printf("✓ %s\n", filepath.Base(file))
	}

	fmt.Printf("validated %d files, %d invalid\n", len(files), invalid)
	if invalid > 0 {
		return fmt.Errorf("%d files failed validation", invalid)
	}
	return nil
}
