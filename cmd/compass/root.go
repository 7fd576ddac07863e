package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/legacy-compass/farm-ingest/internal/ingest"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

type parseOptions struct {
	limit      int
	offset     int
	rolesFile  string
	sourceFile string
	asOf       string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "compass",
		Short:         "Normalize real-estate farm CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newParseCmd(),
		newStatsCmd(),
		newHotCmd(),
		newExportCmd(),
		newChangesCmd(),
		newRolesCmd(),
	)
	return root
}

func addParseFlags(cmd *cobra.Command, opts *parseOptions) {
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum data rows to process (0 = all)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Data rows to skip before processing")
	cmd.Flags().StringVar(&opts.rolesFile, "roles", "", "JSON file with tenant role overrides (pins and extra patterns)")
	cmd.Flags().StringVar(&opts.sourceFile, "source", "", "Source file label for synthesized ids (default: input file name)")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "Date (YYYY-MM-DD) used for years owned (default: today)")
}

// parseFile runs the engine over path with the flags in opts.
func parseFile(path string, opts parseOptions) (*ingest.Result, error) {
	if opts.limit < 0 || opts.offset < 0 {
		return nil, fmt.Errorf("--limit and --offset must be non-negative")
	}

	patterns, err := loadPatterns(opts.rolesFile)
	if err != nil {
		return nil, err
	}

	var now time.Time
	if opts.asOf != "" {
		now, err = time.Parse("2006-01-02", opts.asOf)
		if err != nil {
			return nil, fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	source := opts.sourceFile
	if source == "" {
		source = path
	}

	return ingest.NewEngine(patterns, 0).ParseReader(f, nil, ingest.Options{
		Limit:      opts.limit,
		Offset:     opts.offset,
		SourceFile: source,
		Now:        now,
	})
}

func loadPatterns(rolesFile string) (*schema.ResolvedPatterns, error) {
	if rolesFile == "" {
		return schema.Defaults(), nil
	}
	data, err := os.ReadFile(rolesFile)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	patterns, err := schema.Resolve(nil, json.RawMessage(data))
	if err != nil {
		return nil, fmt.Errorf("resolve roles file: %w", err)
	}
	return patterns, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
