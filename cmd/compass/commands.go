package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/legacy-compass/farm-ingest/internal/export"
	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/opportunity"
)

func newParseCmd() *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "parse <file.csv>",
		Short: "Print normalized records, stats and warnings as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseFile(args[0], opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	addParseFlags(cmd, &opts)
	return cmd
}

func newStatsCmd() *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "stats <file.csv>",
		Short: "Print import stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseFile(args[0], opts)
			if err != nil {
				return err
			}

			s := result.Stats
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "rows\t%d\n", s.TotalRows)
			fmt.Fprintf(w, "parsed\t%d\n", s.Parsed)
			fmt.Fprintf(w, "rejected\t%d\n", s.Rejected)
			fmt.Fprintf(w, "with coordinates\t%d\n", s.WithCoordinates)
			fmt.Fprintf(w, "collisions resolved\t%d\n", s.CollisionsResolved)
			fmt.Fprintf(w, "absentee\t%d (%.1f%%)\n", s.AbsenteeCount, s.AbsenteePercent)
			fmt.Fprintf(w, "owner occupied\t%d\n", s.OwnerOccupiedCount)
			fmt.Fprintf(w, "high equity\t%d\n", s.HighEquityCount)
			fmt.Fprintf(w, "average equity\t%.1f%%\n", s.AverageEquity)
			fmt.Fprintf(w, "average years owned\t%.1f\n", s.AverageYearsOwned)
			fmt.Fprintf(w, "hot / warm / cold\t%d / %d / %d\n", s.HotCount, s.WarmCount, s.ColdCount)
			if result.NextOffset > 0 {
				fmt.Fprintf(w, "next offset\t%d of %d\n", result.NextOffset, result.TotalInBatch)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
			}
			return nil
		},
	}
	addParseFlags(cmd, &opts)
	return cmd
}

func newHotCmd() *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "hot <file.csv>",
		Short: "List the top absentee, high-equity, long-held properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseFile(args[0], opts)
			if err != nil {
				return err
			}

			hot := opportunity.HotOpportunities(result.Records)
			if len(hot) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no hot opportunities")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tADDRESS\tOWNER\tEQUITY\tYEARS\tTAGS")
			for _, p := range hot {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%d\t%s\n",
					p.ID, p.Address.Full, p.Owner.FullName,
					p.Financial.EquityPercent, p.Financial.YearsOwned,
					strings.Join(p.Activity.Tags, ","))
			}
			return w.Flush()
		},
	}
	addParseFlags(cmd, &opts)
	return cmd
}

func newExportCmd() *cobra.Command {
	var opts parseOptions
	var out string

	cmd := &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write normalized records as a flat CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseFile(args[0], opts)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), result.Records)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WriteCSV(f, result.Records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", len(result.Records), out)
			return nil
		},
	}
	addParseFlags(cmd, &opts)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

func newChangesCmd() *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "changes <previous-export.csv> <file.csv>",
		Short: "Compare a file with an earlier export: new properties, title transfers, value changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			previous, err := export.ReadRecords(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("read export %s: %w", args[0], err)
			}

			result, err := parseFile(args[1], opts)
			if err != nil {
				return err
			}

			stored := make(map[string]models.CanonicalProperty, len(previous))
			for _, p := range previous {
				stored[p.ID] = p
			}
			changes := opportunity.CountChanges(stored, result.Records)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "new\t%d\n", changes.New)
			fmt.Fprintf(w, "title transfers\t%d\n", changes.TitleTransfers)
			fmt.Fprintf(w, "value changes\t%d\n", changes.ValueChanges)
			fmt.Fprintf(w, "unchanged\t%d\n", changes.Unchanged)
			return w.Flush()
		},
	}
	addParseFlags(cmd, &opts)
	return cmd
}

func newRolesCmd() *cobra.Command {
	var rolesFile string

	cmd := &cobra.Command{
		Use:   "roles <file.csv>",
		Short: "Show which header each column role was assigned to, in claim order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns, err := loadPatterns(rolesFile)
			if err != nil {
				return err
			}
			result, err := parseFile(args[0], parseOptions{limit: 1, rolesFile: rolesFile})
			if err != nil {
				return err
			}
			roles := result.Roles
			headers := roles.Headers()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tCOLUMN\tHEADER")
			for _, role := range patterns.Priority() {
				idx, ok := roles.Index(role)
				if !ok {
					fmt.Fprintf(w, "%s\t-\t-\n", role)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", role, idx, headers[idx])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, warning := range result.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warning)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rolesFile, "roles", "", "JSON file with tenant role overrides")
	return cmd
}
