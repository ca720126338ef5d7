package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the catalogue for schema violations, dangling prerequisites and cycles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, violations, err := g.readDocument(cmd.Context())
			if err != nil {
				return err
			}
			cat, err := curriculum.BuildCatalogue(doc)
			if err != nil {
				return err
			}
			report := curriculum.Validate(cat)
			out := cmd.OutOrStdout()

			if g.json {
				if err := writeJSON(out, map[string]any{
					"version":           cat.Version(),
					"topics":            report.TopicsTotal,
					"gap_patterns":      report.PatternsSeen,
					"schema_violations": violations,
					"dangling":          report.Dangling,
					"cycle_topics":      report.CycleTopics,
					"problems":          report.Problems,
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Catalogue %s: %d topics, %d gap patterns\n", cat.Version(), report.TopicsTotal, report.PatternsSeen)

				files := make([]string, 0, len(violations))
				for f := range violations {
					files = append(files, f)
				}
				slices.Sort(files)
				for _, f := range files {
					fmt.Fprintf(out, "skipped %s:\n", f)
					for _, v := range violations[f] {
						fmt.Fprintf(out, "  %s\n", v)
					}
				}
				if err := report.Err(); err != nil {
					fmt.Fprintln(out, err)
				}
			}

			if !report.OK() || len(violations) > 0 {
				return fmt.Errorf("catalogue has defects")
			}
			if !g.json {
				fmt.Fprintln(out, "OK")
			}
			return nil
		},
	}
}
