package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
)

func newTopicsCmd(g *globalFlags) *cobra.Command {
	topics := &cobra.Command{
		Use:   "topics",
		Short: "Browse the topic catalogue",
	}
	topics.AddCommand(newTopicsListCmd(g), newTopicsShowCmd(g))
	return topics
}

func newTopicsListCmd(g *globalFlags) *cobra.Command {
	var grade, category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List topics (optionally filtered by grade or category)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := g.loadCatalogue(cmd.Context())
			if err != nil {
				return err
			}

			var list []curriculum.TopicNode
			switch {
			case grade != "" && category != "":
				return fmt.Errorf("use --grade or --category, not both")
			case grade != "":
				list = cat.ByGrade(grade)
			case category != "":
				c := curriculum.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q", category)
				}
				list = cat.ByCategory(c)
			default:
				list = cat.Topics()
			}

			out := cmd.OutOrStdout()
			if g.json {
				return writeJSON(out, list)
			}

			fmt.Fprintf(out, "%-18s  %-32s  %-9s  %-26s  %5s  %s\n",
				"Code", "Name", "Grade", "Category", "Hours", "Prerequisites")
			printRule(out, 115)
			for _, t := range list {
				name := t.DisplayName
				if len(name) > 32 {
					name = name[:29] + "..."
				}
				fmt.Fprintf(out, "%-18s  %-32s  %-9s  %-26s  %5g  %s\n",
					t.Code, name, t.GradeLevel, curriculum.CategoryDisplayName(t.Category),
					t.EstimatedHours, strings.Join(t.PrerequisiteCodes, ", "))
			}
			fmt.Fprintf(out, "\n%d topics\n", len(list))
			return nil
		},
	}

	cmd.Flags().StringVar(&grade, "grade", "", "Filter by grade label (e.g. middle-1)")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category (e.g. numbers-and-operations)")
	return cmd
}

func newTopicsShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show one topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := g.loadCatalogue(cmd.Context())
			if err != nil {
				return err
			}
			t, ok := cat.Topic(args[0])
			if !ok {
				return fmt.Errorf("topic %q not found", args[0])
			}

			out := cmd.OutOrStdout()
			if g.json {
				return writeJSON(out, t)
			}

			fmt.Fprintf(out, "%s  %s\n", t.Code, t.DisplayName)
			fmt.Fprintf(out, "Grade:       %s\n", t.GradeLevel)
			fmt.Fprintf(out, "Category:    %s\n", curriculum.CategoryDisplayName(t.Category))
			fmt.Fprintf(out, "Hours:       %g\n", t.EstimatedHours)
			fmt.Fprintf(out, "Difficulty:  %d\n", t.DifficultyRating)
			if len(t.PrerequisiteCodes) > 0 {
				names := make([]string, len(t.PrerequisiteCodes))
				for i, p := range t.PrerequisiteCodes {
					names[i] = cat.DisplayName(p)
				}
				fmt.Fprintf(out, "Requires:    %s\n", strings.Join(names, ", "))
			}
			printList(out, "Common gaps", t.CommonGapDescriptions)
			printList(out, "Tutor tips", t.TutorTips)
			return nil
		},
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
