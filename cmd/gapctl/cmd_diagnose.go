package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-gapfinder/internal/diagnosis"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/config"
)

// engineFlags override the LEARN_ENGINE_* settings for one run.
type engineFlags struct {
	weekCap       float64
	hoursPerWeek  float64
	includeTarget bool
	reportCycles  bool
}

func (e *engineFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&e.weekCap, "week-cap", 0, "Hours per schedule week (default $LEARN_ENGINE_WEEK_CAP_HOURS or 6)")
	f.Float64Var(&e.hoursPerWeek, "hours-per-week", 0, "Study hours per week for the estimate (default $LEARN_ENGINE_HOURS_PER_WEEK or 3)")
	f.BoolVar(&e.includeTarget, "include-target", false, "Count the target topic's hours in the weeks estimate")
	f.BoolVar(&e.reportCycles, "report-cycles", false, "Warn about prerequisite cycles in the audited region")
}

func (e *engineFlags) config(cmd *cobra.Command) (diagnosis.Config, error) {
	env, err := config.Load()
	if err != nil {
		return diagnosis.Config{}, err
	}
	cfg := diagnosis.Config{
		ScheduleWeekCapHours:   env.Engine.ScheduleWeekCapHours,
		EstimateHoursPerWeek:   env.Engine.EstimateHoursPerWeek,
		EstimateIncludesTarget: env.Engine.EstimateIncludesTarget,
		ReportCycles:           env.Engine.ReportCycles,
	}
	if cmd.Flags().Changed("week-cap") {
		cfg.ScheduleWeekCapHours = e.weekCap
	}
	if cmd.Flags().Changed("hours-per-week") {
		cfg.EstimateHoursPerWeek = e.hoursPerWeek
	}
	if cmd.Flags().Changed("include-target") {
		cfg.EstimateIncludesTarget = e.includeTarget
	}
	if cmd.Flags().Changed("report-cycles") {
		cfg.ReportCycles = e.reportCycles
	}
	return cfg, nil
}

func (g *globalFlags) engine(cmd *cobra.Command, e *engineFlags) (*diagnosis.Engine, error) {
	cat, err := g.loadCatalogue(cmd.Context())
	if err != nil {
		return nil, err
	}
	cfg, err := e.config(cmd)
	if err != nil {
		return nil, err
	}
	return diagnosis.NewEngine(cat, cfg), nil
}

func newDiagnoseCmd(g *globalFlags) *cobra.Command {
	var (
		ef      engineFlags
		topic   string
		mastery string
		target  string
	)

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Audit the prerequisites of a topic to a depth set by mastery",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := diagnosis.ParseMasteryLevel(mastery)
			if err != nil {
				return err
			}
			engine, err := g.engine(cmd, &ef)
			if err != nil {
				return err
			}

			out := engine.DiagnoseByLevel(diagnosis.DiagnosticInput{
				CurrentTopicCode: topic,
				MasteryLevel:     level,
				TargetTopicCode:  target,
			})
			if g.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&topic, "topic", "", "Current topic code (required)")
	f.StringVar(&mastery, "mastery", "mid", "Mastery of the current topic: high, mid or low")
	f.StringVar(&target, "target", "", "Target topic code (defaults to the current topic)")
	ef.register(cmd)
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	var (
		ef       engineFlags
		target   string
		known    string
		gapsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan the route to a target topic given the topics already known",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := g.engine(cmd, &ef)
			if err != nil {
				return err
			}
			knownCodes := splitCodes(known)
			w := cmd.OutOrStdout()

			if gapsOnly {
				gaps, err := engine.DiagnoseByKnownSet(target, knownCodes)
				if err != nil {
					return err
				}
				if g.json {
					return writeJSON(w, gaps)
				}
				printGaps(w, gaps)
				return nil
			}

			out := engine.PlanKnownSet(target, knownCodes)
			if g.json {
				return writeJSON(w, out)
			}
			printOutput(w, out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&target, "target", "", "Target topic code (required)")
	f.StringVar(&known, "known", "", "Comma-separated codes of topics already mastered")
	f.BoolVar(&gapsOnly, "gaps-only", false, "Only list the missing topics, without a schedule")
	ef.register(cmd)
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func printOutput(w io.Writer, out diagnosis.DiagnosticOutput) {
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if out.GradeGapLabel == "" && len(out.CurriculumSchedule) == 0 {
		return
	}

	fmt.Fprintf(w, "Grade gap:       %s\n", out.GradeGapLabel)
	fmt.Fprintf(w, "Start with:      %s\n", out.RecommendedStartTopic)
	fmt.Fprintf(w, "Estimated weeks: %d\n\n", out.EstimatedWeeks)

	printGaps(w, out.MissingPrerequisites)

	fmt.Fprintln(w, "\nSchedule:")
	for _, week := range out.CurriculumSchedule {
		fmt.Fprintf(w, "  Week %d (%gh): %s\n", week.WeekNumber, week.EstimatedHours, strings.Join(week.TopicNames, ", "))
	}
	printList(w, "\nTutor tips", out.TutorTips)
}

func printGaps(w io.Writer, gaps []diagnosis.Gap) {
	if len(gaps) == 0 {
		fmt.Fprintln(w, "No missing prerequisites.")
		return
	}
	fmt.Fprintf(w, "%-18s  %-32s  %-9s  %s\n", "Code", "Name", "Grade", "Severity")
	printRule(w, 75)
	for _, gap := range gaps {
		fmt.Fprintf(w, "%-18s  %-32s  %-9s  %s\n", gap.Topic.Code, gap.Topic.DisplayName, gap.Topic.GradeLevel, gap.Severity)
	}
}
