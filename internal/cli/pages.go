package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ashureev/vami-console/internal/pages"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show usage, agent status and the last week of calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := requireSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			loader, err := newLoader(newLogger(cmd.ErrOrStderr(), rootOpts.Verbose))
			if err != nil {
				return err
			}
			d, err := loader.Dashboard(ctx, s.Client())
			if err != nil {
				return apiError(err, "Failed to load dashboard")
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, d)
			}
			printDashboard(out, d)
			return nil
		},
		SilenceUsage: true,
	}
}

func printDashboard(out io.Writer, d *pages.Dashboard) {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	if d.ShowOnboardingBanner {
		yellow.Fprintln(out, "No agent yet. Run `vamictl onboard` to create one.")
	} else if d.Agent != nil {
		cyan.Fprintf(out, "Agent %s", d.Agent.AgentName)
		fmt.Fprintf(out, " (%s)", d.Agent.Status)
		if d.Agent.PhoneNumber != "" {
			fmt.Fprintf(out, " %s", d.Agent.PhoneNumber)
		}
		fmt.Fprintln(out)
	}

	if d.Usage != nil {
		fmt.Fprintf(out, "Minutes: %.0f of %d (%d%%)\n", d.Usage.MinutesUsed, d.Usage.MinutesLimit, d.UsagePercent)
		if d.Usage.PercentageUsed > pages.UsageWarningPercent {
			yellow.Fprintln(out, "  Approaching your plan limit.")
		}
	}
	if d.Stats != nil {
		fmt.Fprintf(out, "Last %d days: %d calls, %d%% successful\n", pages.DashboardStatsDays, d.Stats.TotalCalls, d.SuccessRate)
	}
	printSectionErrors(out, d.Errors)
}

// CallsOptions holds flags for the calls command.
type CallsOptions struct {
	Filter string
}

// NewCallsCommand creates the calls command.
func NewCallsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallsOptions{}

	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recent calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := pages.ParseFilter(opts.Filter)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := requireSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			loader, err := newLoader(newLogger(cmd.ErrOrStderr(), rootOpts.Verbose))
			if err != nil {
				return err
			}
			calls, err := loader.Calls(ctx, s.Client(), filter)
			if err != nil {
				return apiError(err, "Failed to load conversations")
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, calls)
			}
			printCalls(out, calls)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "all", "which calls to show (all|successful|failed)")

	return cmd
}

func printCalls(out io.Writer, c *pages.Calls) {
	fmt.Fprintf(out, "%d calls, %d successful, avg %d min\n", c.Total, c.Successful, c.AvgMinutes)
	if len(c.Rows) == 0 {
		fmt.Fprintln(out, "No calls.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tDURATION\tOUTCOME\tSUMMARY")
		for _, row := range c.Rows {
			outcome := row.CallSuccessful
			if outcome == "" {
				outcome = "unknown"
			}
			summary := row.Title
			if summary == "" {
				summary = row.Summary
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.CreatedAt.Format("2006-01-02 15:04"), row.DurationLabel, outcome, summary)
		}
		tw.Flush()
	}
	printSectionErrors(out, c.Errors)
}

func printSectionErrors(out io.Writer, errs pages.Errors) {
	sections := make([]string, 0, len(errs))
	for section := range errs {
		sections = append(sections, section)
	}
	sort.Strings(sections)
	for _, section := range sections {
		color.New(color.FgRed).Fprintf(out, "! %s\n", errs[section])
	}
}
