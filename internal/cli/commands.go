package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"PortfolioMonitor/internal/domain"
	"PortfolioMonitor/internal/infrastructure/notify"
	"PortfolioMonitor/internal/usecase"
)

func newRunCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring cycle and send alerts",
		Example: `  portfoliomonitor run
  portfoliomonitor run --company Finch
  portfoliomonitor run --fund "FUND I"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			company, _ := cmd.Flags().GetString("company")
			fund, _ := cmd.Flags().GetString("fund")
			if company != "" && fund != "" {
				return fmt.Errorf("--company and --fund are mutually exclusive")
			}

			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			var (
				report  usecase.RunReport
				results []usecase.ChannelResult
				runErr  error
			)
			if fund != "" {
				report, results, runErr = a.RunFund(cmd.Context(), fund)
			} else {
				report, results, runErr = a.Run(cmd.Context(), company)
			}

			if output.IsJSON() {
				if err := output.JSON(runSummary(report, results, runErr)); err != nil {
					return err
				}
				return runErr
			}

			printReport(output, report, results)
			return runErr
		},
	}
	cmd.Flags().StringP("company", "c", "", "only monitor this company")
	cmd.Flags().StringP("fund", "f", "", "only monitor the companies of this fund")
	return cmd
}

type channelJSON struct {
	Channel   string `json:"channel"`
	Delivered int    `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type entityJSON struct {
	usecase.EntityReport
	Error string `json:"error,omitempty"`
}

func runSummary(report usecase.RunReport, results []usecase.ChannelResult, err error) map[string]any {
	entities := make([]entityJSON, 0, len(report.Entities))
	for _, e := range report.Entities {
		ej := entityJSON{EntityReport: e}
		if e.Err != nil {
			ej.Error = e.Err.Error()
		}
		entities = append(entities, ej)
	}
	channels := make([]channelJSON, 0, len(results))
	for _, r := range results {
		cj := channelJSON{Channel: r.Channel, Delivered: r.Delivered}
		if r.Err != nil {
			cj.Error = r.Err.Error()
		}
		channels = append(channels, cj)
	}
	out := map[string]any{
		"run_id":       report.RunID,
		"started":      report.Started,
		"finished":     report.Finished,
		"new_mentions": report.Stored(),
		"entities":     entities,
		"channels":     channels,
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

func printReport(output *Output, report usecase.RunReport, results []usecase.ChannelResult) {
	output.Bold("Run %s", report.RunID)
	tw := output.Table("COMPANY", "FETCHED", "ACCEPTED", "NEW", "DUPLICATES", "ERROR")
	for _, e := range report.Entities {
		errText := ""
		if e.Err != nil {
			errText = e.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t\n", e.Entity, e.Fetched, e.Accepted, e.Stored, e.Duplicates, errText)
	}
	_ = tw.Flush()

	output.Println()
	if report.Stored() == 0 {
		output.Dim("No new mentions")
	} else {
		output.Success("%d new mentions in %s", report.Stored(), report.Finished.Sub(report.Started).Round(time.Millisecond))
	}
	for _, r := range results {
		if r.Err != nil {
			output.Warning("alert channel %s failed: %v", r.Channel, r.Err)
			continue
		}
		output.Dim("alert channel %s: %d delivered", r.Channel, r.Delivered)
	}
}

func newMonitorCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run monitoring cycles on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.Monitor(cmd.Context())
		},
	}
}

func newServeCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}

func newStatsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show mention statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			st, err := a.Store().Statistics(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(st)
			}

			output.Bold("Mention statistics")
			output.Printf("  Total mentions:   %d\n", st.Total)
			output.Printf("  Last %s: %d\n", st.RecentWindow, st.Recent)
			output.Println()

			tw := output.Table("COMPANY", "MENTIONS", "AVG SENTIMENT")
			for _, name := range sortedKeys(st.ByEntity) {
				avg := "n/a"
				if v, ok := st.AverageSentiment[name]; ok {
					avg = fmt.Sprintf("%.2f", v)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t\n", name, st.ByEntity[name], avg)
			}
			_ = tw.Flush()

			output.Println()
			tw = output.Table("SOURCE", "MENTIONS")
			for _, name := range sortedKeys(st.BySource) {
				fmt.Fprintf(tw, "%s\t%d\t\n", name, st.BySource[name])
			}
			return tw.Flush()
		},
	}
}

func newRecentCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List mentions stored in the last hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, _ := cmd.Flags().GetInt("hours")
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive")
			}
			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			mentions, err := a.Store().Recent(cmd.Context(), time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			return printMentions(NewOutput(cmd), fmt.Sprintf("Mentions in the last %dh", hours), mentions)
		},
	}
	cmd.Flags().Int("hours", 24, "trailing window in hours")
	return cmd
}

func newCompanyCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company NAME",
		Short: "List stored mentions of one company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			entity, err := rt.Config.Entity(args[0])
			if err != nil {
				return err
			}
			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			mentions, err := a.Store().ByEntity(cmd.Context(), entity.Name, limit)
			if err != nil {
				return err
			}
			return printMentions(NewOutput(cmd), entity.Name, mentions)
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "maximum mentions to show (0 for all)")
	return cmd
}

func printMentions(output *Output, title string, mentions []domain.Mention) error {
	if output.IsJSON() {
		return output.JSON(mentions)
	}
	output.Bold("%s (%d)", title, len(mentions))
	for _, m := range mentions {
		output.Printf("\n%s %s\n", notify.Emoji(m.Sentiment), m.Title)
		output.Dim("  %s | %s | %s", m.Entity, m.Source, m.CreatedAt.Local().Format(time.DateTime))
		if m.Link != "" {
			output.Printf("  %s\n", m.Link)
		}
	}
	return nil
}

func newPurgeCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stored false positives",
		Long: `Delete stored mentions whose title or content contains one of the patterns.

Without --company every company's configured exclusion terms are applied. With --company
and no --pattern that company's exclusion terms are used.`,
		Example: `  portfoliomonitor purge
  portfoliomonitor purge --company Finch
  portfoliomonitor purge --company Cerebra --pattern "cerebral palsy"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			company, _ := cmd.Flags().GetString("company")
			patterns, _ := cmd.Flags().GetStringSlice("pattern")
			if company == "" && len(patterns) > 0 {
				return fmt.Errorf("--pattern requires --company")
			}

			a, err := rt.Application(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			removed := map[string]int64{}
			if company == "" {
				if removed, err = a.Purge().PurgeAll(cmd.Context()); err != nil {
					return err
				}
			} else {
				entity, err := rt.Config.Entity(company)
				if err != nil {
					return err
				}
				n, err := a.Purge().Purge(cmd.Context(), entity.Name, patterns)
				if err != nil {
					return err
				}
				removed[entity.Name] = n
			}

			if output.IsJSON() {
				return output.JSON(removed)
			}
			var total int64
			for _, name := range sortedKeys(removed) {
				total += removed[name]
				if removed[name] > 0 {
					output.Printf("  %s: %d removed\n", name, removed[name])
				}
			}
			output.Success("Removed %d mentions", total)
			return nil
		},
	}
	cmd.Flags().StringP("company", "c", "", "company to clean up")
	cmd.Flags().StringSlice("pattern", nil, "case-insensitive pattern (repeatable)")
	return cmd
}

func newEntitiesCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List monitored companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			entities := rt.Config.MonitoredEntities()
			if output.IsJSON() {
				return output.JSON(entities)
			}

			output.Bold("Monitoring %d companies", len(entities))
			tw := output.Table("COMPANY", "FUND", "KEYWORDS")
			for _, e := range entities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\n", e.Name, e.Fund, strings.Join(e.Keywords, ", "))
			}
			return tw.Flush()
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
