package main

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/phrazzld/jd-tailor/internal/dashboard"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var report bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show server cache and task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var snap dashboard.Snapshot
			if err := client.get(cmd.Context(), "/api/performance/stats", &snap); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:  %s files, %s, %s expired, hit rate %.1f%%\n",
				humanize.Comma(int64(snap.Cache.TotalFiles)),
				humanize.Bytes(uint64(snap.Cache.TotalSizeBytes)),
				humanize.Comma(int64(snap.Cache.ExpiredFiles)),
				snap.Cache.HitRate*100)
			fmt.Fprintf(out, "Tasks:  %s total, %d queued, %d workers, %.0f%% of recent tasks completed\n",
				humanize.Comma(int64(snap.Tasks.TotalTasks)),
				snap.Tasks.QueueDepth,
				snap.Tasks.Workers,
				snap.Tasks.RecentCompletionRate*100)

			statuses := make([]string, 0, len(snap.Tasks.ByStatus))
			for s := range snap.Tasks.ByStatus {
				statuses = append(statuses, string(s))
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Fprintf(out, "  %-10s %d\n", s, snap.Tasks.ByStatus[task.TaskStatus(s)])
			}

			if !report {
				return nil
			}

			var rep dashboard.Report
			if err := client.get(cmd.Context(), "/api/performance/report", &rep); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nUptime: %.1fh, %d errors\n", rep.Summary.UptimeHours, rep.Summary.TotalErrors())
			if tr := rep.Trends; tr.Samples >= 2 {
				fmt.Fprintf(out, "Trend over %.1fh (%d samples): cache %+d files, hit rate %+.1f%%, %+d tasks\n",
					tr.Span, tr.Samples, tr.CacheFiles, tr.CacheHitRate*100, tr.TotalTasks)
			}

			if len(rep.Summary.ResponseTime) > 0 {
				ops := make([]string, 0, len(rep.Summary.ResponseTime))
				for op := range rep.Summary.ResponseTime {
					ops = append(ops, op)
				}
				sort.Strings(ops)

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "OPERATION\tCOUNT\tAVG\tMIN\tMAX")
				for _, op := range ops {
					s := rep.Summary.ResponseTime[op]
					fmt.Fprintf(w, "%s\t%d\t%.3fs\t%.3fs\t%.3fs\n", op, s.Count, s.Avg, s.Min, s.Max)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			fmt.Fprintln(out, "\nRecommendations:")
			for _, r := range rep.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&report, "report", false, "include operation timings and recommendations")
	return cmd
}

func newCleanupCmd(opts *globalOptions) *cobra.Command {
	var retentionHours float64

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge expired cache entries and old finished tasks on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/performance/cleanup"
			if cmd.Flags().Changed("retention-hours") {
				path += "?retention_hours=" + strconv.FormatFloat(retentionHours, 'f', -1, 64)
			}

			var res dashboard.CleanupResult
			if err := newAPIClient(opts).post(cmd.Context(), path, nil, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cache entries and %s tasks\n",
				humanize.Comma(int64(res.CacheCleaned)),
				humanize.Comma(int64(res.TasksCleaned)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&retentionHours, "retention-hours", 0, "remove finished tasks older than this (0 removes all)")
	return cmd
}
