package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/spf13/cobra"
)

type taskList struct {
	Tasks []task.Record `json:"tasks"`
	Count int           `json:"count"`
}

func newTaskCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and cancel background tasks",
	}

	var (
		taskType    string
		recentHours float64
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if taskType != "" {
				q.Set("type", taskType)
			}
			if recentHours > 0 {
				q.Set("recent_hours", strconv.FormatFloat(recentHours, 'f', -1, 64))
			}
			path := "/api/tasks"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var list taskList
			if err := newAPIClient(opts).get(cmd.Context(), path, &list); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list.Tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROGRESS\tCREATED")
			for _, rec := range list.Tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%s\n",
					rec.ID, rec.Type, rec.Status, rec.Progress, humanize.Time(rec.CreatedAt))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&taskType, "type", "", "filter by task type")
	listCmd.Flags().Float64Var(&recentHours, "recent-hours", 0, "only tasks created in the last N hours")

	showCmd := &cobra.Command{
		Use:   "show [task-id]",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec task.Record
			if err := newAPIClient(opts).get(cmd.Context(), "/api/tasks/"+url.PathEscape(args[0]), &rec); err != nil {
				return err
			}
			return printRecord(cmd, rec)
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel [task-id]",
		Short: "Cancel a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(opts).delete(cmd.Context(), "/api/tasks/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled task: %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, cancelCmd)
	return cmd
}

func printRecord(cmd *cobra.Command, rec task.Record) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", rec.ID)
	fmt.Fprintf(out, "Type:     %s\n", rec.Type)
	fmt.Fprintf(out, "Status:   %s\n", rec.Status)
	fmt.Fprintf(out, "Progress: %.0f%%\n", rec.Progress)
	fmt.Fprintf(out, "Created:  %s (%s)\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(rec.CreatedAt))
	if d := rec.Duration(); d > 0 {
		fmt.Fprintf(out, "Duration: %s\n", d)
	}
	if rec.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", rec.Error)
	}
	if rec.Result != nil {
		data, err := json.MarshalIndent(rec.Result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Result:\n%s\n", data)
	}
	return nil
}
