package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/jd-tailor/internal/skills"
	"github.com/phrazzld/jd-tailor/internal/task"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
)

// DefaultPollInterval is how often --wait checks the task status.
const DefaultPollInterval = time.Second

// submitResponse covers both the 200 (cached) and 202 (queued) answers.
type submitResponse struct {
	Cached bool            `json:"cached"`
	Result *skills.Result  `json:"result,omitempty"`
	TaskID string          `json:"task_id,omitempty"`
	Status task.TaskStatus `json:"status,omitempty"`
}

func newSkillsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Extract ranked skills from job descriptions",
	}

	var (
		file         string
		wait         bool
		pollInterval time.Duration
		waitTimeout  time.Duration
	)
	submitCmd := &cobra.Command{
		Use:   "submit [job-description]",
		Short: "Submit a job description for skills extraction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jd, err := textInput(cmd, args, file)
			if err != nil {
				return err
			}

			client := newAPIClient(opts)
			var resp submitResponse
			body := map[string]string{"job_description": jd}
			if err := client.post(cmd.Context(), "/api/jobs/skills", body, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resp.Cached {
				fmt.Fprintln(out, "Result served from cache.")
				return printSkills(cmd, resp.Result)
			}

			fmt.Fprintf(out, "Submitted task: %s (%s)\n", resp.TaskID, resp.Status)
			if !wait {
				return nil
			}

			rec, err := waitForTask(cmd.Context(), client, resp.TaskID, pollInterval, waitTimeout)
			if err != nil {
				return err
			}
			switch {
			case rec.Status == task.TaskStatusCompleted:
			case rec.Error != "":
				return fmt.Errorf("task %s %s: %s", rec.ID, rec.Status, rec.Error)
			default:
				return fmt.Errorf("task %s %s", rec.ID, rec.Status)
			}
			return printRecord(cmd, rec)
		},
	}
	submitCmd.Flags().StringVar(&file, "file", "", "read the job description from a file (- for stdin)")
	submitCmd.Flags().BoolVar(&wait, "wait", false, "wait for the task to finish and print its result")
	submitCmd.Flags().DurationVar(&pollInterval, "poll-interval", DefaultPollInterval, "how often to check the task while waiting")
	submitCmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 5*time.Minute, "give up waiting after this long")

	cmd.AddCommand(submitCmd)
	return cmd
}

var errTaskNotFinished = errors.New("task not finished")

// waitForTask polls the task until it reaches a terminal status or the
// timeout passes. API errors other than a still-running task stop the wait.
func waitForTask(ctx context.Context, client *apiClient, id string, interval, timeout time.Duration) (task.Record, error) {
	var rec task.Record

	b := retry.NewConstant(interval)
	b = retry.WithMaxDuration(timeout, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := client.get(ctx, "/api/tasks/"+id, &rec); err != nil {
			return err
		}
		if !rec.Status.IsTerminal() {
			return retry.RetryableError(errTaskNotFinished)
		}
		return nil
	})
	if errors.Is(err, errTaskNotFinished) {
		return rec, fmt.Errorf("task %s still %s after %s", id, rec.Status, timeout)
	}
	return rec, err
}

func printSkills(cmd *cobra.Command, result *skills.Result) error {
	out := cmd.OutOrStdout()
	if result == nil || len(result.JobSkillsRanked) == 0 {
		fmt.Fprintln(out, "No skills found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SKILL\tSECTION\tCONFIDENCE\tEVIDENCE")
	for _, s := range result.JobSkillsRanked {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", s.Canonical, s.Section, s.Confidence, strings.Join(s.Evidence, "; "))
	}
	return w.Flush()
}
