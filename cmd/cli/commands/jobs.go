package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/video"
)

// Flag names
const (
	flagWaitTimeout = "wait-timeout"
	flagInterval    = "interval"
)

// jobOutput represents the filtered output for a job
type jobOutput struct {
	ID       uint   `json:"id"`
	RowIndex int    `json:"row_index"`
	Status   string `json:"status"`
	Prompt   string `json:"prompt"`
	VideoURL string `json:"video_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// jobListOutput represents the filtered output for a list of jobs
type jobListOutput struct {
	Jobs   []jobOutput      `json:"jobs"`
	Counts map[string]int64 `json:"counts"`
	Total  int              `json:"total"`
}

func toJobOutput(job models.VideoJob) jobOutput {
	out := jobOutput{
		ID:       job.ID,
		RowIndex: job.RowIndex,
		Status:   job.Status.String(),
		Prompt:   job.PromptUsed,
	}
	if job.VideoURL != nil {
		out.VideoURL = *job.VideoURL
	}
	if job.ErrorMessage != nil {
		out.Error = *job.ErrorMessage
	}
	return out
}

func newJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Follow video jobs",
	}
	jobsCmd.AddCommand(newListJobsCmd())
	jobsCmd.AddCommand(newGetJobCmd())
	jobsCmd.AddCommand(newJobStatusCmd())
	jobsCmd.AddCommand(newWaitJobCmd())
	return jobsCmd
}

func newListJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the jobs of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagProjectID)
			if err != nil {
				return err
			}

			resp, err := apiClient.ListProjectJobs(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error listing jobs: %w", err)
			}

			output := jobListOutput{
				Jobs:   make([]jobOutput, len(resp.Jobs)),
				Counts: make(map[string]int64, len(resp.Counts)),
				Total:  resp.Total,
			}
			for i, job := range resp.Jobs {
				output.Jobs[i] = toJobOutput(job)
			}
			for status, n := range resp.Counts {
				output.Counts[status.String()] = n
			}
			return printJSON(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().UintP(flagProjectID, "p", 0, "Project ID")
	markRequired(cmd, flagProjectID)
	return cmd
}

func newGetJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get the stored record of a job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagID)
			if err != nil {
				return err
			}

			job, err := apiClient.GetJob(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error fetching job: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), toJobOutput(job))
		},
	}
	cmd.Flags().UintP(flagID, "i", 0, "Job ID")
	markRequired(cmd, flagID)
	return cmd
}

func newJobStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check a job against the video provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagID)
			if err != nil {
				return err
			}

			status, err := apiClient.GetJobStatus(context.Background(), id)
			if err != nil {
				return fmt.Errorf("error checking job status: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
	cmd.Flags().UintP(flagID, "i", 0, "Job ID")
	markRequired(cmd, flagID)
	return cmd
}

func newWaitJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until a job has finished",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := getID(cmd, flagID)
			if err != nil {
				return err
			}
			timeout, err := cmd.Flags().GetDuration(flagWaitTimeout)
			if err != nil {
				return fmt.Errorf("error getting wait-timeout flag: %w", err)
			}
			interval, err := cmd.Flags().GetDuration(flagInterval)
			if err != nil {
				return fmt.Errorf("error getting interval flag: %w", err)
			}

			status, err := apiClient.WaitJob(context.Background(), id, timeout, interval)
			if err != nil {
				if status.JobID != 0 {
					_ = printJSON(cmd.OutOrStdout(), status)
				}
				return fmt.Errorf("error waiting for job: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
	cmd.Flags().UintP(flagID, "i", 0, "Job ID")
	cmd.Flags().Duration(flagWaitTimeout, video.DefaultMaxWait, "How long to wait before giving up")
	cmd.Flags().Duration(flagInterval, 10*time.Second, "How often the server polls the provider")
	markRequired(cmd, flagID)
	return cmd
}
