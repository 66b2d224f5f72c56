package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
)

var submitPriority string

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Upload a timecard document and enqueue a processing job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var job jobs.Job
		if err := client.upload("/api/jobs", args[0], submitPriority, &job); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(job)
			return nil
		}
		fmt.Printf("Submitted %s (%s, priority %s)\n", job.ID, job.FileName, job.Priority)
		return nil
	},
}

var (
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/jobs?"
		if listStatus != "" {
			path += "status=" + listStatus + "&"
		}
		if listLimit > 0 {
			path += fmt.Sprintf("limit=%d", listLimit)
		}
		var resp struct {
			Jobs  []*jobs.Job `json:"jobs"`
			Count int         `json:"count"`
		}
		if err := client.doJSON(http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(resp.Jobs)
			return nil
		}
		for _, j := range resp.Jobs {
			fmt.Printf("%s  %-15s  %-6s  progress=%3d%%  retries=%d  %s\n",
				j.ID, j.Status, j.Priority, j.Progress, j.RetryCount, j.FileName)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one job with its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var job jobs.Job
		if err := client.doJSON(http.MethodGet, "/api/jobs/"+args[0], nil, &job); err != nil {
			return err
		}
		printJSON(job)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job that is still pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var job jobs.Job
		if err := client.doJSON(http.MethodPost, "/api/jobs/"+args[0]+"/cancel", nil, &job); err != nil {
			return err
		}
		fmt.Printf("Cancelled %s\n", job.ID)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <job-id>",
	Short: "Request cooperative stop of a processing job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.doJSON(http.MethodPost, "/api/jobs/"+args[0]+"/stop", nil, nil); err != nil {
			return err
		}
		fmt.Printf("Stop requested for %s\n", args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <job-id>...",
	Short: "Delete finished jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := client.doJSON(http.MethodDelete, "/api/jobs/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		}
		var resp struct {
			Deleted []string          `json:"deleted"`
			Failed  map[string]string `json:"failed"`
		}
		body := map[string][]string{"job_ids": args}
		if err := client.doJSON(http.MethodPost, "/api/jobs/bulk-delete", body, &resp); err != nil {
			return err
		}
		fmt.Printf("Deleted %d of %d\n", len(resp.Deleted), len(args))
		for id, msg := range resp.Failed {
			fmt.Printf("  %s: %s\n", id, msg)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print queue statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]interface{}
		if err := client.doJSON(http.MethodGet, "/api/queue/stats", nil, &resp); err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitPriority, "priority", "normal", "Job priority (low|normal|high|urgent)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status, comma separated")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Max rows")
	rootCmd.AddCommand(submitCmd, listCmd, getCmd, cancelCmd, stopCmd, deleteCmd, statsCmd)
}
