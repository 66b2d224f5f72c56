package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
)

var reviewComment string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the human review queue",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs awaiting review, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Jobs  []*jobs.Job `json:"jobs"`
			Count int         `json:"count"`
		}
		if err := client.doJSON(http.MethodGet, "/api/review-queue", nil, &resp); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(resp.Jobs)
			return nil
		}
		for _, j := range resp.Jobs {
			verdict := ""
			issues := 0
			if j.Result != nil {
				verdict = string(j.Result.Report.Verdict)
				issues = len(j.Result.Report.Issues)
			}
			fmt.Printf("%s  %-16s  issues=%d  %s\n", j.ID, verdict, issues, j.FileName)
		}
		return nil
	},
}

func decide(ids []string, approve bool) error {
	if len(ids) == 1 {
		body := map[string]interface{}{"approve": approve, "comment": reviewComment}
		var job jobs.Job
		if err := client.doJSON(http.MethodPost, "/api/review-queue/"+ids[0]+"/decide", body, &job); err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", job.ID, job.Status)
		return nil
	}
	body := map[string]interface{}{"job_ids": ids, "approve": approve, "comment": reviewComment}
	var resp struct {
		Succeeded []string          `json:"succeeded"`
		Failed    map[string]string `json:"failed"`
	}
	if err := client.doJSON(http.MethodPost, "/api/review-queue/bulk-decide", body, &resp); err != nil {
		return err
	}
	fmt.Printf("Decided %d of %d\n", len(resp.Succeeded), len(ids))
	for id, msg := range resp.Failed {
		fmt.Printf("  %s: %s\n", id, msg)
	}
	return nil
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <job-id>...",
	Short: "Approve parked jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args, true)
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <job-id>...",
	Short: "Reject parked jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(args, false)
	},
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewComment, "comment", "", "Reviewer comment recorded on the job")
	reviewCmd.AddCommand(reviewListCmd, reviewApproveCmd, reviewRejectCmd)
	rootCmd.AddCommand(reviewCmd)
}
