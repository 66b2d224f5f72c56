package events

// Subjects for job lifecycle events.
const (
	SubjectJobSubmitted = "timecards.jobs.submitted"
	SubjectJobUpdated   = "timecards.jobs.updated"
	SubjectReviewReady  = "timecards.jobs.review_ready"
)

// JobSubmissionMessage asks the processing instance to create a job.
type JobSubmissionMessage struct {
	Type       string `json:"type"`
	FileName   string `json:"file_name"`
	FileSize   int64  `json:"file_size"`
	PayloadRef string `json:"payload_ref"`
	Priority   string `json:"priority"`
}

// JobStatusMessage reports a job's externally visible state change.
type JobStatusMessage struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}
