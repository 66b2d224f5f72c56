package jobs

import (
	"fmt"
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// Status represents the current lifecycle state of a job.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusAwaitingReview Status = "awaiting_review"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// Terminal reports whether the status is an end state. Awaiting review is
// not terminal: a human decision still drives the job to completed or failed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusAwaitingReview,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TypeTimecardProcessing is the default job type for submitted documents.
const TypeTimecardProcessing = "timecard_processing"

// Priority orders pending jobs in the claim queue. Higher claims first.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority maps a priority name to its value. Numeric forms are not
// accepted; callers on the wire submit the enum value directly.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Result is the structured output of a finished pipeline run: the extracted
// wage data plus the compliance report produced for it. Once written it is
// never mutated, only superseded by a new job.
type Result struct {
	Extraction wage.Extraction `json:"extraction"`
	Report     wage.Report     `json:"report"`
	Remediated bool            `json:"remediated"`
}

// Job is one unit of document-processing work tracked through its lifecycle.
type Job struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	FileName      string     `json:"file_name"`
	FileSize      int64      `json:"file_size"`
	PayloadRef    string     `json:"payload_ref"`
	Progress      int        `json:"progress"`
	Result        *Result    `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
	RetryCount    int        `json:"retry_count"`
	ClaimedBy     string     `json:"claimed_by,omitempty"`
	ReviewComment string     `json:"review_comment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (j *Job) String() string {
	return fmt.Sprintf("Job{ID: %s, Type: %s, Status: %s, Priority: %s}",
		j.ID, j.Type, j.Status, j.Priority)
}
