// Package events publishes job lifecycle notifications over NATS and
// accepts remote job submissions. It is the push-capable integration hook:
// consumers subscribe instead of polling the control surface.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
)

type Client struct {
	conn *nats.Conn
}

func NewClient(url string) (*Client, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Client{conn: conn}, nil
}

// PublishJobUpdate emits the job's current state. Parked jobs additionally
// go out on the review-ready subject so review tooling can subscribe
// narrowly.
func (c *Client) PublishJobUpdate(job *jobs.Job) {
	msg := JobStatusMessage{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Error:    job.Error,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.WithJobID(job.ID).Error().Err(err).Msg("Failed to encode job event")
		return
	}
	if err := c.conn.Publish(SubjectJobUpdated, data); err != nil {
		logger.WithJobID(job.ID).Error().Err(err).Msg("Failed to publish job event")
		return
	}
	if job.Status == jobs.StatusAwaitingReview {
		if err := c.conn.Publish(SubjectReviewReady, data); err != nil {
			logger.WithJobID(job.ID).Error().Err(err).Msg("Failed to publish review event")
		}
	}
}

// PublishJobSubmission sends a submission request to the processing
// instance.
func (c *Client) PublishJobSubmission(msg *JobSubmissionMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal job submission: %w", err)
	}
	if err := c.conn.Publish(SubjectJobSubmitted, data); err != nil {
		return fmt.Errorf("failed to publish job submission: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
