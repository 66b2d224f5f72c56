package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
)

// Submitter is the slice of the job intake the consumer needs: create the
// job and wake the scheduler.
type Submitter interface {
	Submit(jobType, fileName string, fileSize int64, payloadRef string, priority jobs.Priority) (*jobs.Job, error)
}

// Consumer turns remote submission messages into jobs.
type Consumer struct {
	conn      *nats.Conn
	sub       *nats.Subscription
	submitter Submitter
}

func NewConsumer(url string, submitter Submitter) (*Consumer, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Consumer{conn: conn, submitter: submitter}, nil
}

func (c *Consumer) Subscribe() error {
	sub, err := c.conn.Subscribe(SubjectJobSubmitted, func(msg *nats.Msg) {
		var sm JobSubmissionMessage
		if err := json.Unmarshal(msg.Data, &sm); err != nil {
			logger.Logger.Warn().Err(err).Msg("Dropping malformed submission message")
			return
		}
		priority, err := jobs.ParsePriority(sm.Priority)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Dropping submission with unknown priority")
			return
		}
		if _, err := c.submitter.Submit(sm.Type, sm.FileName, sm.FileSize, sm.PayloadRef, priority); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to create job from submission message")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectJobSubmitted, err)
	}
	c.sub = sub
	return nil
}

func (c *Consumer) Close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
