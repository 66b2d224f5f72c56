package store

import (
	"database/sql"
	"fmt"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
)

func (s *SQLStore) Stats() (*Stats, error) {
	stats := &Stats{Counts: map[jobs.Status]int{
		jobs.StatusPending:        0,
		jobs.StatusProcessing:     0,
		jobs.StatusAwaitingReview: 0,
		jobs.StatusCompleted:      0,
		jobs.StatusFailed:         0,
		jobs.StatusCancelled:      0,
	}}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status jobs.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.Counts[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	stats.ReviewQueueDepth = stats.Counts[jobs.StatusAwaitingReview]

	// Duration math is done here rather than in SQL so the query stays
	// identical across sqlite and Postgres.
	durRows, err := s.db.Query(`
		SELECT started_at, completed_at FROM jobs
		WHERE status = 'completed' AND started_at IS NOT NULL AND completed_at IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query durations: %w", err)
	}
	defer durRows.Close()

	var totalSeconds float64
	var completedRuns int
	for durRows.Next() {
		var started, completed sql.NullTime
		if err := durRows.Scan(&started, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan duration: %w", err)
		}
		if started.Valid && completed.Valid {
			totalSeconds += completed.Time.Sub(started.Time).Seconds()
			completedRuns++
		}
	}
	if err := durRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating durations: %w", err)
	}
	if completedRuns > 0 {
		stats.AvgProcessingSeconds = totalSeconds / float64(completedRuns)
	}

	finished := stats.Counts[jobs.StatusCompleted] + stats.Counts[jobs.StatusFailed]
	if finished > 0 {
		stats.SuccessRate = float64(stats.Counts[jobs.StatusCompleted]) / float64(finished)
	}
	return stats, nil
}
