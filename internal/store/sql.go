package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
)

const jobColumns = `id, type, status, priority, file_name, file_size, payload_ref,
	progress, result, error, retry_count, claimed_by, review_comment,
	created_at, updated_at, started_at, completed_at`

// SQLStore implements JobStore on database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore wraps an open database handle. driver must match the one
// passed to Connect.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// rebind rewrites ? placeholders into $N for Postgres. sqlite takes ?
// natively.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) CreateJob(job *jobs.Job) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := s.rebind(`
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.Exec(query,
		job.ID, job.Type, job.Status, int(job.Priority), job.FileName, job.FileSize,
		job.PayloadRef, job.Progress, resultJSON, job.Error, job.RetryCount,
		job.ClaimedBy, job.ReviewComment,
		job.CreatedAt, job.UpdatedAt, nullTime(job.StartedAt), nullTime(job.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *SQLStore) GetJob(id string) (*jobs.Job, error) {
	query := s.rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`)
	job, err := scanJob(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, jobs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *SQLStore) ListJobs(f Filter) ([]*jobs.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any

	if len(f.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Statuses)), ",")
		query += ` WHERE status IN (` + placeholders + `)`
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// UpdateJob applies a partial update to a non-terminal job. The terminal
// guard lives in the UPDATE itself so two concurrent writers cannot both
// pass a separate read; the loser sees zero rows affected and gets
// ErrInvalidState, and completed_at is stamped at most once.
func (s *SQLStore) UpdateJob(id string, p Patch) (*jobs.Job, error) {
	now := time.Now().UTC()
	sets := []string{"updated_at = ?"}
	args := []any{now}

	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *p.Status)
		if p.Status.Terminal() {
			sets = append(sets, "completed_at = ?")
			args = append(args, now)
		}
	}
	if p.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *p.Progress)
	}
	if p.Result != nil {
		resultJSON, err := marshalResult(p.Result)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "result = ?")
		args = append(args, resultJSON)
	}
	if p.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *p.Error)
	}
	if p.RetryCount != nil {
		sets = append(sets, "retry_count = ?")
		args = append(args, *p.RetryCount)
	}
	if p.ReviewComment != nil {
		sets = append(sets, "review_comment = ?")
		args = append(args, *p.ReviewComment)
	}
	args = append(args, id)

	query := s.rebind(`UPDATE jobs SET ` + strings.Join(sets, ", ") + `
		WHERE id = ? AND status NOT IN ('completed', 'failed', 'cancelled')`)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		job, err := s.GetJob(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: job %s is %s", jobs.ErrInvalidState, id, job.Status)
	}
	return s.GetJob(id)
}

// ClaimNextEligible picks the highest-priority, oldest pending job and
// flips it to processing with a conditional update. A zero row count means
// another claimer won the race, in which case the next candidate is tried.
func (s *SQLStore) ClaimNextEligible(workerID string) (*jobs.Job, error) {
	const maxClaimRaces = 5

	for attempt := 0; attempt < maxClaimRaces; attempt++ {
		candidate, err := scanJob(s.db.QueryRow(s.rebind(`
			SELECT ` + jobColumns + ` FROM jobs
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC, id ASC
			LIMIT 1
		`)))
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to select pending job: %w", err)
		}

		now := time.Now().UTC()
		res, err := s.db.Exec(s.rebind(`
			UPDATE jobs
			SET status = 'processing', claimed_by = ?, started_at = ?,
			    progress = 0, updated_at = ?
			WHERE id = ? AND status = 'pending'
		`), workerID, now, now, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read claim result: %w", err)
		}
		if affected == 0 {
			continue // lost the race, try the next candidate
		}

		candidate.Status = jobs.StatusProcessing
		candidate.ClaimedBy = workerID
		candidate.Progress = 0
		candidate.StartedAt = &now
		candidate.UpdatedAt = now
		return candidate, nil
	}
	return nil, nil
}

func (s *SQLStore) CancelPending(id string) (*jobs.Job, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(s.rebind(`
		UPDATE jobs
		SET status = 'cancelled', completed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`), now, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read cancel result: %w", err)
	}
	if affected == 0 {
		job, err := s.GetJob(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: job %s is %s, only pending jobs can be cancelled",
			jobs.ErrInvalidState, id, job.Status)
	}
	return s.GetJob(id)
}

func (s *SQLStore) DeleteJob(id string) error {
	job, err := s.GetJob(id)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return fmt.Errorf("%w: cannot delete %s job %s", jobs.ErrInvalidState, job.Status, id)
	}
	if _, err := s.db.Exec(s.rebind(`DELETE FROM jobs WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAwaitingReview() ([]*jobs.Job, error) {
	rows, err := s.db.Query(s.rebind(`
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status = 'awaiting_review'
		ORDER BY created_at ASC, id ASC
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *SQLStore) ReclaimStale(olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(s.rebind(`
		UPDATE jobs
		SET status = 'pending', retry_count = retry_count + 1,
		    claimed_by = '', progress = 0, started_at = NULL, updated_at = ?
		WHERE status = 'processing' AND updated_at < ?
	`), time.Now().UTC(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reclaim result: %w", err)
	}
	return int(affected), nil
}

func (s *SQLStore) PurgeTerminal(olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(s.rebind(`
		DELETE FROM jobs
		WHERE status IN ('completed', 'failed', 'cancelled') AND completed_at < ?
	`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return int(affected), nil
}

func marshalResult(r *jobs.Result) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobs.Job, error) {
	job := &jobs.Job{}
	var (
		priority    int
		result      sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.Type, &job.Status, &priority, &job.FileName, &job.FileSize,
		&job.PayloadRef, &job.Progress, &result, &job.Error, &job.RetryCount,
		&job.ClaimedBy, &job.ReviewComment,
		&job.CreatedAt, &job.UpdatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.Priority = jobs.Priority(priority)
	if result.Valid {
		var r jobs.Result
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return nil, fmt.Errorf("failed to decode result for job %s: %w", job.ID, err)
		}
		job.Result = &r
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func collectJobs(rows *sql.Rows) ([]*jobs.Job, error) {
	var out []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
