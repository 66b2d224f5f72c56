package review_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/review"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
)

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	db, err := store.Connect("sqlite", filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.RunMigrations(db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.NewSQLStore(db, "sqlite")
}

func parkedJob(t *testing.T, st *store.SQLStore, createdAt time.Time) *jobs.Job {
	t.Helper()
	job := &jobs.Job{
		ID:        uuid.New().String(),
		Type:      jobs.TypeTimecardProcessing,
		Status:    jobs.StatusPending,
		Priority:  jobs.PriorityNormal,
		FileName:  "timecard.xlsx",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := st.CreateJob(job); err != nil {
		t.Fatalf("create: %v", err)
	}
	status := jobs.StatusAwaitingReview
	progress := 80
	parked, err := st.UpdateJob(job.ID, store.Patch{Status: &status, Progress: &progress})
	if err != nil {
		t.Fatalf("park: %v", err)
	}
	return parked
}

func TestListPendingOldestFirst(t *testing.T) {
	st := newTestStore(t)
	gw := review.NewGateway(st)

	base := time.Now().UTC().Add(-time.Hour)
	newer := parkedJob(t, st, base.Add(time.Minute))
	older := parkedJob(t, st, base)

	queue, err := gw.ListPending()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != older.ID || queue[1].ID != newer.ID {
		t.Fatalf("queue order wrong: %v", queue)
	}
}

func TestDecideApprove(t *testing.T) {
	st := newTestStore(t)
	gw := review.NewGateway(st)
	job := parkedJob(t, st, time.Now().UTC())

	var notified *jobs.Job
	gw.SetNotifier(func(j *jobs.Job) { notified = j })

	updated, err := gw.Decide(job.ID, true, "vetted against the source workbook")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if updated.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}
	if updated.Progress != 100 {
		t.Errorf("progress = %d, want 100", updated.Progress)
	}
	if updated.ReviewComment != "vetted against the source workbook" {
		t.Errorf("comment = %q", updated.ReviewComment)
	}
	if updated.CompletedAt == nil {
		t.Error("approval did not set completed_at")
	}
	if notified == nil || notified.ID != job.ID {
		t.Error("notifier not fired")
	}
}

func TestDecideReject(t *testing.T) {
	st := newTestStore(t)
	gw := review.NewGateway(st)

	job := parkedJob(t, st, time.Now().UTC())
	updated, err := gw.Decide(job.ID, false, "hours conflict with the badge log")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if updated.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", updated.Status)
	}
	if updated.Error != "hours conflict with the badge log" {
		t.Errorf("error = %q", updated.Error)
	}

	// A rejection without a comment still records a reason.
	second := parkedJob(t, st, time.Now().UTC())
	updated, err = gw.Decide(second.ID, false, "")
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if updated.Error != "rejected by reviewer" {
		t.Errorf("default reason = %q", updated.Error)
	}
}

func TestDecideRequiresParkedJob(t *testing.T) {
	st := newTestStore(t)
	gw := review.NewGateway(st)

	pending := &jobs.Job{
		ID:        uuid.New().String(),
		Type:      jobs.TypeTimecardProcessing,
		Status:    jobs.StatusPending,
		Priority:  jobs.PriorityNormal,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := st.CreateJob(pending); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := gw.Decide(pending.ID, true, ""); !errors.Is(err, jobs.ErrInvalidState) {
		t.Fatalf("decide on pending job = %v, want ErrInvalidState", err)
	}
	if _, err := gw.Decide("missing", true, ""); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("decide on missing job = %v, want ErrNotFound", err)
	}

	// Decisions are single-shot: a second decision hits a terminal job.
	parked := parkedJob(t, st, time.Now().UTC())
	if _, err := gw.Decide(parked.ID, true, ""); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	if _, err := gw.Decide(parked.ID, false, ""); !errors.Is(err, jobs.ErrInvalidState) {
		t.Fatalf("second decide = %v, want ErrInvalidState", err)
	}
}

func TestBulkDecideCollectsPartialFailures(t *testing.T) {
	st := newTestStore(t)
	gw := review.NewGateway(st)

	good := parkedJob(t, st, time.Now().UTC())
	alsoGood := parkedJob(t, st, time.Now().UTC())

	outcome := gw.BulkDecide([]string{good.ID, "missing", alsoGood.ID}, true, "batch approval")
	if len(outcome.Succeeded) != 2 {
		t.Fatalf("succeeded = %v", outcome.Succeeded)
	}
	if len(outcome.Failed) != 1 {
		t.Fatalf("failed = %v", outcome.Failed)
	}
	if _, ok := outcome.Failed["missing"]; !ok {
		t.Fatalf("missing id not reported: %v", outcome.Failed)
	}

	for _, id := range []string{good.ID, alsoGood.ID} {
		job, err := st.GetJob(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if job.Status != jobs.StatusCompleted {
			t.Errorf("job %s = %s, want completed", id, job.Status)
		}
	}
}
