package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/extract"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/pipeline"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/rules"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

type staticSource struct{ text string }

func (s staticSource) Text(ctx context.Context, payloadRef string) (string, error) {
	return s.text, nil
}

// scriptedExtractor returns its steps in order, then repeats the last one.
type scriptedExtractor struct {
	steps []func(ctx context.Context) (*wage.Extraction, error)
	calls int
}

func (f *scriptedExtractor) Extract(ctx context.Context, documentText string) (*wage.Extraction, error) {
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	return f.steps[i](ctx)
}

func succeed(ex wage.Extraction) func(context.Context) (*wage.Extraction, error) {
	return func(context.Context) (*wage.Extraction, error) {
		out := ex
		return &out, nil
	}
}

func failTransient(msg string) func(context.Context) (*wage.Extraction, error) {
	return func(context.Context) (*wage.Extraction, error) {
		return nil, &extract.Error{Msg: msg, Transient: true}
	}
}

func testRulesConfig() rules.Config {
	return rules.Config{
		MinimumWageRate:             725,
		OvertimeThresholdHours:      40,
		SalaryExemptWeeklyThreshold: 68400,
		MaxRecommendedWeeklyHours:   60,
		HoursPerDay:                 8,
	}
}

func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Rules:              testRulesConfig(),
		ExtractTimeout:     time.Second,
		MaxExtractAttempts: 3,
		RetryBackoffBase:   time.Millisecond,
	}
}

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

// claimedJob creates a pending job and claims it, mirroring how the
// scheduler hands jobs to the pipeline.
func claimedJob(t *testing.T, st *store.SQLStore) *jobs.Job {
	t.Helper()
	now := time.Now().UTC()
	job := &jobs.Job{
		ID:        uuid.New().String(),
		Type:      jobs.TypeTimecardProcessing,
		Status:    jobs.StatusPending,
		Priority:  jobs.PriorityNormal,
		FileName:  "timecard.xlsx",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateJob(job); err != nil {
		t.Fatalf("create: %v", err)
	}
	claimed, err := st.ClaimNextEligible("test-worker")
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	return claimed
}

func validExtraction() wage.Extraction {
	records := []wage.Record{
		{Employee: "Alice", Date: "2025-03-03", DailyRate: 20000, Project: "Alpha", Department: "Eng"},
		{Employee: "Alice", Date: "2025-03-04", DailyRate: 20000, Project: "Alpha", Department: "Eng"},
	}
	return wage.Extraction{
		Records:          records,
		EmployeeCount:    1,
		TotalDays:        2,
		UniqueDays:       2,
		TotalWage:        40000,
		AverageDailyRate: 20000,
	}
}

func TestRunCompletesValidJob(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		succeed(validExtraction()),
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", got.Status, got.Error)
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.Result == nil || got.Result.Report.Verdict != wage.VerdictValid {
		t.Fatalf("result: %+v", got.Result)
	}
	if got.Result.Remediated {
		t.Error("clean extraction marked remediated")
	}
	if got.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", got.RetryCount)
	}
}

func TestRunParksComplianceFindings(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ex := validExtraction()
	for i := range ex.Records {
		ex.Records[i].DailyRate = 4800 // $6.00/hour
	}
	ex.TotalWage = 9600
	ex.AverageDailyRate = 4800

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){succeed(ex)}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusAwaitingReview {
		t.Fatalf("status = %s, want awaiting_review", got.Status)
	}
	if got.Result == nil || got.Result.Report.Verdict != wage.VerdictRequiresReview {
		t.Fatalf("result: %+v", got.Result)
	}
	if got.CompletedAt != nil {
		t.Error("parked job has completed_at set")
	}
}

func TestRunRemediatesAggregateMismatch(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ex := validExtraction()
	ex.TotalWage = 99900 // only the reported sum is wrong

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){succeed(ex)}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", got.Status, got.Error)
	}
	if got.Result == nil || !got.Result.Remediated {
		t.Fatalf("remediation flag not set: %+v", got.Result)
	}
	if got.Result.Extraction.TotalWage != 40000 {
		t.Errorf("remediated total = %s, want 400.00", got.Result.Extraction.TotalWage)
	}
}

func TestRunParksUnremediableFindings(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ex := validExtraction()
	ex.Records[0].Employee = "" // integrity defect blocks remediation
	ex.TotalWage = 99900

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){succeed(ex)}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusAwaitingReview {
		t.Fatalf("status = %s, want awaiting_review", got.Status)
	}
	if got.Result.Remediated {
		t.Error("unremediable extraction marked remediated")
	}
	if got.Result.Report.Verdict != wage.VerdictInvalid {
		t.Errorf("verdict = %s, want INVALID", got.Result.Report.Verdict)
	}
}

func TestRunRetriesTransientExtractFailures(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		failTransient("throttled"),
		failTransient("throttled"),
		succeed(validExtraction()),
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", got.Status, got.Error)
	}
	if got.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", got.RetryCount)
	}
	if ext.calls != 3 {
		t.Errorf("extractor called %d times, want 3", ext.calls)
	}
}

func TestRunFailsWhenRetriesExhausted(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		failTransient("still throttled"),
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("failed job has no error message")
	}
	if got.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", got.RetryCount)
	}
	if ext.calls != 3 {
		t.Errorf("extractor called %d times, want 3", ext.calls)
	}
}

func TestRunFailsFastOnPermanentError(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		func(context.Context) (*wage.Extraction, error) {
			return nil, &extract.Error{Msg: "schema mismatch"}
		},
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if ext.calls != 1 {
		t.Errorf("permanent error retried: %d calls", ext.calls)
	}
}

func TestRunCancelledBeforeFirstCheckpoint(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(jobs.ErrStopRequested)

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		succeed(validExtraction()),
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(ctx, job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if got.Result != nil {
		t.Error("cancelled job has a partial result")
	}
}

func TestRunCancelledDuringExtraction(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	ctx, cancel := context.WithCancelCause(context.Background())
	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		func(ctx context.Context) (*wage.Extraction, error) {
			cancel(jobs.ErrStopRequested)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(ctx, job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled (error: %s)", got.Status, got.Error)
	}
	if got.Result != nil {
		t.Error("cancelled job has a partial result")
	}
}

func TestRunShutdownLeavesJobProcessing(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	// Plain cancellation with no stop cause models process shutdown. The
	// job must stay processing so the stale reclaim can return it to
	// pending after restart.
	ctx, cancel := context.WithCancel(context.Background())
	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		func(ctx context.Context) (*wage.Extraction, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.Run(ctx, job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusProcessing {
		t.Fatalf("status = %s, want processing (error: %s)", got.Status, got.Error)
	}

	reclaimed, err := st.ReclaimStale(0)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed %d jobs, want 1", reclaimed)
	}
	got, err = st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get after reclaim: %v", err)
	}
	if got.Status != jobs.StatusPending || got.RetryCount != 1 {
		t.Fatalf("after reclaim: status %s retry_count %d, want pending 1", got.Status, got.RetryCount)
	}
}

func TestRunFailsOnBadConfiguration(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	cfg := pipelineConfig()
	cfg.Rules.HoursPerDay = 0

	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		succeed(validExtraction()),
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, cfg)
	p.Run(context.Background(), job)

	got, err := st.GetJob(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("configuration failure recorded no error")
	}
	if ext.calls != 0 {
		t.Errorf("extractor ran despite invalid configuration: %d calls", ext.calls)
	}
}

func TestRunNotifiesOnTransitions(t *testing.T) {
	st := newTestStore(t)
	job := claimedJob(t, st)

	var statuses []jobs.Status
	ext := &scriptedExtractor{steps: []func(context.Context) (*wage.Extraction, error){
		succeed(validExtraction()),
	}}
	p := pipeline.New(st, staticSource{text: "doc"}, ext, pipelineConfig())
	p.SetNotifier(func(j *jobs.Job) { statuses = append(statuses, j.Status) })
	p.Run(context.Background(), job)

	if len(statuses) == 0 {
		t.Fatal("no notifications fired")
	}
	if statuses[len(statuses)-1] != jobs.StatusCompleted {
		t.Fatalf("last notification = %s, want completed", statuses[len(statuses)-1])
	}
}
