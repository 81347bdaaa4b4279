package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/scribestack/transcription-service/internal/engine"
)

// fakeEngine returns a canned transcript or a fixed error.
type fakeEngine struct {
	transcript *engine.Transcript
	err        error
	turns      []engine.SpeakerTurn
	diarizeErr error

	// onTranscribe runs before the canned response, letting a test mutate
	// job state mid-execution.
	onTranscribe func()
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string, opts engine.Options) (*engine.Transcript, error) {
	if f.onTranscribe != nil {
		f.onTranscribe()
	}
	return f.transcript, f.err
}

func (f *fakeEngine) Diarize(ctx context.Context, audioPath string) ([]engine.SpeakerTurn, error) {
	return f.turns, f.diarizeErr
}

// recordingDispatcher collects enqueued job ids without running anything.
type recordingDispatcher struct {
	enqueued []string
	err      error
}

func (d *recordingDispatcher) Enqueue(ctx context.Context, jobID string) error {
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, jobID)
	return nil
}

func goodTranscript() *engine.Transcript {
	return &engine.Transcript{
		Language: "en",
		Segments: []engine.Segment{
			{
				Start: 0, End: 3, Text: "hello there",
				Words: []engine.Word{
					{Word: "hello", Start: 0, End: 1.5, Confidence: 0.9},
					{Word: "there", Start: 1.5, End: 3, Confidence: 0.7},
				},
			},
			{Start: 3, End: 6, Text: "general kenobi"},
		},
	}
}

func newTestLifecycle(t *testing.T, eng engine.Engine) (*Lifecycle, *Store, *recordingDispatcher) {
	t.Helper()
	store := NewStore(openTestDB(t))
	disp := &recordingDispatcher{}
	lc := NewLifecycle(store, engine.NewAdapter(eng, 0, 0), disp)
	return lc, store, disp
}

func mustCreate(t *testing.T, lc *Lifecycle, jobID string) {
	t.Helper()
	_, err := lc.CreateJob(context.Background(), jobID, jobID+".mp3", "/tmp/"+jobID+".mp3", Options{
		ModelSize:         "base",
		EnableDiarization: false,
		EnableAlignment:   true,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
}

func TestSubmitEnqueuesPendingJob(t *testing.T) {
	lc, store, disp := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := lc.Submit(ctx, "abc"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(disp.enqueued) != 1 || disp.enqueued[0] != "abc" {
		t.Fatalf("unexpected enqueued jobs: %v", disp.enqueued)
	}

	// Once a worker has picked the job up, a resubmit is a conflict.
	if _, err := store.Transition(ctx, "abc", StatusProcessing, StatusPending); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := lc.Submit(ctx, "abc"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestDuplicateDeliveryRunsOnce(t *testing.T) {
	lc, store, _ := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")

	// Redelivered messages are deduplicated by the PENDING->PROCESSING guard.
	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	job, _ := store.Get(ctx, "abc")
	first := job.UpdatedAt

	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	job, _ = store.Get(ctx, "abc")
	if job.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if !job.UpdatedAt.Equal(first) {
		t.Fatalf("second delivery must be a no-op")
	}
}

func TestSubmitMissingJob(t *testing.T) {
	lc, _, _ := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})

	if err := lc.Submit(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitEnqueueFailureReleasesSlot(t *testing.T) {
	lc, _, disp := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")

	disp.err = errors.New("broker unavailable")
	if err := lc.Submit(ctx, "abc"); err == nil {
		t.Fatalf("expected enqueue error")
	}

	// The failed submit must not leave the job stuck as inflight.
	disp.err = nil
	if err := lc.Submit(ctx, "abc"); err != nil {
		t.Fatalf("resubmit after enqueue failure: %v", err)
	}
}

func TestProcessCompletesJob(t *testing.T) {
	lc, store, _ := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.ProcessingTime == nil {
		t.Fatalf("completed job must record processing time")
	}

	res, err := DecodeResult(*job.ResultData)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Text != "hello there general kenobi" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.Duration != 6 {
		t.Fatalf("expected duration 6, got %f", res.Duration)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("expected mean confidence 0.8, got %f", res.Confidence)
	}
}

func TestProcessEngineFailureMarksFailed(t *testing.T) {
	lc, store, _ := newTestLifecycle(t, &fakeEngine{err: errors.New("decode error")})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, _ := store.Get(ctx, "abc")
	if job.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage == "" {
		t.Fatalf("failed job must carry an error message")
	}
	if job.ResultData != nil {
		t.Fatalf("failed job must not carry a result")
	}
}

func TestProcessSkipsCancelledJob(t *testing.T) {
	lc, store, _ := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := lc.Cancel(ctx, "abc"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}
	job, _ := store.Get(ctx, "abc")
	if job.Status != StatusCancelled {
		t.Fatalf("cancelled job must stay cancelled, got %s", job.Status)
	}
}

func TestCancelDuringProcessingDropsResult(t *testing.T) {
	eng := &fakeEngine{transcript: goodTranscript()}
	lc, store, _ := newTestLifecycle(t, eng)
	ctx := context.Background()

	mustCreate(t, lc, "abc")

	// Cancel arrives while the engine call is in flight.
	eng.onTranscribe = func() {
		if err := lc.Cancel(ctx, "abc"); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}

	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, _ := store.Get(ctx, "abc")
	if job.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", job.Status)
	}
	if job.ResultData != nil {
		t.Fatalf("late result must be dropped")
	}
}

func TestCancelDuringProcessingDropsFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("decode error")}
	lc, store, _ := newTestLifecycle(t, eng)
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	eng.onTranscribe = func() {
		if err := lc.Cancel(ctx, "abc"); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}

	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, _ := store.Get(ctx, "abc")
	if job.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", job.Status)
	}
	if job.ErrorMessage != nil {
		t.Fatalf("late failure must not overwrite a cancelled job")
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	lc, store, disp := newTestLifecycle(t, &fakeEngine{err: errors.New("decode error")})
	ctx := context.Background()

	mustCreate(t, lc, "abc")

	// Pending jobs cannot be retried.
	if _, err := lc.Retry(ctx, "abc"); !isInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, err := lc.Retry(ctx, "abc")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending after retry, got %s", job.Status)
	}
	if job.ErrorMessage != nil {
		t.Fatalf("retry must clear the error message")
	}
	if len(disp.enqueued) == 0 || disp.enqueued[len(disp.enqueued)-1] != "abc" {
		t.Fatalf("retry must re-enqueue the job: %v", disp.enqueued)
	}

	// Cancel the retried job, then confirm the terminal state is sticky.
	if err := lc.Cancel(ctx, "abc"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := lc.Retry(ctx, "abc"); !isInvalidTransition(err) {
		t.Fatalf("expected invalid transition after cancel, got %v", err)
	}
	got, _ := store.Get(ctx, "abc")
	if got.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestRetryAfterWorkerFailure(t *testing.T) {
	// Broker deployments run Process in a separate binary, so this process
	// only ever sees the store. Submit here, fail the job through the store
	// the way the remote worker would, then retry.
	lc, store, disp := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := lc.Submit(ctx, "abc"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := store.Transition(ctx, "abc", StatusProcessing, StatusPending); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := store.MarkFailed(ctx, "abc", "decode error"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	job, err := lc.Retry(ctx, "abc")
	if err != nil {
		t.Fatalf("retry after remote failure: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if len(disp.enqueued) != 2 {
		t.Fatalf("retry must re-enqueue, enqueued=%v", disp.enqueued)
	}
}

func TestRetryEnqueueFailureRestoresFailed(t *testing.T) {
	lc, store, disp := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := store.MarkFailed(ctx, "abc", "decode error"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	disp.err = errors.New("broker unavailable")
	if _, err := lc.Retry(ctx, "abc"); err == nil {
		t.Fatalf("expected enqueue error")
	}

	// The job must not be stranded in PENDING with nothing queued.
	job, _ := store.Get(ctx, "abc")
	if job.Status != StatusFailed {
		t.Fatalf("expected failed after refused enqueue, got %s", job.Status)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage != "decode error" {
		t.Fatalf("original error must be restored, got %v", job.ErrorMessage)
	}

	// And the retry stays repeatable once the broker is back.
	disp.err = nil
	retried, err := lc.Retry(ctx, "abc")
	if err != nil {
		t.Fatalf("retry after broker recovery: %v", err)
	}
	if retried.Status != StatusPending {
		t.Fatalf("expected pending, got %s", retried.Status)
	}
}

func TestCancelTerminalJobRejected(t *testing.T) {
	lc, _, _ := newTestLifecycle(t, &fakeEngine{transcript: goodTranscript()})
	ctx := context.Background()

	mustCreate(t, lc, "abc")
	if err := lc.Process(ctx, "abc"); err != nil {
		t.Fatalf("process: %v", err)
	}

	err := lc.Cancel(ctx, "abc")
	if !isInvalidTransition(err) {
		t.Fatalf("expected invalid transition cancelling a completed job, got %v", err)
	}
}

func TestBuildResultNoWordConfidence(t *testing.T) {
	res := buildResult(&engine.Transcript{
		Language: "en",
		Segments: []engine.Segment{{Start: 0, End: 2, Text: "hi", Speaker: "SPEAKER_00"}},
	}, true)

	if res.Confidence != 0.8 {
		t.Fatalf("expected default confidence 0.8, got %f", res.Confidence)
	}
	if !res.Degraded {
		t.Fatalf("degraded flag must carry through")
	}
	if res.Text != "hi" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func isInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
