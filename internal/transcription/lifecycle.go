package transcription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/scribestack/transcription-service/internal/engine"
)

// Dispatcher hands a job id to background execution. Submit returns once the
// job is enqueued; completion is observed by polling the store.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Options are the processing knobs recorded at job creation.
type Options struct {
	ModelSize         string
	EnableDiarization bool
	EnableAlignment   bool
	Language          *string
}

// Lifecycle owns the job state machine and coordinates background execution.
// All collaborators are injected at construction.
type Lifecycle struct {
	store      *Store
	adapter    *engine.Adapter
	dispatcher Dispatcher

	// inflight serializes concurrent submissions of the same job for the
	// duration of the enqueue call only. Durable conflict detection comes
	// from the store's status guards, which also hold when execution runs
	// in a separate worker process.
	inflight sync.Map
}

func NewLifecycle(store *Store, adapter *engine.Adapter, dispatcher Dispatcher) *Lifecycle {
	return &Lifecycle{store: store, adapter: adapter, dispatcher: dispatcher}
}

// CreateJob records a new PENDING job.
func (l *Lifecycle) CreateJob(ctx context.Context, jobID, filename, audioPath string, opts Options) (*Job, error) {
	job := &Job{
		JobID:             jobID,
		Status:            StatusPending,
		Filename:          filename,
		AudioPath:         audioPath,
		ModelSize:         opts.ModelSize,
		EnableDiarization: opts.EnableDiarization,
		EnableAlignment:   opts.EnableAlignment,
		Language:          opts.Language,
	}
	if err := l.store.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Submit schedules background execution for a PENDING job. Submitting a job
// that is already processing, or concurrently being enqueued, is a conflict.
// A double-enqueued PENDING job is deduplicated when Process claims it.
func (l *Lifecycle) Submit(ctx context.Context, jobID string) error {
	if l.dispatcher == nil {
		return errors.New("no dispatcher configured")
	}

	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case StatusPending:
	case StatusProcessing:
		return ErrAlreadySubmitted
	default:
		return &InvalidTransitionError{JobID: jobID, From: job.Status, To: StatusProcessing}
	}

	if _, busy := l.inflight.LoadOrStore(jobID, struct{}{}); busy {
		return ErrAlreadySubmitted
	}
	defer l.inflight.Delete(jobID)

	return l.dispatcher.Enqueue(ctx, jobID)
}

// Process is the background execution unit: PENDING -> PROCESSING, engine
// run, then COMPLETED or FAILED. A fault anywhere in this path is written
// back onto the job; nothing is left in PROCESSING by a fault here. The
// returned error reports persistence problems only.
func (l *Lifecycle) Process(ctx context.Context, jobID string) error {
	started, err := l.store.Transition(ctx, jobID, StatusProcessing, StatusPending)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("process skipped job=%s err=job disappeared", jobID)
			return nil
		}
		return err
	}
	if !started {
		// Cancelled (or otherwise moved on) before execution began.
		log.Printf("process skipped job=%s reason=not pending", jobID)
		return nil
	}

	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	start := time.Now()
	result, runErr := l.execute(ctx, job)
	if runErr != nil {
		log.Printf("job failed job=%s cost=%s err=%v", jobID, time.Since(start), runErr)
		if err := l.store.MarkFailed(ctx, jobID, runErr.Error()); err != nil {
			if errors.Is(err, ErrStaleStatus) {
				// Cancelled mid-flight; the cancelled status wins.
				return nil
			}
			return err
		}
		return nil
	}

	result.ProcessingTime = time.Since(start).Seconds()
	if err := l.store.SaveResult(ctx, jobID, result); err != nil {
		if errors.Is(err, ErrStaleStatus) {
			log.Printf("result dropped job=%s reason=cancelled during processing", jobID)
			return nil
		}
		return err
	}

	log.Printf("job completed job=%s cost=%s segments=%d degraded=%t",
		jobID, time.Since(start), len(result.SpeakerSegments), result.Degraded)
	return nil
}

// execute runs the engine adapter and normalizes its output. A panic during
// normalization is treated exactly like an engine failure.
func (l *Lifecycle) execute(ctx context.Context, job *Job) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("result normalization panicked: %v", r)
		}
	}()

	lang := ""
	if job.Language != nil {
		lang = *job.Language
	}

	tr, degraded, err := l.adapter.Run(ctx, job.AudioPath, engine.Options{
		ModelSize:       job.ModelSize,
		Language:        lang,
		EnableAlignment: job.EnableAlignment,
	}, job.EnableDiarization)
	if err != nil {
		return nil, err
	}

	return buildResult(tr, degraded), nil
}

// Retry resets a FAILED job to PENDING and re-submits it with its originally
// recorded options and stored audio path.
func (l *Lifecycle) Retry(ctx context.Context, jobID string) (*Job, error) {
	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusFailed {
		return nil, &InvalidTransitionError{JobID: jobID, From: job.Status, To: StatusPending}
	}

	moved, err := l.store.ResetForRetry(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !moved {
		job, err = l.store.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{JobID: jobID, From: job.Status, To: StatusPending}
	}

	if err := l.Submit(ctx, jobID); err != nil {
		// The reset is already committed; put the job back to FAILED with
		// its original error so the retry stays repeatable instead of
		// stranding a PENDING job nothing will ever pick up.
		if rbErr := l.store.UpdateStatus(ctx, jobID, StatusFailed, job.ErrorMessage); rbErr != nil {
			log.Printf("retry rollback failed job=%s err=%v", jobID, rbErr)
		}
		return nil, err
	}
	return l.store.Get(ctx, jobID)
}

// Cancel moves a PENDING or PROCESSING job to CANCELLED. Cancellation of an
// in-flight engine call is cooperative only: the job record flips now and
// any late result write is rejected by the store's status guards.
func (l *Lifecycle) Cancel(ctx context.Context, jobID string) error {
	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !validTransition(job.Status, StatusCancelled) {
		return &InvalidTransitionError{JobID: jobID, From: job.Status, To: StatusCancelled}
	}

	moved, err := l.store.Transition(ctx, jobID, StatusCancelled, StatusPending, StatusProcessing)
	if err != nil {
		return err
	}
	if !moved {
		job, err = l.store.Get(ctx, jobID)
		if err != nil {
			return err
		}
		return &InvalidTransitionError{JobID: jobID, From: job.Status, To: StatusCancelled}
	}
	return nil
}

// buildResult flattens the engine transcript into the stored result shape.
func buildResult(tr *engine.Transcript, degraded bool) *Result {
	res := &Result{
		Language: tr.Language,
		Degraded: degraded,
	}

	var texts []string
	var confSum float64
	var confCount int

	for _, seg := range tr.Segments {
		if seg.End > res.Duration {
			res.Duration = seg.End
		}
		if t := strings.TrimSpace(seg.Text); t != "" {
			texts = append(texts, t)
		}

		out := ResultSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: seg.Speaker,
		}
		for _, w := range seg.Words {
			word := ResultWord{
				Word:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Speaker:    w.Speaker,
				Confidence: w.Confidence,
			}
			out.Words = append(out.Words, word)
			res.WordSegments = append(res.WordSegments, word)
			if w.Confidence > 0 {
				confSum += w.Confidence
				confCount++
			}
		}
		res.SpeakerSegments = append(res.SpeakerSegments, out)
	}

	res.Text = strings.Join(texts, " ")
	if confCount > 0 {
		res.Confidence = confSum / float64(confCount)
	} else {
		res.Confidence = 0.8
	}
	return res
}
