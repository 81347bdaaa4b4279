package transcription

import (
	"context"
	"fmt"
	"testing"
)

func TestCollectEmptyStore(t *testing.T) {
	agg := NewAggregator(NewStore(openTestDB(t)))

	m, err := agg.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if m.TotalJobs != 0 || m.SuccessRate != 0 {
		t.Fatalf("empty store must report zero totals: %+v", m)
	}
	if m.AverageProcessingTime != 0 {
		t.Fatalf("empty store must report zero average, got %f", m.AverageProcessingTime)
	}
}

func TestCollectMixedStatuses(t *testing.T) {
	store := NewStore(openTestDB(t))
	agg := NewAggregator(store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := store.Create(ctx, newTestJob(fmt.Sprintf("m-%d", i))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// One completed, one failed, one processing, one left pending.
	if _, err := store.Transition(ctx, "m-0", StatusProcessing, StatusPending); err != nil {
		t.Fatalf("transition: %v", err)
	}
	res := sampleResult()
	res.ProcessingTime = 2.0
	if err := store.SaveResult(ctx, "m-0", res); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.UpdateStatus(ctx, "m-1", StatusFailed, ptr("boom")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := store.Transition(ctx, "m-2", StatusProcessing, StatusPending); err != nil {
		t.Fatalf("transition: %v", err)
	}

	m, err := agg.Collect(ctx)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if m.TotalJobs != 4 || m.SuccessfulJobs != 1 || m.FailedJobs != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.CurrentActiveJobs != 2 {
		t.Fatalf("expected 2 active jobs, got %d", m.CurrentActiveJobs)
	}
	if m.SuccessRate != 0.25 {
		t.Fatalf("expected success rate 0.25, got %f", m.SuccessRate)
	}
	if m.AverageProcessingTime != 2.0 {
		t.Fatalf("expected average 2.0, got %f", m.AverageProcessingTime)
	}
}
