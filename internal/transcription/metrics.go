package transcription

import "context"

// Metrics are the job-derived service metrics.
type Metrics struct {
	TotalJobs             int64   `json:"total_jobs"`
	SuccessfulJobs        int64   `json:"successful_jobs"`
	FailedJobs            int64   `json:"failed_jobs"`
	CurrentActiveJobs     int64   `json:"current_active_jobs"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	SuccessRate           float64 `json:"success_rate"`
}

// Aggregator derives metrics from the store; it keeps no state of its own.
type Aggregator struct {
	store *Store
}

func NewAggregator(store *Store) *Aggregator {
	return &Aggregator{store: store}
}

// Stats exposes the raw store statistics for the stats endpoint.
func (a *Aggregator) Stats(ctx context.Context) (*Stats, error) {
	return a.store.Stats(ctx)
}

func (a *Aggregator) Collect(ctx context.Context) (*Metrics, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		TotalJobs:             stats.TotalJobs,
		SuccessfulJobs:        stats.ByStatus[StatusCompleted],
		FailedJobs:            stats.ByStatus[StatusFailed],
		CurrentActiveJobs:     stats.ByStatus[StatusPending] + stats.ByStatus[StatusProcessing],
		AverageProcessingTime: stats.AvgProcessingTime,
	}

	total := m.TotalJobs
	if total < 1 {
		total = 1
	}
	m.SuccessRate = float64(m.SuccessfulJobs) / float64(total)
	return m, nil
}
