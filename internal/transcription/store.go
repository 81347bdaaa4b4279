package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Store owns all durable job state. Every mutation runs as a single gorm
// operation or transaction so concurrent readers never observe partial writes.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = StatusPending
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateJob
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.db.WithContext(ctx).First(&j, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// List returns jobs newest first. A nil status returns all jobs.
func (s *Store) List(ctx context.Context, limit, offset int, status *Status) ([]Job, error) {
	q := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var jobs []Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Count returns the total matching the same filter List uses, for pagination.
func (s *Store) Count(ctx context.Context, status *Status) (int64, error) {
	q := s.db.WithContext(ctx).Model(&Job{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateStatus sets the status unconditionally. The legal-transition check is
// the lifecycle manager's job; the store only rejects unknown job ids.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status Status, errMsg *string) error {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{
			"status":        status,
			"error_message": errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition updates the status only when the current status is one of from.
// Returns false when the row exists but the guard did not match.
func (s *Store) Transition(ctx context.Context, jobID string, to Status, from ...Status) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("job_id = ? AND status IN ?", jobID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

// SaveResult atomically marks the job completed, stores the serialized result
// payload, and inserts the exploded segment and word rows. The write is
// guarded on PROCESSING so a result arriving after cancellation is rejected.
func (s *Store) SaveResult(ctx context.Context, jobID string, result *Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	data := string(payload)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":          StatusCompleted,
			"processing_time": result.ProcessingTime,
			"audio_duration":  result.Duration,
			"confidence":      result.Confidence,
			"result_data":     data,
			"error_message":   nil,
		}
		if result.Language != "" {
			updates["language"] = result.Language
		}

		res := tx.Model(&Job{}).
			Where("job_id = ? AND status = ?", jobID, StatusProcessing).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&Job{}).Where("job_id = ?", jobID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrStaleStatus
		}

		for _, seg := range result.SpeakerSegments {
			row := SpeakerSegment{
				JobID:     jobID,
				Speaker:   seg.Speaker,
				StartTime: seg.Start,
				EndTime:   seg.End,
				Text:      seg.Text,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, w := range result.WordSegments {
			row := WordSegment{
				JobID:      jobID,
				Word:       w.Word,
				StartTime:  w.Start,
				EndTime:    w.End,
				Speaker:    w.Speaker,
				Confidence: w.Confidence,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ResetForRetry moves a FAILED job back to PENDING and clears the recorded
// failure. Returns false when the job is not FAILED.
func (s *Store) ResetForRetry(ctx context.Context, jobID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("job_id = ? AND status = ?", jobID, StatusFailed).
		Updates(map[string]any{
			"status":        StatusPending,
			"error_message": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

// MarkFailed records a background failure. Guarded on PENDING/PROCESSING so
// cancellation stays sticky.
func (s *Store) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("job_id = ? AND status IN ?", jobID, []Status{StatusPending, StatusProcessing}).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, jobID); err != nil {
			return err
		}
		return ErrStaleStatus
	}
	return nil
}

// SpeakerSegments returns the exploded segment rows for a job, in time order.
func (s *Store) SpeakerSegments(ctx context.Context, jobID string) ([]SpeakerSegment, error) {
	var rows []SpeakerSegment
	if err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// WordSegments returns the exploded word rows for a job, in time order.
func (s *Store) WordSegments(ctx context.Context, jobID string) ([]WordSegment, error) {
	var rows []WordSegment
	if err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a job and its segment rows.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&WordSegment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", jobID).Delete(&SpeakerSegment{}).Error; err != nil {
			return err
		}
		res := tx.Where("job_id = ?", jobID).Delete(&Job{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type Stats struct {
	TotalJobs          int64
	ByStatus           map[Status]int64
	AvgProcessingTime  float64
	JobsCreatedLast24h int64
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[Status]int64)}

	if err := s.db.WithContext(ctx).Model(&Job{}).Count(&st.TotalJobs).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		Status Status
		N      int64
	}
	if err := s.db.WithContext(ctx).Model(&Job{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		st.ByStatus[c.Status] = c.N
	}

	var avg *float64
	if err := s.db.WithContext(ctx).Model(&Job{}).
		Select("AVG(processing_time)").
		Where("status = ? AND processing_time IS NOT NULL", StatusCompleted).
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		st.AvgProcessingTime = *avg
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	if err := s.db.WithContext(ctx).Model(&Job{}).
		Where("created_at >= ?", cutoff).
		Count(&st.JobsCreatedLast24h).Error; err != nil {
		return nil, err
	}

	return st, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry")
}
