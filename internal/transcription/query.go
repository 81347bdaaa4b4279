package transcription

import (
	"context"
	"log"
	"time"
)

// JobView is the external-facing job projection, shaped for JSON transport.
type JobView struct {
	JobID             string    `json:"job_id"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	AudioFile         string    `json:"audio_file"`
	ModelSize         string    `json:"model_size"`
	EnableDiarization bool      `json:"enable_diarization"`
	EnableAlignment   bool      `json:"enable_alignment"`
	Progress          float64   `json:"progress"`
	CurrentStage      string    `json:"current_stage"`
	Language          *string   `json:"language,omitempty"`
	ProcessingTime    *float64  `json:"processing_time,omitempty"`
	AudioDuration     *float64  `json:"audio_duration,omitempty"`
	Confidence        *float64  `json:"confidence,omitempty"`
	ErrorMessage      *string   `json:"error_message,omitempty"`
	Result            *Result   `json:"result,omitempty"`
}

// JobPage is one page of a filtered job listing.
type JobPage struct {
	Jobs    []JobView `json:"jobs"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	HasNext bool      `json:"has_next"`
	HasPrev bool      `json:"has_prev"`
}

// Query is the read side: store rows projected into JobViews.
type Query struct {
	store *Store
}

func NewQuery(store *Store) *Query {
	return &Query{store: store}
}

func (q *Query) GetJob(ctx context.Context, jobID string) (*JobView, error) {
	job, err := q.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	v := viewFromJob(job)
	return &v, nil
}

// ListJobs returns 1-indexed pages, newest jobs first.
func (q *Query) ListJobs(ctx context.Context, page, perPage int, status *Status) (*JobPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 100 {
		perPage = 100
	}

	total, err := q.store.Count(ctx, status)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * perPage
	jobs, err := q.store.List(ctx, perPage, offset, status)
	if err != nil {
		return nil, err
	}

	views := make([]JobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, viewFromJob(&jobs[i]))
	}

	return &JobPage{
		Jobs:    views,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		HasNext: int64(page)*int64(perPage) < total,
		HasPrev: page > 1,
	}, nil
}

// viewFromJob projects a stored row. A malformed result payload degrades to a
// nil result; it never fails the read.
func viewFromJob(j *Job) JobView {
	v := JobView{
		JobID:             j.JobID,
		Status:            j.Status,
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
		AudioFile:         j.Filename,
		ModelSize:         j.ModelSize,
		EnableDiarization: j.EnableDiarization,
		EnableAlignment:   j.EnableAlignment,
		Language:          j.Language,
		ProcessingTime:    j.ProcessingTime,
		AudioDuration:     j.AudioDuration,
		Confidence:        j.Confidence,
		ErrorMessage:      j.ErrorMessage,
		CurrentStage:      "upload",
	}

	if j.Status == StatusCompleted {
		v.Progress = 1.0
		v.CurrentStage = "completed"
	}

	if j.ResultData != nil && *j.ResultData != "" {
		res, err := DecodeResult(*j.ResultData)
		if err != nil {
			log.Printf("malformed result payload job=%s err=%v", j.JobID, err)
		} else {
			v.Result = res
		}
	}
	return v
}
