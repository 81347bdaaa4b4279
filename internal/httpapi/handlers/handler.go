package handlers

import (
	"time"

	"gorm.io/gorm"

	"github.com/scribestack/transcription-service/internal/config"
	"github.com/scribestack/transcription-service/internal/transcription"
	"github.com/scribestack/transcription-service/internal/upload"
)

type Handler struct {
	Cfg     config.Config
	DB      *gorm.DB
	Jobs    *transcription.Lifecycle
	Query   *transcription.Query
	Metrics *transcription.Aggregator
	Uploads *upload.Saver

	startedAt time.Time
}

func NewHandler(
	cfg config.Config,
	db *gorm.DB,
	jobs *transcription.Lifecycle,
	query *transcription.Query,
	metrics *transcription.Aggregator,
	uploads *upload.Saver,
) *Handler {
	return &Handler{
		Cfg:       cfg,
		DB:        db,
		Jobs:      jobs,
		Query:     query,
		Metrics:   metrics,
		Uploads:   uploads,
		startedAt: time.Now(),
	}
}
