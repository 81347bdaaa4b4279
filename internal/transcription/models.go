package transcription

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates an externally supplied status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no background work remains for the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Job struct {
	JobID  string `gorm:"primaryKey;type:varchar(36)" json:"job_id"`
	Status Status `gorm:"type:varchar(16);index;not null" json:"status"`

	Filename  string `gorm:"type:varchar(255);not null" json:"filename"`
	AudioPath string `gorm:"type:varchar(512);not null" json:"-"`

	ModelSize         string  `gorm:"type:varchar(16);not null" json:"model_size"`
	EnableDiarization bool    `gorm:"not null" json:"enable_diarization"`
	EnableAlignment   bool    `gorm:"not null" json:"enable_alignment"`
	Language          *string `gorm:"type:varchar(8)" json:"language,omitempty"`

	// Filled when completed
	ProcessingTime *float64 `json:"processing_time,omitempty"`
	AudioDuration  *float64 `json:"audio_duration,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	ResultData     *string  `gorm:"type:text" json:"-"`

	// Filled when failed
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`

	SpeakerSegments []SpeakerSegment `gorm:"foreignKey:JobID;references:JobID;constraint:OnDelete:CASCADE" json:"-"`
	WordSegments    []WordSegment    `gorm:"foreignKey:JobID;references:JobID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

type SpeakerSegment struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID     string  `gorm:"type:varchar(36);index;not null" json:"job_id"`
	Speaker   string  `gorm:"type:varchar(64);not null" json:"speaker"`
	StartTime float64 `gorm:"not null" json:"start_time"`
	EndTime   float64 `gorm:"not null" json:"end_time"`
	Text      string  `gorm:"type:text;not null" json:"text"`
}

func (SpeakerSegment) TableName() string { return "speaker_segments" }

type WordSegment struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID      string  `gorm:"type:varchar(36);index;not null" json:"job_id"`
	Word       string  `gorm:"type:varchar(255);not null" json:"word"`
	StartTime  float64 `gorm:"not null" json:"start_time"`
	EndTime    float64 `gorm:"not null" json:"end_time"`
	Speaker    string  `gorm:"type:varchar(64)" json:"speaker"`
	Confidence float64 `json:"confidence"`
}

func (WordSegment) TableName() string { return "word_segments" }
