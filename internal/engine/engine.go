package engine

import (
	"context"
	"errors"
	"fmt"
)

var errEmptyTranscript = errors.New("engine returned no transcript")

// Options carries the per-job knobs forwarded to the engine.
type Options struct {
	ModelSize       string
	Language        string
	EnableAlignment bool
}

type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    string  `json:"speaker,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

// Transcript is the raw engine output before normalization.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// SpeakerTurn is one attributed time range from the diarization pass.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Engine is the external audio-processing system. Transcribe is the primary
// pass and has no timeout: a stuck engine stalls that job. Diarize is the
// optional secondary pass and runs under the adapter's deadline.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Transcript, error)
	Diarize(ctx context.Context, audioPath string) ([]SpeakerTurn, error)
}

// Failure wraps an engine error with the stage it occurred in.
type Failure struct {
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("engine %s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
