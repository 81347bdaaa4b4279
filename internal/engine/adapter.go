package engine

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	// UnknownSpeaker labels segments the engine left unattributed.
	UnknownSpeaker = "UNKNOWN"
	// FallbackSpeaker labels everything when diarization fails or times out.
	FallbackSpeaker = "SPEAKER_00"
)

// Adapter drives the engine and normalizes its output. Transcription and
// diarization are decoupled: a diarization failure degrades the result
// instead of failing the job.
type Adapter struct {
	engine             Engine
	diarizationTimeout time.Duration
	maxAudioDuration   time.Duration
}

// NewAdapter wraps e. maxAudioDuration caps the reported audio length;
// zero disables the cap.
func NewAdapter(e Engine, diarizationTimeout, maxAudioDuration time.Duration) *Adapter {
	if diarizationTimeout <= 0 {
		diarizationTimeout = 300 * time.Second
	}
	return &Adapter{
		engine:             e,
		diarizationTimeout: diarizationTimeout,
		maxAudioDuration:   maxAudioDuration,
	}
}

// Run transcribes audioPath and, when enabled, attributes speakers. The
// returned bool reports a degraded result: the transcript is complete but
// every speaker label is the uniform fallback.
func (a *Adapter) Run(ctx context.Context, audioPath string, opts Options, diarize bool) (*Transcript, bool, error) {
	tr, err := a.engine.Transcribe(ctx, audioPath, opts)
	if err != nil {
		return nil, false, &Failure{Stage: "transcribe", Err: err}
	}
	if tr == nil {
		return nil, false, &Failure{Stage: "transcribe", Err: errEmptyTranscript}
	}

	if a.maxAudioDuration > 0 {
		if d := transcriptDuration(tr); d > a.maxAudioDuration.Seconds() {
			return nil, false, &Failure{
				Stage: "validate",
				Err:   fmt.Errorf("audio duration %.1fs exceeds maximum %.0fs", d, a.maxAudioDuration.Seconds()),
			}
		}
	}

	fillUnknownSpeakers(tr)

	if !diarize {
		return tr, false, nil
	}

	dctx, cancel := context.WithTimeout(ctx, a.diarizationTimeout)
	defer cancel()

	turns, derr := a.engine.Diarize(dctx, audioPath)
	if derr != nil {
		log.Printf("diarization degraded audio=%s err=%v", audioPath, derr)
		applyUniformSpeaker(tr, FallbackSpeaker)
		return tr, true, nil
	}

	assignSpeakers(tr, turns)
	return tr, false, nil
}

// transcriptDuration is the latest segment end time in seconds.
func transcriptDuration(tr *Transcript) float64 {
	var d float64
	for _, seg := range tr.Segments {
		if seg.End > d {
			d = seg.End
		}
	}
	return d
}

// fillUnknownSpeakers defaults empty speaker labels before attribution so a
// partial engine result never surfaces a blank speaker.
func fillUnknownSpeakers(tr *Transcript) {
	for i := range tr.Segments {
		seg := &tr.Segments[i]
		if seg.Speaker == "" {
			seg.Speaker = UnknownSpeaker
		}
		for j := range seg.Words {
			if seg.Words[j].Speaker == "" {
				seg.Words[j].Speaker = seg.Speaker
			}
		}
	}
}

func applyUniformSpeaker(tr *Transcript, speaker string) {
	for i := range tr.Segments {
		tr.Segments[i].Speaker = speaker
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Speaker = speaker
		}
	}
}

// assignSpeakers attributes each segment to the first overlapping turn, then
// propagates the segment's speaker to its words.
func assignSpeakers(tr *Transcript, turns []SpeakerTurn) {
	for i := range tr.Segments {
		seg := &tr.Segments[i]
		speaker := seg.Speaker
		for _, turn := range turns {
			if seg.Start <= turn.End && seg.End >= turn.Start {
				speaker = turn.Speaker
				break
			}
		}
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		seg.Speaker = speaker
		for j := range seg.Words {
			seg.Words[j].Speaker = speaker
		}
	}
}
