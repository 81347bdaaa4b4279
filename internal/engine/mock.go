package engine

import "context"

// MockEngine returns a canned transcript for development environments where
// no real engine is running.
type MockEngine struct{}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (m *MockEngine) Transcribe(ctx context.Context, audioPath string, opts Options) (*Transcript, error) {
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	return &Transcript{
		Language: lang,
		Segments: []Segment{
			{
				Start: 0.0,
				End:   5.0,
				Text:  "This is a mock transcription result.",
				Words: []Word{
					{Word: "This", Start: 0.0, End: 1.0, Confidence: 0.9},
					{Word: "is", Start: 1.0, End: 2.0, Confidence: 0.9},
					{Word: "a", Start: 2.0, End: 3.0, Confidence: 0.9},
					{Word: "mock transcription.", Start: 3.0, End: 5.0, Confidence: 0.9},
				},
			},
		},
	}, nil
}

func (m *MockEngine) Diarize(ctx context.Context, audioPath string) ([]SpeakerTurn, error) {
	return []SpeakerTurn{{Start: 0.0, End: 5.0, Speaker: "SPEAKER_01"}}, nil
}
