package transcription

import "encoding/json"

// Result is the structured transcript stored on a completed job. Unknown
// fields produced by the engine are preserved in Extra and round-trip
// through serialization untouched.
type Result struct {
	Text            string          `json:"text"`
	Language        string          `json:"language"`
	Duration        float64         `json:"duration"`
	Confidence      float64         `json:"confidence"`
	ProcessingTime  float64         `json:"processing_time"`
	Degraded        bool            `json:"degraded,omitempty"`
	SpeakerSegments []ResultSegment `json:"speaker_segments"`
	WordSegments    []ResultWord    `json:"word_segments"`

	Extra map[string]json.RawMessage `json:"-"`
}

type ResultSegment struct {
	Start   float64      `json:"start"`
	End     float64      `json:"end"`
	Text    string       `json:"text"`
	Speaker string       `json:"speaker"`
	Words   []ResultWord `json:"words,omitempty"`
}

type ResultWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence"`
}

var resultCoreFields = map[string]struct{}{
	"text":             {},
	"language":         {},
	"duration":         {},
	"confidence":       {},
	"processing_time":  {},
	"degraded":         {},
	"speaker_segments": {},
	"word_segments":    {},
}

type resultAlias Result

func (r *Result) UnmarshalJSON(data []byte) error {
	var core resultAlias
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range resultCoreFields {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}

	*r = Result(core)
	r.Extra = raw
	return nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	core, err := json.Marshal(resultAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return core, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(core, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, reserved := resultCoreFields[k]; reserved {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// DecodeResult parses a stored result payload.
func DecodeResult(data string) (*Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
