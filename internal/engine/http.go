package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPEngine talks to an external transcription engine over JSON HTTP.
// The client carries no global timeout: the primary transcription pass is
// unbounded and the diarization pass is bounded by the caller's context.
type HTTPEngine struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPEngine(baseURL string) *HTTPEngine {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	return &HTTPEngine{
		BaseURL: baseURL,
		Client:  &http.Client{},
	}
}

type transcribeReq struct {
	AudioPath       string `json:"audio_path"`
	ModelSize       string `json:"model_size"`
	Language        string `json:"language,omitempty"`
	EnableAlignment bool   `json:"enable_alignment"`
}

type transcribeResp struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
	Error    string    `json:"error,omitempty"`
}

func (e *HTTPEngine) Transcribe(ctx context.Context, audioPath string, opts Options) (*Transcript, error) {
	var decoded transcribeResp
	err := e.post(ctx, "/v1/transcribe", transcribeReq{
		AudioPath:       audioPath,
		ModelSize:       opts.ModelSize,
		Language:        opts.Language,
		EnableAlignment: opts.EnableAlignment,
	}, &decoded)
	if err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	return &Transcript{Language: decoded.Language, Segments: decoded.Segments}, nil
}

type diarizeReq struct {
	AudioPath string `json:"audio_path"`
}

type diarizeResp struct {
	Turns []SpeakerTurn `json:"turns"`
	Error string        `json:"error,omitempty"`
}

func (e *HTTPEngine) Diarize(ctx context.Context, audioPath string) ([]SpeakerTurn, error) {
	var decoded diarizeResp
	if err := e.post(ctx, "/v1/diarize", diarizeReq{AudioPath: audioPath}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	return decoded.Turns, nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, body any, out any) error {
	if e.Client == nil {
		return errors.New("engine: http client is nil")
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := e.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engine: %s status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
