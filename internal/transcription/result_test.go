package transcription

import (
	"encoding/json"
	"testing"
)

func TestResultPreservesUnknownFields(t *testing.T) {
	payload := `{
		"text": "hello",
		"language": "en",
		"duration": 3.5,
		"confidence": 0.9,
		"processing_time": 1.2,
		"speaker_segments": [],
		"word_segments": [],
		"engine_version": "whisperx-3.1",
		"alignment": {"model": "wav2vec2", "device": "cuda"}
	}`

	res, err := DecodeResult(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Text != "hello" || res.Duration != 3.5 {
		t.Fatalf("core fields lost: %+v", res)
	}
	if len(res.Extra) != 2 {
		t.Fatalf("expected 2 extra fields, got %v", res.Extra)
	}

	out, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var round map[string]json.RawMessage
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if string(round["engine_version"]) != `"whisperx-3.1"` {
		t.Fatalf("engine_version not preserved: %s", round["engine_version"])
	}
	if _, ok := round["alignment"]; !ok {
		t.Fatalf("alignment not preserved: %s", out)
	}
}

func TestResultExtraCannotShadowCoreFields(t *testing.T) {
	res := &Result{
		Text:     "real text",
		Language: "en",
		Extra: map[string]json.RawMessage{
			"text":   json.RawMessage(`"spoofed"`),
			"vendor": json.RawMessage(`"acme"`),
		},
	}

	out, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var round map[string]json.RawMessage
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(round["text"]) != `"real text"` {
		t.Fatalf("reserved key must win: %s", round["text"])
	}
	if string(round["vendor"]) != `"acme"` {
		t.Fatalf("extra key lost: %s", out)
	}
}

func TestDecodeResultMalformed(t *testing.T) {
	if _, err := DecodeResult("{not json"); err == nil {
		t.Fatalf("expected decode error")
	}
}
