package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/windfall/drill_service/internal/errors"
)

func TestOpenAICompleteSendsSampling(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path: want=%q got=%q", "/v1/chat/completions", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"words\":[\"brave\"]}"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/v1"})
	text, err := c.Complete(context.Background(), UserPrompt("give me words", Sampling{
		Temperature:      0.9,
		TopP:             0.95,
		FrequencyPenalty: 0.5,
		PresencePenalty:  0.3,
	}))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"words":["brave"]}` {
		t.Fatalf("text: got %q", text)
	}
	if got["model"] != "gpt-3.5-turbo" {
		t.Fatalf("model: want=%q got=%v", "gpt-3.5-turbo", got["model"])
	}
	if got["presence_penalty"] == nil || got["frequency_penalty"] == nil || got["top_p"] == nil {
		t.Fatalf("sampling fields missing: %v", got)
	}
}

func TestOpenAICompleteProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/v1"})
	_, err := c.Complete(context.Background(), UserPrompt("x", Sampling{}))
	if !errors.Is(err, errors.ErrAIService) {
		t.Fatalf("want %s, got %v", errors.ErrAIService, err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-fake"))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIOptions{APIKey: "test", BaseURL: srv.URL + "/v1"})
	audio, err := c.Synthesize(context.Background(), "garden", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3-fake" {
		t.Fatalf("audio: got %q", audio)
	}
	if body["voice"] != "alloy" || body["model"] != "tts-1" {
		t.Fatalf("defaults not applied: %v", body)
	}
}

func TestAzureChatComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "k" {
			t.Errorf("api-key header missing")
		}
		var req azureChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser {
			t.Errorf("messages: %+v", req.Messages)
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	text, err := NewAzureChatClient(srv.URL, "k").Complete(context.Background(), UserPrompt("hi", Sampling{Temperature: 0.7}))
	if err != nil || text != "ok" {
		t.Fatalf("Complete: text=%q err=%v", text, err)
	}
}

func TestAzureSpeechSynthesizeEscapesSSML(t *testing.T) {
	var ssml string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ssml = string(b)
		if ct := r.Header.Get("Content-Type"); ct != "application/ssml+xml" {
			t.Errorf("content type: got %q", ct)
		}
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	c := NewAzureSpeechClient("key", "eastus", "").WithEndpoint(srv.URL)
	if _, err := c.Synthesize(context.Background(), "cats & dogs <3", "alloy"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(ssml, "cats &amp; dogs &lt;3") {
		t.Fatalf("text not escaped: %s", ssml)
	}
	if !strings.Contains(ssml, `name="en-US-AnaNeural"`) {
		t.Fatalf("non-azure voice should fall back to the default: %s", ssml)
	}
}

func TestAzureWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("language: got %q", r.FormValue("language"))
		}
		io.WriteString(w, `{"text":"the quick fox"}`)
	}))
	defer srv.Close()

	text, err := NewAzureWhisperClient(srv.URL, "k").Transcribe(context.Background(), []byte("RIFF"), "a.wav", "en")
	if err != nil || text != "the quick fox" {
		t.Fatalf("Transcribe: text=%q err=%v", text, err)
	}
}

func TestAuthClientVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != verifyTokenPath {
			t.Errorf("path: got %q", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		switch req["token"] {
		case "good":
			io.WriteString(w, `{"valid": true}`)
		case "stale":
			io.WriteString(w, `{"valid": false}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL+"/", time.Second)
	for token, want := range map[string]bool{"good": true, "stale": false, "nope": false} {
		got, err := c.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("%s: %v", token, err)
		}
		if got != want {
			t.Fatalf("%s: want=%v got=%v", token, want, got)
		}
	}
}

func TestAuthClientUnconfigured(t *testing.T) {
	_, err := NewAuthClient("", 0).Verify(context.Background(), "x")
	if !errors.Is(err, errors.ErrAuthService) {
		t.Fatalf("want %s, got %v", errors.ErrAuthService, err)
	}
}
