package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groqkit/internal/speech"
	"groqkit/internal/usage"
	"groqkit/pkg/groq"
)

// mockClient implements Client for testing
type mockClient struct {
	mu        sync.Mutex
	chatReq   *groq.ChatCompletionRequest
	sttReq    *groq.SpeechToTextRequest
	ttsReq    *groq.TextToSpeechRequest
	requestID string

	chatResp *groq.ChatCompletionResponse
	sttResp  *groq.SpeechToTextResponse
	ttsResp  *groq.TextToSpeechResponse
	err      error
}

func (m *mockClient) record(ctx context.Context) {
	m.requestID = groq.RequestIDFromContext(ctx)
}

func (m *mockClient) ChatCompletion(ctx context.Context, req groq.ChatCompletionRequest) (*groq.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(ctx)
	m.chatReq = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.chatResp, nil
}

func (m *mockClient) SpeechToText(ctx context.Context, req groq.SpeechToTextRequest) (*groq.SpeechToTextResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(ctx)
	m.sttReq = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.sttResp, nil
}

func (m *mockClient) TextToSpeech(ctx context.Context, req groq.TextToSpeechRequest) (*groq.TextToSpeechResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(ctx)
	m.ttsReq = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.ttsResp, nil
}

type mockSpeaker struct {
	text string
	err  error
}

func (m *mockSpeaker) Speak(_ context.Context, text string) error {
	m.text = text
	return m.err
}

type mockUsage struct {
	since   time.Time
	summary []usage.OperationSummary
	err     error
}

func (m *mockUsage) Summary(_ context.Context, since time.Time) ([]usage.OperationSummary, error) {
	m.since = since
	return m.summary, m.err
}

var testDefaults = Defaults{
	ChatModel:          "llama-3.3-70b-versatile",
	TranscriptionModel: "whisper-large-v3",
	SpeechModel:        "playai-tts",
	SpeechVoice:        "Fritz-PlayAI",
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	h := NewHandler(Deps{Client: &mockClient{}})
	c, rec := newJSONContext(http.MethodGet, "/health", "")

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChatCompletion(t *testing.T) {
	mock := &mockClient{chatResp: &groq.ChatCompletionResponse{
		ID:     "chatcmpl-123",
		Object: "chat.completion",
		Model:  "llama-3.3-70b-versatile",
		Choices: []groq.Choice{
			{Index: 0, Message: groq.AssistantMessage("Hello!"), FinishReason: "stop"},
		},
	}}
	h := NewHandler(Deps{Client: mock, Defaults: testDefaults})

	c, rec := newJSONContext(http.MethodPost, "/v1/chat/completions",
		`{"messages":[{"role":"user","content":"Hi"}],"temperature":0.2}`)
	require.NoError(t, h.ChatCompletion(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, mock.chatReq)
	assert.Equal(t, "llama-3.3-70b-versatile", mock.chatReq.Model)
	require.NotNil(t, mock.chatReq.Temperature)
	assert.Equal(t, 0.2, *mock.chatReq.Temperature)
	assert.Equal(t, []groq.ChatMessage{groq.UserMessage("Hi")}, mock.chatReq.Messages)

	var resp groq.ChatCompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, "Hello!", resp.FirstContent())
}

func TestChatCompletion_UsesChatOverride(t *testing.T) {
	client := &mockClient{}
	cached := &mockClient{chatResp: &groq.ChatCompletionResponse{ID: "from-cache"}}
	h := NewHandler(Deps{Client: client, Chat: cached})

	c, rec := newJSONContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"m","messages":[{"role":"user","content":"Hi"}]}`)
	require.NoError(t, h.ChatCompletion(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "from-cache")
	assert.Nil(t, client.chatReq)
}

func TestChatCompletion_InvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed JSON", `{"messages":`, "invalid request body"},
		{"no messages", `{"model":"m"}`, "messages is required"},
		{"streaming", `{"model":"m","stream":true,"messages":[{"role":"user","content":"Hi"}]}`, "streaming is not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockClient{}
			h := NewHandler(Deps{Client: mock})
			c, rec := newJSONContext(http.MethodPost, "/v1/chat/completions", tt.body)

			require.NoError(t, h.ChatCompletion(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			detail := decodeError(t, rec)
			assert.Equal(t, "invalid_request_error", detail.Type)
			assert.Contains(t, detail.Message, tt.message)
			assert.Nil(t, mock.chatReq)
		})
	}
}

func TestChatCompletion_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "api error keeps upstream status",
			err:        &groq.APIError{Message: "Rate limit reached", Type: "rate_limit_error", StatusCode: 429},
			wantStatus: http.StatusTooManyRequests,
			wantType:   "rate_limit_error",
		},
		{
			name:       "api error without status",
			err:        &groq.APIError{Message: "odd", Type: "unknown_error"},
			wantStatus: http.StatusBadGateway,
			wantType:   "unknown_error",
		},
		{
			name:       "transport error",
			err:        &groq.TransportError{Op: "send request", Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantType:   "transport_error",
		},
		{
			name:       "transport timeout",
			err:        &groq.TransportError{Op: "send request", Err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded)},
			wantStatus: http.StatusGatewayTimeout,
			wantType:   "timeout_error",
		},
		{
			name:       "deserialization error",
			err:        &groq.DeserializationError{Target: "chat completion response", Err: errors.New("missing choices")},
			wantStatus: http.StatusBadGateway,
			wantType:   "deserialization_error",
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Deps{Client: &mockClient{err: tt.err}})
			c, rec := newJSONContext(http.MethodPost, "/v1/chat/completions",
				`{"model":"m","messages":[{"role":"user","content":"Hi"}]}`)

			require.NoError(t, h.ChatCompletion(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, decodeError(t, rec).Type)
		})
	}
}

func newMultipartContext(t *testing.T, target string, file []byte, fields map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if file != nil {
		part, err := w.CreateFormFile("file", "clip.m4a")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestTranscription(t *testing.T) {
	mock := &mockClient{sttResp: &groq.SpeechToTextResponse{Text: "hello world"}}
	h := NewHandler(Deps{Client: mock, Defaults: testDefaults})

	c, rec := newMultipartContext(t, "/v1/audio/transcriptions", []byte("RIFF-audio"), map[string]string{
		"language":    "en",
		"prompt":      "names: Dashi",
		"temperature": "0.4",
	})
	require.NoError(t, h.Transcription(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"hello world"}`, rec.Body.String())

	require.NotNil(t, mock.sttReq)
	assert.Equal(t, []byte("RIFF-audio"), mock.sttReq.File)
	assert.False(t, mock.sttReq.EnglishText)
	assert.Equal(t, "en", mock.sttReq.Language)
	assert.Equal(t, "names: Dashi", mock.sttReq.Prompt)
	assert.Equal(t, "whisper-large-v3", mock.sttReq.Model)
	require.NotNil(t, mock.sttReq.Temperature)
	assert.Equal(t, 0.4, *mock.sttReq.Temperature)
}

func TestTranslation(t *testing.T) {
	mock := &mockClient{sttResp: &groq.SpeechToTextResponse{Text: "good morning"}}
	h := NewHandler(Deps{Client: mock, Defaults: testDefaults})

	c, rec := newMultipartContext(t, "/v1/audio/translations", []byte("audio"), map[string]string{
		"model": "whisper-large-v3-turbo",
	})
	require.NoError(t, h.Translation(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, mock.sttReq)
	assert.True(t, mock.sttReq.EnglishText)
	assert.Equal(t, "whisper-large-v3-turbo", mock.sttReq.Model)
	assert.Empty(t, mock.sttReq.Language)
	assert.Nil(t, mock.sttReq.Temperature)
}

func TestSpeechToText_InvalidRequests(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		mock := &mockClient{}
		h := NewHandler(Deps{Client: mock})
		c, rec := newMultipartContext(t, "/v1/audio/transcriptions", nil, map[string]string{"language": "en"})

		require.NoError(t, h.Transcription(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file is required", decodeError(t, rec).Message)
		assert.Nil(t, mock.sttReq)
	})

	t.Run("bad temperature", func(t *testing.T) {
		mock := &mockClient{}
		h := NewHandler(Deps{Client: mock})
		c, rec := newMultipartContext(t, "/v1/audio/transcriptions", []byte("audio"), map[string]string{"temperature": "warm"})

		require.NoError(t, h.Transcription(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, mock.sttReq)
	})

	t.Run("api error", func(t *testing.T) {
		mock := &mockClient{err: &groq.APIError{Message: "file too large", Type: "invalid_request_error", StatusCode: 413}}
		h := NewHandler(Deps{Client: mock})
		c, rec := newMultipartContext(t, "/v1/audio/transcriptions", []byte("audio"), nil)

		require.NoError(t, h.Transcription(c))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "file too large", decodeError(t, rec).Message)
	})
}

func TestSpeech(t *testing.T) {
	audio := []byte{'R', 'I', 'F', 'F', 0x00, 0xff, 0x10}
	mock := &mockClient{ttsResp: &groq.TextToSpeechResponse{AudioData: audio}}
	h := NewHandler(Deps{Client: mock, Defaults: testDefaults})

	c, rec := newJSONContext(http.MethodPost, "/v1/audio/speech", `{"input":"Hello","speed":1.5}`)
	require.NoError(t, h.Speech(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, audio, rec.Body.Bytes())

	require.NotNil(t, mock.ttsReq)
	assert.Equal(t, "playai-tts", mock.ttsReq.Model)
	assert.Equal(t, "Fritz-PlayAI", mock.ttsReq.Voice)
	require.NotNil(t, mock.ttsReq.Speed)
	assert.Equal(t, 1.5, *mock.ttsReq.Speed)
}

func TestSpeech_Errors(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		h := NewHandler(Deps{Client: &mockClient{}})
		c, rec := newJSONContext(http.MethodPost, "/v1/audio/speech", `{"voice":"Fritz-PlayAI"}`)

		require.NoError(t, h.Speech(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "input is required", decodeError(t, rec).Message)
	})

	t.Run("api error", func(t *testing.T) {
		mock := &mockClient{err: &groq.APIError{Message: "voice not found", Type: "invalid_request_error", StatusCode: 400}}
		h := NewHandler(Deps{Client: mock})
		c, rec := newJSONContext(http.MethodPost, "/v1/audio/speech", `{"input":"Hi","voice":"nobody"}`)

		require.NoError(t, h.Speech(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "voice not found", decodeError(t, rec).Message)
	})
}

func TestSpeak(t *testing.T) {
	tests := []struct {
		name       string
		speaker    speech.Speaker
		body       string
		wantStatus int
	}{
		{"speaks", &mockSpeaker{}, `{"text":"Hello"}`, http.StatusAccepted},
		{"empty text", &mockSpeaker{}, `{"text":""}`, http.StatusBadRequest},
		{"unsupported platform", &mockSpeaker{err: speech.ErrUnsupported}, `{"text":"Hello"}`, http.StatusNotImplemented},
		{"command failed", &mockSpeaker{err: errors.New("exec: \"say\": not found")}, `{"text":"Hello"}`, http.StatusInternalServerError},
		{"no speaker", nil, `{"text":"Hello"}`, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Deps{Client: &mockClient{}, Speaker: tt.speaker})
			c, rec := newJSONContext(http.MethodPost, "/v1/speak", tt.body)

			require.NoError(t, h.Speak(c))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("forwards text", func(t *testing.T) {
		sp := &mockSpeaker{}
		h := NewHandler(Deps{Client: &mockClient{}, Speaker: sp})
		c, _ := newJSONContext(http.MethodPost, "/v1/speak", `{"text":"it's Dashi's turn"}`)

		require.NoError(t, h.Speak(c))
		assert.Equal(t, "it's Dashi's turn", sp.text)
	})
}

func TestUsage(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("summary", func(t *testing.T) {
		reader := &mockUsage{summary: []usage.OperationSummary{
			{Operation: "chat_completion", Requests: 3, Errors: 1, TotalTokens: 42},
		}}
		h := NewHandler(Deps{Client: &mockClient{}, Usage: reader})
		h.now = func() time.Time { return now }

		c, rec := newJSONContext(http.MethodGet, "/v1/usage?since=2h", "")
		require.NoError(t, h.Usage(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, now.Add(-2*time.Hour), reader.since)

		var resp UsageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Operations, 1)
		assert.Equal(t, int64(3), resp.Operations[0].Requests)
		assert.Equal(t, int64(42), resp.Operations[0].TotalTokens)
	})

	t.Run("empty summary is an empty list", func(t *testing.T) {
		h := NewHandler(Deps{Client: &mockClient{}, Usage: &mockUsage{}})
		c, rec := newJSONContext(http.MethodGet, "/v1/usage", "")

		require.NoError(t, h.Usage(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"operations":[]`)
	})

	t.Run("bad since", func(t *testing.T) {
		h := NewHandler(Deps{Client: &mockClient{}, Usage: &mockUsage{}})
		c, rec := newJSONContext(http.MethodGet, "/v1/usage?since=yesterday", "")

		require.NoError(t, h.Usage(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		for _, reader := range []UsageReader{nil, &usage.NoopLogger{}} {
			h := NewHandler(Deps{Client: &mockClient{}, Usage: reader})
			c, rec := newJSONContext(http.MethodGet, "/v1/usage", "")

			require.NoError(t, h.Usage(c))
			assert.Equal(t, http.StatusNotFound, rec.Code)
		}
	})
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", now.Add(-24 * time.Hour), false},
		{"30m", now.Add(-30 * time.Minute), false},
		{"2026-03-01T00:00:00Z", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2026-03-01T02:00:00+02:00", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"-1h", time.Time{}, true},
		{"2026-03-01", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSince(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
