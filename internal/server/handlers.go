// Package server exposes the Groq client over a local HTTP API so that a
// desktop UI can drive chat, transcription and speech without holding the
// API key itself.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"groqkit/internal/cache"
	"groqkit/internal/speech"
	"groqkit/internal/usage"
	"groqkit/pkg/groq"
)

// Client is the part of the Groq client the handlers call.
type Client interface {
	ChatCompletion(ctx context.Context, req groq.ChatCompletionRequest) (*groq.ChatCompletionResponse, error)
	SpeechToText(ctx context.Context, req groq.SpeechToTextRequest) (*groq.SpeechToTextResponse, error)
	TextToSpeech(ctx context.Context, req groq.TextToSpeechRequest) (*groq.TextToSpeechResponse, error)
}

// UsageReader answers ledger queries.
type UsageReader interface {
	Summary(ctx context.Context, since time.Time) ([]usage.OperationSummary, error)
}

// Defaults fill in request fields the caller left empty.
type Defaults struct {
	ChatModel          string
	TranscriptionModel string
	SpeechModel        string
	SpeechVoice        string
}

// Deps are the collaborators the handlers need. Only Client is required.
type Deps struct {
	Client Client
	// Chat serves chat completions instead of Client when set, typically a cache.
	Chat     cache.ChatCompleter
	Speaker  speech.Speaker
	Usage    UsageReader
	Defaults Defaults
}

// Handler holds the HTTP handlers
type Handler struct {
	client   Client
	chat     cache.ChatCompleter
	speaker  speech.Speaker
	usage    UsageReader
	defaults Defaults
	now      func() time.Time
}

// NewHandler creates a new handler with the given dependencies
func NewHandler(deps Deps) *Handler {
	chat := deps.Chat
	if chat == nil {
		chat = deps.Client
	}
	return &Handler{
		client:   deps.Client,
		chat:     chat,
		speaker:  deps.Speaker,
		usage:    deps.Usage,
		defaults: deps.Defaults,
		now:      time.Now,
	}
}

// Health handles GET /health
//
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ChatCompletion handles POST /v1/chat/completions
//
// @Summary      Create a chat completion
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      groq.ChatCompletionRequest  true  "Chat completion request"
// @Success      200      {object}  groq.ChatCompletionResponse
// @Failure      400      {object}  ErrorBody
// @Failure      502      {object}  ErrorBody
// @Router       /v1/chat/completions [post]
func (h *Handler) ChatCompletion(c echo.Context) error {
	var req groq.ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}
	if len(req.Messages) == 0 {
		return invalidRequest(c, "messages is required")
	}
	if req.IsStream() {
		return invalidRequest(c, "streaming is not supported")
	}
	if req.Model == "" {
		req.Model = h.defaults.ChatModel
	}

	resp, err := h.chat.ChatCompletion(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Transcription handles POST /v1/audio/transcriptions
//
// @Summary      Transcribe audio
// @Tags         audio
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        file         formData  file    true   "Audio file"
// @Param        model        formData  string  false  "Model"
// @Param        language     formData  string  false  "Spoken language (ISO-639-1)"
// @Param        prompt       formData  string  false  "Prompt to guide the transcription"
// @Param        temperature  formData  number  false  "Sampling temperature"
// @Success      200  {object}  groq.SpeechToTextResponse
// @Failure      400  {object}  ErrorBody
// @Failure      502  {object}  ErrorBody
// @Router       /v1/audio/transcriptions [post]
func (h *Handler) Transcription(c echo.Context) error {
	return h.speechToText(c, false)
}

// Translation handles POST /v1/audio/translations
//
// @Summary      Translate audio into English text
// @Tags         audio
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        file         formData  file    true   "Audio file"
// @Param        model        formData  string  false  "Model"
// @Param        prompt       formData  string  false  "Prompt to guide the translation"
// @Param        temperature  formData  number  false  "Sampling temperature"
// @Success      200  {object}  groq.SpeechToTextResponse
// @Failure      400  {object}  ErrorBody
// @Failure      502  {object}  ErrorBody
// @Router       /v1/audio/translations [post]
func (h *Handler) Translation(c echo.Context) error {
	return h.speechToText(c, true)
}

func (h *Handler) speechToText(c echo.Context, englishText bool) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return invalidRequest(c, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return invalidRequest(c, "failed to open uploaded file")
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		return invalidRequest(c, "failed to read uploaded file")
	}

	req := groq.NewSpeechToTextRequest(data).
		WithEnglishText(englishText).
		WithModel(h.defaults.TranscriptionModel).
		WithLanguage(c.FormValue("language")).
		WithPrompt(c.FormValue("prompt"))
	if model := c.FormValue("model"); model != "" {
		req = req.WithModel(model)
	}
	if v := c.FormValue("temperature"); v != "" {
		temperature, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalidRequest(c, "temperature must be a number")
		}
		req = req.WithTemperature(temperature)
	}

	resp, err := h.client.SpeechToText(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Speech handles POST /v1/audio/speech
//
// @Summary      Synthesize speech
// @Tags         audio
// @Accept       json
// @Produce      audio/wav
// @Security     BearerAuth
// @Param        request  body      groq.TextToSpeechRequest  true  "Speech request"
// @Success      200      {file}    binary
// @Failure      400      {object}  ErrorBody
// @Failure      502      {object}  ErrorBody
// @Router       /v1/audio/speech [post]
func (h *Handler) Speech(c echo.Context) error {
	var req groq.TextToSpeechRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}
	if req.Input == "" {
		return invalidRequest(c, "input is required")
	}
	if req.Model == "" {
		req.Model = h.defaults.SpeechModel
	}
	if req.Voice == "" {
		req.Voice = h.defaults.SpeechVoice
	}

	resp, err := h.client.TextToSpeech(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.Blob(http.StatusOK, "audio/wav", resp.AudioData)
}

// SpeakRequest is the body of POST /v1/speak.
type SpeakRequest struct {
	Text string `json:"text"`
}

// Speak handles POST /v1/speak
//
// @Summary      Speak text with the host's voice
// @Tags         audio
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      SpeakRequest  true  "Text to speak"
// @Success      202      {object}  map[string]string
// @Failure      400      {object}  ErrorBody
// @Failure      501      {object}  ErrorBody
// @Router       /v1/speak [post]
func (h *Handler) Speak(c echo.Context) error {
	if h.speaker == nil {
		return writeError(c, http.StatusNotImplemented, "not_implemented_error", "local speech is not configured")
	}

	var req SpeakRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c, "invalid request body: "+err.Error())
	}
	if req.Text == "" {
		return invalidRequest(c, "text is required")
	}

	if err := h.speaker.Speak(c.Request().Context(), req.Text); err != nil {
		if errors.Is(err, speech.ErrUnsupported) {
			return writeError(c, http.StatusNotImplemented, "not_implemented_error", err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "speech_error", err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "speaking"})
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Since      time.Time                `json:"since"`
	Operations []usage.OperationSummary `json:"operations"`
}

// defaultUsageWindow applies when no since parameter is given.
const defaultUsageWindow = 24 * time.Hour

// Usage handles GET /v1/usage
//
// @Summary      Summarize recorded calls per operation
// @Tags         usage
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     string  false  "RFC 3339 timestamp or a duration such as 1h (default 24h)"
// @Success      200    {object}  UsageResponse
// @Failure      400    {object}  ErrorBody
// @Failure      404    {object}  ErrorBody
// @Router       /v1/usage [get]
func (h *Handler) Usage(c echo.Context) error {
	if h.usage == nil {
		return writeError(c, http.StatusNotFound, "not_found_error", usage.ErrDisabled.Error())
	}

	since, err := parseSince(c.QueryParam("since"), h.now())
	if err != nil {
		return invalidRequest(c, err.Error())
	}

	summary, err := h.usage.Summary(c.Request().Context(), since)
	if errors.Is(err, usage.ErrDisabled) {
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error())
	}
	if err != nil {
		return handleError(c, err)
	}
	if summary == nil {
		summary = []usage.OperationSummary{}
	}
	return c.JSON(http.StatusOK, UsageResponse{Since: since, Operations: summary})
}

// parseSince accepts an RFC 3339 timestamp or a positive duration counted back from now.
func parseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return now.Add(-defaultUsageWindow).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return time.Time{}, errors.New("since must be an RFC 3339 timestamp or a positive duration")
	}
	return now.Add(-d).UTC(), nil
}
