package groq

import (
	"encoding/json"
)

// Default values applied when a request is serialized.
const (
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 1024
	DefaultTopP        = 1.0
	DefaultSpeed       = 1.0
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single message in a conversation.
// Name is optional and omitted from the payload when empty.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// SystemMessage, UserMessage and AssistantMessage are shorthands for building conversations.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// ChatCompletionRequest describes a chat completion call.
//
// Optional fields are pointers and stay nil until the request is serialized;
// MarshalJSON fills in the defaults so the wire form never carries nulls.
// Stop accepts a string or a list of strings.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stream      *bool         `json:"stream,omitempty"`
	Stop        any           `json:"stop,omitempty"`
	Seed        *int          `json:"seed,omitempty"`
}

// NewChatCompletionRequest creates a request for model with the given messages.
func NewChatCompletionRequest(model string, messages []ChatMessage) ChatCompletionRequest {
	return ChatCompletionRequest{Model: model, Messages: messages}
}

func (r ChatCompletionRequest) WithTemperature(v float64) ChatCompletionRequest {
	r.Temperature = &v
	return r
}

func (r ChatCompletionRequest) WithMaxTokens(v int) ChatCompletionRequest {
	r.MaxTokens = &v
	return r
}

func (r ChatCompletionRequest) WithTopP(v float64) ChatCompletionRequest {
	r.TopP = &v
	return r
}

func (r ChatCompletionRequest) WithStream(v bool) ChatCompletionRequest {
	r.Stream = &v
	return r
}

func (r ChatCompletionRequest) WithStop(stop any) ChatCompletionRequest {
	r.Stop = stop
	return r
}

func (r ChatCompletionRequest) WithSeed(v int) ChatCompletionRequest {
	r.Seed = &v
	return r
}

// chatCompletionBody is the wire form of ChatCompletionRequest.
type chatCompletionBody struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
	Stop        any           `json:"stop,omitempty"`
	Seed        *int          `json:"seed,omitempty"`
}

func (r ChatCompletionRequest) wire() chatCompletionBody {
	body := chatCompletionBody{
		Model:       r.Model,
		Messages:    r.Messages,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
		Stop:        r.Stop,
		Seed:        r.Seed,
	}
	if body.Messages == nil {
		body.Messages = []ChatMessage{}
	}
	if r.Temperature != nil {
		body.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil {
		body.MaxTokens = *r.MaxTokens
	}
	if r.TopP != nil {
		body.TopP = *r.TopP
	}
	if r.Stream != nil {
		body.Stream = *r.Stream
	}
	return body
}

// MarshalJSON encodes the request in its wire form with defaults applied.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// IsStream reports whether the caller asked for a streamed response.
func (r ChatCompletionRequest) IsStream() bool {
	return r.Stream != nil && *r.Stream
}

// ChatCompletionResponse is the envelope returned by /chat/completions.
type ChatCompletionResponse struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint,omitempty"`
	Choices           []Choice `json:"choices"`
	Usage             Usage    `json:"usage"`
	XGroq             *XGroq   `json:"x_groq,omitempty"`
}

// FirstContent returns the content of the primary completion, or "" when there is none.
func (r *ChatCompletionResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Choice is a single completion candidate.
type Choice struct {
	Index        int             `json:"index"`
	Message      ChatMessage     `json:"message"`
	FinishReason string          `json:"finish_reason"`
	Logprobs     json.RawMessage `json:"logprobs,omitempty"`
}

// Usage reports token counts and server-side timings.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	QueueTime        float64 `json:"queue_time,omitempty"`
	PromptTime       float64 `json:"prompt_time,omitempty"`
	CompletionTime   float64 `json:"completion_time,omitempty"`
	TotalTime        float64 `json:"total_time,omitempty"`
}

// XGroq carries Groq-specific response metadata.
type XGroq struct {
	ID string `json:"id"`
}

// SpeechToTextRequest describes a transcription or translation call.
// EnglishText routes the call to the translation endpoint; it is not sent as a field.
type SpeechToTextRequest struct {
	File        []byte
	Temperature *float64
	Language    string
	Model       string
	Prompt      string
	EnglishText bool
}

// NewSpeechToTextRequest creates a request for the given audio bytes.
func NewSpeechToTextRequest(file []byte) SpeechToTextRequest {
	return SpeechToTextRequest{File: file}
}

func (r SpeechToTextRequest) WithTemperature(v float64) SpeechToTextRequest {
	r.Temperature = &v
	return r
}

func (r SpeechToTextRequest) WithLanguage(lang string) SpeechToTextRequest {
	r.Language = lang
	return r
}

func (r SpeechToTextRequest) WithModel(model string) SpeechToTextRequest {
	r.Model = model
	return r
}

func (r SpeechToTextRequest) WithPrompt(prompt string) SpeechToTextRequest {
	r.Prompt = prompt
	return r
}

func (r SpeechToTextRequest) WithEnglishText(v bool) SpeechToTextRequest {
	r.EnglishText = v
	return r
}

// SpeechToTextResponse holds the transcribed text. Any other fields of the
// envelope are kept in Extra and written back out by MarshalJSON.
type SpeechToTextResponse struct {
	Text  string                     `json:"text"`
	Extra map[string]json.RawMessage `json:"-"`
}

func (r *SpeechToTextResponse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Text = ""
	r.Extra = nil
	if raw, ok := fields["text"]; ok {
		if err := json.Unmarshal(raw, &r.Text); err != nil {
			return err
		}
		delete(fields, "text")
	}
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

func (r SpeechToTextResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["text"] = r.Text
	return json.Marshal(out)
}

// TextToSpeechRequest describes a speech synthesis call. Speed defaults to 1.0.
type TextToSpeechRequest struct {
	Model string   `json:"model"`
	Input string   `json:"input"`
	Voice string   `json:"voice"`
	Speed *float64 `json:"speed,omitempty"`
}

// NewTextToSpeechRequest creates a synthesis request.
func NewTextToSpeechRequest(model, input, voice string) TextToSpeechRequest {
	return TextToSpeechRequest{Model: model, Input: input, Voice: voice}
}

func (r TextToSpeechRequest) WithSpeed(v float64) TextToSpeechRequest {
	r.Speed = &v
	return r
}

type textToSpeechBody struct {
	Model string  `json:"model"`
	Input string  `json:"input"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

func (r TextToSpeechRequest) wire() textToSpeechBody {
	speed := DefaultSpeed
	if r.Speed != nil {
		speed = *r.Speed
	}
	return textToSpeechBody{Model: r.Model, Input: r.Input, Voice: r.Voice, Speed: speed}
}

// MarshalJSON encodes the request in its wire form with the default speed applied.
func (r TextToSpeechRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// TextToSpeechResponse holds the synthesized audio exactly as returned by the API.
type TextToSpeechResponse struct {
	AudioData []byte
}
