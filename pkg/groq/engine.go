package groq

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type requestIDKey struct{}

// ContextWithRequestID returns a context whose requests carry the given X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestInfo describes a call as it starts.
type RequestInfo struct {
	Operation Operation
	Model     string
	Endpoint  string
	RequestID string
}

// ResponseInfo describes a finished call. StatusCode is zero when no
// response was received.
type ResponseInfo struct {
	RequestInfo
	StatusCode int
	Duration   time.Duration
	Err        error
	ResponseID string
	Usage      *Usage
	AudioBytes int
}

// Hooks observe client calls. Either function may be nil.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}

// JoinHooks combines hooks so that each runs in the given order.
func JoinHooks(hooks ...Hooks) Hooks {
	return Hooks{
		OnRequestStart: func(ctx context.Context, info RequestInfo) context.Context {
			for _, h := range hooks {
				if h.OnRequestStart != nil {
					ctx = h.OnRequestStart(ctx, info)
				}
			}
			return ctx
		},
		OnRequestEnd: func(ctx context.Context, info ResponseInfo) {
			for _, h := range hooks {
				if h.OnRequestEnd != nil {
					h.OnRequestEnd(ctx, info)
				}
			}
		},
	}
}

// engine holds the immutable configuration shared by both client modes and
// performs a single request/response exchange.
type engine struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	hooks      Hooks
	logger     *slog.Logger
}

// execute runs one prepared request to completion: send, read, interpret.
func execute[T any](ctx context.Context, e *engine, p *preparedRequest, interpret func(*rawResponse) (*T, error)) (*T, error) {
	info := RequestInfo{
		Operation: p.Operation,
		Model:     p.Model,
		Endpoint:  p.Path,
		RequestID: RequestIDFromContext(ctx),
	}
	if e.hooks.OnRequestStart != nil {
		ctx = e.hooks.OnRequestStart(ctx, info)
	}

	start := time.Now()
	var out *T
	raw, err := e.roundTrip(ctx, p)
	if err == nil {
		out, err = interpret(raw)
	}

	end := ResponseInfo{
		RequestInfo: info,
		Duration:    time.Since(start),
		Err:         err,
	}
	if raw != nil {
		end.StatusCode = raw.StatusCode
	}
	describeResult(&end, out)

	e.logger.DebugContext(ctx, "groq request finished",
		"operation", p.Operation,
		"model", p.Model,
		"status", end.StatusCode,
		"duration", end.Duration,
		"error", err,
	)
	if e.hooks.OnRequestEnd != nil {
		e.hooks.OnRequestEnd(ctx, end)
	}
	return out, err
}

func describeResult(info *ResponseInfo, result any) {
	switch r := result.(type) {
	case *ChatCompletionResponse:
		if r != nil {
			info.ResponseID = r.ID
			usage := r.Usage
			info.Usage = &usage
		}
	case *TextToSpeechResponse:
		if r != nil {
			info.AudioBytes = len(r.AudioData)
		}
	}
}

func (e *engine) roundTrip(ctx context.Context, p *preparedRequest) (*rawResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+p.Path, bytes.NewReader(p.Body))
	if err != nil {
		return nil, newTransportError("build request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	httpReq.Header.Set("Content-Type", p.ContentType)
	if id := RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, newTransportError("send request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError("read response", err)
	}
	return &rawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func (e *engine) chatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	p, err := buildChatCompletion(req)
	if err != nil {
		return nil, err
	}
	return execute(ctx, e, p, interpretChatCompletion)
}

func (e *engine) speechToText(ctx context.Context, req SpeechToTextRequest) (*SpeechToTextResponse, error) {
	p, err := buildSpeechToText(req)
	if err != nil {
		return nil, err
	}
	return execute(ctx, e, p, interpretSpeechToText)
}

func (e *engine) textToSpeech(ctx context.Context, req TextToSpeechRequest) (*TextToSpeechResponse, error) {
	p, err := buildTextToSpeech(req)
	if err != nil {
		return nil, err
	}
	return execute(ctx, e, p, interpretTextToSpeech)
}
