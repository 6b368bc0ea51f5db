package groq

import (
	"context"
)

// Future is the pending result of a call started by AsyncClient.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func spawn[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result waits for the call to finish and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await waits for the call or for ctx, whichever ends first. Giving up on
// ctx does not cancel the call; cancel the context passed to the call for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncClient is the non-blocking Groq client. Every method returns at once;
// any number of calls may be in flight on the same client, and they complete
// in no particular order.
type AsyncClient struct {
	e *engine
}

// NewAsync creates a non-blocking client. No network I/O happens here.
func NewAsync(apiKey string, opts ...Option) *AsyncClient {
	return &AsyncClient{e: newEngine(apiKey, opts)}
}

// Endpoint returns the configured API base URL.
func (c *AsyncClient) Endpoint() string {
	return c.e.endpoint
}

// Blocking returns a blocking client sharing this client's configuration and connections.
func (c *AsyncClient) Blocking() *Client {
	return &Client{e: c.e}
}

// ChatCompletion starts a chat completion request.
func (c *AsyncClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) *Future[*ChatCompletionResponse] {
	return spawn(func() (*ChatCompletionResponse, error) {
		return c.e.chatCompletion(ctx, req)
	})
}

// SpeechToText starts a transcription or translation request.
func (c *AsyncClient) SpeechToText(ctx context.Context, req SpeechToTextRequest) *Future[*SpeechToTextResponse] {
	return spawn(func() (*SpeechToTextResponse, error) {
		return c.e.speechToText(ctx, req)
	})
}

// TextToSpeech starts a speech synthesis request.
func (c *AsyncClient) TextToSpeech(ctx context.Context, req TextToSpeechRequest) *Future[*TextToSpeechResponse] {
	return spawn(func() (*TextToSpeechResponse, error) {
		return c.e.textToSpeech(ctx, req)
	})
}
