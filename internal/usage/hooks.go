package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"groqkit/pkg/groq"
)

// NewHooks returns client hooks that write one entry per finished call.
func NewHooks(logger LoggerInterface) groq.Hooks {
	return groq.Hooks{
		OnRequestEnd: func(_ context.Context, info groq.ResponseInfo) {
			logger.Write(EntryFromResponse(info))
		},
	}
}

// EntryFromResponse converts a finished call into a ledger entry.
func EntryFromResponse(info groq.ResponseInfo) *Entry {
	e := &Entry{
		ID:         uuid.NewString(),
		RequestID:  info.RequestID,
		Timestamp:  time.Now().UTC(),
		Operation:  string(info.Operation),
		Model:      info.Model,
		Endpoint:   info.Endpoint,
		StatusCode: info.StatusCode,
		DurationMS: info.Duration.Milliseconds(),
		ResponseID: info.ResponseID,
		AudioBytes: info.AudioBytes,
	}

	if info.Err != nil {
		e.ErrorKind = string(groq.KindOf(info.Err))
		var apiErr *groq.APIError
		if errors.As(info.Err, &apiErr) {
			e.ErrorType = apiErr.Type
		}
	}

	if info.Usage != nil {
		e.InputTokens = info.Usage.PromptTokens
		e.OutputTokens = info.Usage.CompletionTokens
		e.TotalTokens = info.Usage.TotalTokens
	}
	return e
}
