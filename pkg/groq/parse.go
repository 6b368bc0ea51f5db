package groq

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	errInvalidJSON    = errors.New("response body is not valid JSON")
	errMissingChoices = errors.New(`response envelope has no "choices" array`)
)

// rawResponse is a completed HTTP exchange with its body fully read.
type rawResponse struct {
	StatusCode int
	Body       []byte
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// parseJSONResponse classifies a JSON-returning response. On success the body
// is returned as-is once it is known to be JSON; typed decoding happens in the
// caller. On failure the body is turned into an *APIError.
func parseJSONResponse(resp *rawResponse, target string) ([]byte, error) {
	if !isSuccess(resp.StatusCode) {
		return nil, apiErrorFrom(resp.StatusCode, resp.Body)
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, newDeserializationError(target, resp.Body, errInvalidJSON)
	}
	return resp.Body, nil
}

// apiErrorFrom builds the error for a non-success response. The envelope's
// error object is used when present, with per-field fallbacks; anything else
// yields a message synthesized from the status code.
func apiErrorFrom(status int, body []byte) *APIError {
	if gjson.ValidBytes(body) {
		if obj := gjson.GetBytes(body, "error"); obj.IsObject() {
			apiErr := &APIError{
				Message:    unknownErrorMessage,
				Type:       unknownErrorType,
				StatusCode: status,
			}
			if msg := obj.Get("message"); msg.Type == gjson.String {
				apiErr.Message = msg.String()
			}
			if typ := obj.Get("type"); typ.Type == gjson.String {
				apiErr.Type = typ.String()
			}
			if code := obj.Get("code"); code.Exists() && code.Type != gjson.Null {
				apiErr.Code = code.String()
			}
			return apiErr
		}
	}
	return &APIError{
		Message:    fmt.Sprintf("Request failed with status code: %d", status),
		Type:       requestErrorType,
		StatusCode: status,
	}
}

// decodeInto decodes a JSON body into a fresh T.
func decodeInto[T any](body []byte, target string) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, newDeserializationError(target, body, err)
	}
	return &out, nil
}

func interpretChatCompletion(resp *rawResponse) (*ChatCompletionResponse, error) {
	const target = "chat completion response"
	body, err := parseJSONResponse(resp, target)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(body, "choices").IsArray() {
		return nil, newDeserializationError(target, body, errMissingChoices)
	}
	return decodeInto[ChatCompletionResponse](body, target)
}

func interpretSpeechToText(resp *rawResponse) (*SpeechToTextResponse, error) {
	const target = "speech-to-text response"
	body, err := parseJSONResponse(resp, target)
	if err != nil {
		return nil, err
	}
	return decodeInto[SpeechToTextResponse](body, target)
}

// interpretTextToSpeech returns the body untouched on success; only failures
// are read as JSON.
func interpretTextToSpeech(resp *rawResponse) (*TextToSpeechResponse, error) {
	if !isSuccess(resp.StatusCode) {
		return nil, apiErrorFrom(resp.StatusCode, resp.Body)
	}
	return &TextToSpeechResponse{AudioData: resp.Body}, nil
}
