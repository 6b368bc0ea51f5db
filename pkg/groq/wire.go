package groq

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"strconv"
)

const (
	chatCompletionsPath = "/chat/completions"
	transcriptionsPath  = "/audio/transcriptions"
	translationsPath    = "/audio/translations"
	speechPath          = "/audio/speech"

	// audioFileName is fixed by the upload contract, whatever the actual encoding.
	audioFileName = "audio.wav"

	contentTypeJSON = "application/json"
)

// Operation names a client call. It is reported to hooks.
type Operation string

const (
	OpChatCompletion Operation = "chat_completion"
	OpTranscription  Operation = "transcription"
	OpTranslation    Operation = "translation"
	OpTextToSpeech   Operation = "text_to_speech"
)

// preparedRequest is an encoded request, independent of how it will be executed.
type preparedRequest struct {
	Operation   Operation
	Model       string
	Path        string
	ContentType string
	Body        []byte
}

func buildChatCompletion(req ChatCompletionRequest) (*preparedRequest, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newTransportError("encode chat completion request", err)
	}
	return &preparedRequest{
		Operation:   OpChatCompletion,
		Model:       req.Model,
		Path:        chatCompletionsPath,
		ContentType: contentTypeJSON,
		Body:        body,
	}, nil
}

// speechToTextPath picks the endpoint: translation into English or plain transcription.
func speechToTextPath(englishText bool) (string, Operation) {
	if englishText {
		return translationsPath, OpTranslation
	}
	return transcriptionsPath, OpTranscription
}

func buildSpeechToText(req SpeechToTextRequest) (*preparedRequest, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", audioFileName)
	if err != nil {
		return nil, newTransportError("encode speech-to-text form", err)
	}
	if _, err := part.Write(req.File); err != nil {
		return nil, newTransportError("encode speech-to-text form", err)
	}

	fields := make([][2]string, 0, 4)
	if req.Temperature != nil {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(*req.Temperature, 'f', -1, 64)})
	}
	if req.Language != "" {
		fields = append(fields, [2]string{"language", req.Language})
	}
	if req.Model != "" {
		fields = append(fields, [2]string{"model", req.Model})
	}
	if req.Prompt != "" {
		fields = append(fields, [2]string{"prompt", req.Prompt})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, newTransportError("encode speech-to-text form", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, newTransportError("encode speech-to-text form", err)
	}

	path, op := speechToTextPath(req.EnglishText)
	return &preparedRequest{
		Operation:   op,
		Model:       req.Model,
		Path:        path,
		ContentType: w.FormDataContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func buildTextToSpeech(req TextToSpeechRequest) (*preparedRequest, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newTransportError("encode text-to-speech request", err)
	}
	return &preparedRequest{
		Operation:   OpTextToSpeech,
		Model:       req.Model,
		Path:        speechPath,
		ContentType: contentTypeJSON,
		Body:        body,
	}, nil
}
