// Package docs registers the OpenAPI description of the groqkit HTTP API
// with swag so that echo-swagger can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/v1/chat/completions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chat"],
                "summary": "Create a chat completion",
                "parameters": [
                    {"description": "Chat completion request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/groq.ChatCompletionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/groq.ChatCompletionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorBody"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/server.ErrorBody"}}
                }
            }
        },
        "/v1/audio/transcriptions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["audio"],
                "summary": "Transcribe audio",
                "parameters": [
                    {"type": "file", "description": "Audio file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Model", "name": "model", "in": "formData"},
                    {"type": "string", "description": "Spoken language (ISO-639-1)", "name": "language", "in": "formData"},
                    {"type": "string", "description": "Prompt to guide the transcription", "name": "prompt", "in": "formData"},
                    {"type": "number", "description": "Sampling temperature", "name": "temperature", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/groq.SpeechToTextResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorBody"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/server.ErrorBody"}}
                }
            }
        },
        "/v1/audio/translations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["audio"],
                "summary": "Translate audio into English text",
                "parameters": [
                    {"type": "file", "description": "Audio file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Model", "name": "model", "in": "formData"},
                    {"type": "string", "description": "Prompt to guide the translation", "name": "prompt", "in": "formData"},
                    {"type": "number", "description": "Sampling temperature", "name": "temperature", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/groq.SpeechToTextResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorBody"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/server.ErrorBody"}}
                }
            }
        },
        "/v1/audio/speech": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["audio/wav"],
                "tags": ["audio"],
                "summary": "Synthesize speech",
                "parameters": [
                    {"description": "Speech request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/groq.TextToSpeechRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorBody"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/server.ErrorBody"}}
                }
            }
        },
        "/v1/speak": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audio"],
                "summary": "Speak text with the host's voice",
                "parameters": [
                    {"description": "Text to speak", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.SpeakRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorBody"}},
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/server.ErrorBody"}}
                }
            }
        },
        "/v1/usage": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["usage"],
                "summary": "Summarize recorded calls per operation",
                "parameters": [
                    {"type": "string", "description": "RFC 3339 timestamp or a duration such as 1h (default 24h)", "name": "since", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.UsageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "groq.ChatMessage": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["system", "user", "assistant"]},
                "content": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "groq.ChatCompletionRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/groq.ChatMessage"}},
                "temperature": {"type": "number"},
                "max_tokens": {"type": "integer"},
                "top_p": {"type": "number"},
                "stream": {"type": "boolean"},
                "stop": {},
                "seed": {"type": "integer"}
            }
        },
        "groq.Choice": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "message": {"$ref": "#/definitions/groq.ChatMessage"},
                "finish_reason": {"type": "string"}
            }
        },
        "groq.Usage": {
            "type": "object",
            "properties": {
                "prompt_tokens": {"type": "integer"},
                "completion_tokens": {"type": "integer"},
                "total_tokens": {"type": "integer"}
            }
        },
        "groq.ChatCompletionResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "object": {"type": "string"},
                "created": {"type": "integer"},
                "model": {"type": "string"},
                "choices": {"type": "array", "items": {"$ref": "#/definitions/groq.Choice"}},
                "usage": {"$ref": "#/definitions/groq.Usage"}
            }
        },
        "groq.SpeechToTextResponse": {
            "type": "object",
            "properties": {
                "text": {"type": "string"}
            }
        },
        "groq.TextToSpeechRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string"},
                "input": {"type": "string"},
                "voice": {"type": "string"},
                "speed": {"type": "number"}
            }
        },
        "server.ErrorDetail": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "message": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "server.ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/server.ErrorDetail"}
            }
        },
        "server.SpeakRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"}
            }
        },
        "usage.OperationSummary": {
            "type": "object",
            "properties": {
                "operation": {"type": "string"},
                "requests": {"type": "integer"},
                "errors": {"type": "integer"},
                "input_tokens": {"type": "integer"},
                "output_tokens": {"type": "integer"},
                "total_tokens": {"type": "integer"},
                "audio_bytes": {"type": "integer"}
            }
        },
        "server.UsageResponse": {
            "type": "object",
            "properties": {
                "since": {"type": "string"},
                "operations": {"type": "array", "items": {"$ref": "#/definitions/usage.OperationSummary"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "groqkit API",
	Description:      "Local HTTP bridge to the Groq chat, speech-to-text and text-to-speech APIs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
