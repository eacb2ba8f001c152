package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// FallbackMessage is used when no failure source carries a readable message.
const FallbackMessage = "An unknown error occurred."

// Normalize maps any failure returned by the transport into a DomainError.
// Errors that are already DomainErrors pass through unchanged.
func Normalize(err error) *apperrors.DomainError {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = FallbackMessage
	}
	return &apperrors.DomainError{Code: apperrors.CodeTransport, Message: message, Err: err}
}

// NormalizeResponse maps a non-2xx response into a DomainError.
//
// Message precedence: first message of the first field error, then the
// top-level "message" or "error", then a generic status message, then
// FallbackMessage.
func NormalizeResponse(status int, body []byte) *apperrors.DomainError {
	parsed := parseErrorBody(body)

	message := ""
	switch {
	case len(parsed.fields) > 0 && len(parsed.fields[0].Messages) > 0:
		message = parsed.fields[0].Messages[0]
	case parsed.message != "":
		message = parsed.message
	case status > 0:
		message = fmt.Sprintf("Request failed with status code %d", status)
	}
	if strings.TrimSpace(message) == "" {
		message = FallbackMessage
	}

	return &apperrors.DomainError{
		Code:       codeForStatus(status, len(parsed.fields) > 0),
		Message:    message,
		HTTPStatus: status,
		Fields:     parsed.fields,
	}
}

func codeForStatus(status int, hasFields bool) string {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return apperrors.CodeForbidden
	case status == http.StatusNotFound:
		return apperrors.CodeNotFound
	case status == http.StatusConflict:
		return apperrors.CodeConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, hasFields:
		return apperrors.CodeValidation
	default:
		return apperrors.CodeServer
	}
}

type errorBody struct {
	message string
	fields  []apperrors.FieldError
}

func parseErrorBody(body []byte) errorBody {
	var out errorBody
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return out
	}

	var raw struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return out
	}

	out.fields = parseFieldErrors(raw.Errors)
	if msg := messageFrom(raw.Message); msg != "" {
		out.message = msg
	} else {
		out.message = messageFrom(raw.Error)
	}
	return out
}

// messageFrom accepts either a JSON string or an object carrying "message".
func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// parseFieldErrors walks the "errors" object token by token so the
// backend's field order survives; map decoding would lose it.
func parseFieldErrors(raw json.RawMessage) []apperrors.FieldError {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var fields []apperrors.FieldError
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fields
		}
		key, ok := keyTok.(string)
		if !ok {
			return fields
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fields
		}
		messages := fieldMessages(value)
		if len(messages) == 0 {
			continue
		}
		fields = append(fields, apperrors.FieldError{Field: key, Messages: messages})
	}
	return fields
}

func fieldMessages(value json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		out := list[:0]
		for _, m := range list {
			if strings.TrimSpace(m) != "" {
				out = append(out, m)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil && strings.TrimSpace(single) != "" {
		return []string{single}
	}
	return nil
}
