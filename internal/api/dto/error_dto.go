package dto

import (
	"bytes"
	"encoding/json"

	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// ErrorResponse is the body of every failed sandbox request.
type ErrorResponse struct {
	Message string      `json:"message"`
	Errors  FieldErrors `json:"errors,omitempty"`
}

// CredentialsErrorResponse is the body of a rejected login.
type CredentialsErrorResponse struct {
	Error string `json:"error"`
}

// FieldErrors renders as a JSON object keyed by field, in slice order.
type FieldErrors []apperrors.FieldError

// MarshalJSON implements json.Marshaler.
func (f FieldErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fe := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fe.Field)
		if err != nil {
			return nil, err
		}
		msgs := fe.Messages
		if msgs == nil {
			msgs = []string{}
		}
		val, err := json.Marshal(msgs)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
