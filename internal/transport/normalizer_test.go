package transport

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

func TestNormalizeResponsePrecedence(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{
			name:    "first field first message wins",
			status:  http.StatusUnprocessableEntity,
			body:    `{"message":"The given data was invalid.","errors":{"email":["The email has already been taken.","second"],"name":["The name field is required."]}}`,
			message: "The email has already been taken.",
			code:    apperrors.CodeValidation,
		},
		{
			name:    "field order follows the body not the alphabet",
			status:  http.StatusUnprocessableEntity,
			body:    `{"errors":{"zeta":["zeta failed"],"alpha":["alpha failed"]}}`,
			message: "zeta failed",
			code:    apperrors.CodeValidation,
		},
		{
			name:    "top level message",
			status:  http.StatusNotFound,
			body:    `{"message":"Service page not found."}`,
			message: "Service page not found.",
			code:    apperrors.CodeNotFound,
		},
		{
			name:    "error string when no message",
			status:  http.StatusUnauthorized,
			body:    `{"error":"Unauthorized"}`,
			message: "Unauthorized",
			code:    apperrors.CodeUnauthorized,
		},
		{
			name:    "error object with message",
			status:  http.StatusConflict,
			body:    `{"error":{"code":"CONFLICT","message":"already handled"}}`,
			message: "already handled",
			code:    apperrors.CodeConflict,
		},
		{
			name:    "generic status message for html bodies",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			message: "Request failed with status code 502",
			code:    apperrors.CodeServer,
		},
		{
			name:    "fallback without status",
			status:  0,
			body:    ``,
			message: FallbackMessage,
			code:    apperrors.CodeServer,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NormalizeResponse(tc.status, []byte(tc.body))
			assert.Equal(t, tc.message, err.Message)
			assert.Equal(t, tc.code, err.Code)
			assert.Equal(t, tc.status, err.HTTPStatus)
		})
	}
}

func TestNormalizeResponseKeepsAllFields(t *testing.T) {
	err := NormalizeResponse(http.StatusUnprocessableEntity,
		[]byte(`{"errors":{"password":["too short"],"email":"invalid email"}}`))

	require.Len(t, err.Fields, 2)
	assert.Equal(t, "password", err.Fields[0].Field)
	assert.Equal(t, []string{"invalid email"}, err.Fields[1].Messages)
	assert.Equal(t, map[string][]string{
		"password": {"too short"},
		"email":    {"invalid email"},
	}, err.FieldMessages())
}

func TestNormalizeTransportError(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	err := Normalize(cause)

	assert.Equal(t, apperrors.CodeTransport, err.Code)
	assert.Equal(t, cause.Error(), err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Normalize(nil))
}

func TestNormalizePassesDomainErrorsThrough(t *testing.T) {
	original := apperrors.NewConflict("taken", nil)
	assert.Same(t, original, Normalize(original))
}
