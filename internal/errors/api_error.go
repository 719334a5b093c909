package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultHTTPMessage       = "An error occurred"
	noResponseMessage        = "No response from server. Please check your connection."
	unexpectedFailureMessage = "An unexpected error occurred"
)

// APIError is the uniform shape every failure is classified into before it reaches the
// Session Manager or a Resource Store. Status is 0 when no response was received.
type APIError struct {
	Kind    error  `json:"-"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap exposes the error kind, ErrUnauthorized for 401s, and the underlying cause.
func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Status == http.StatusUnauthorized {
		errs = append(errs, ErrUnauthorized)
	}
	if e.Status == http.StatusNotFound {
		errs = append(errs, ErrNotFound)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// IsUnauthorized reports whether the server rejected the credential.
func (e *APIError) IsUnauthorized() bool {
	return e != nil && e.Status == http.StatusUnauthorized
}

// ClassifyHTTP builds an APIError from a non-2xx response. The message is taken from the
// body's "detail" or "message" field when present.
func ClassifyHTTP(status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:    ErrHTTP,
		Message: defaultHTTPMessage,
		Status:  status,
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return apiErr
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		apiErr.Data = trimmed
		return apiErr
	}
	apiErr.Data = decoded

	if fields, ok := decoded.(map[string]any); ok {
		if detail, ok := fields["detail"].(string); ok && detail != "" {
			apiErr.Message = detail
		} else if message, ok := fields["message"].(string); ok && message != "" {
			apiErr.Message = message
		}
	}
	return apiErr
}

// ClassifyNetwork builds an APIError for a request that never received a response.
func ClassifyNetwork(err error) *APIError {
	return &APIError{
		Kind:    ErrNetwork,
		Message: noResponseMessage,
		Status:  0,
		cause:   err,
	}
}

// Classify converts any error into an APIError. APIErrors anywhere in the chain are returned
// unchanged; everything else is reported with status 0.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if As(err, &apiErr) {
		return apiErr
	}
	message := err.Error()
	if message == "" {
		message = unexpectedFailureMessage
	}
	return &APIError{
		Kind:    ErrInternal,
		Message: message,
		Status:  0,
		cause:   err,
	}
}

// ValidationError reports a client-side input problem. It is produced and handled by the
// command layer and never stored by a Resource Store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RequireFields returns a ValidationError for the first key in fields that is missing or empty.
func RequireFields(payload map[string]any, fields ...string) error {
	for _, field := range fields {
		v, ok := payload[field]
		if !ok || v == nil {
			return &ValidationError{Field: field, Message: "is required"}
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return &ValidationError{Field: field, Message: "must not be blank"}
		}
	}
	return nil
}
