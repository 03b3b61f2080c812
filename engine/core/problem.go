package core

import "time"

// Envelope is the canonical success response shape from §6:
// {status, code, message, traceId, timestamp, data}.
type Envelope struct {
	Status    string    `json:"status"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	TraceID   string    `json:"traceId"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// ErrorEnvelope is the canonical failure response shape from §6:
// {status: "error", code, traceId, timestamp, error_message, error_code}.
type ErrorEnvelope struct {
	Status       string    `json:"status"`
	Code         int       `json:"code"`
	TraceID      string    `json:"traceId"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorMessage string    `json:"error_message"`
	ErrorCode    string    `json:"error_code"`
}

// NewEnvelope builds a success envelope.
func NewEnvelope(traceID, message string, data any) *Envelope {
	return &Envelope{
		Status:    "success",
		Code:      "OK",
		Message:   message,
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewErrorEnvelope builds a failure envelope for the given HTTP status and
// core error code/message.
func NewErrorEnvelope(traceID string, httpStatus int, errorCode, errorMessage string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Status:       "error",
		Code:         httpStatus,
		TraceID:      traceID,
		Timestamp:    time.Now().UTC(),
		ErrorMessage: errorMessage,
		ErrorCode:    errorCode,
	}
}

// HTTPStatusForCode maps a core error code to the HTTP status named in §7.
func HTTPStatusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 422
	case CodeInvalidInput, CodeBusinessRule, CodeQuotaExceeded, CodeTriggerDisabled:
		return 400
	case CodeNotFound:
		return 404
	case CodeAlreadyExists:
		return 409
	case CodeRateLimited:
		return 429
	case CodeForbidden, CodeInsufficientPerms:
		return 403
	case CodeTokenInvalid, CodeInvalidCredentials:
		return 401
	case CodeSecretIntegrity, CodeInternal:
		return 500
	default:
		return 500
	}
}
