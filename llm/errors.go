package llm

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Error classes. Every *LLMError matches exactly one of these with errors.Is.
var (
	// ErrAuth is returned when the endpoint rejects the credentials.
	ErrAuth = errors.New("inference credentials rejected")
	// ErrRateLimit is returned when the endpoint throttles the request.
	ErrRateLimit = errors.New("inference rate limited")
	// ErrUpstream wraps any other non-success exchange with the endpoint.
	ErrUpstream = errors.New("inference upstream error")
	// ErrMalformedResponse is returned when a response cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed inference response")
)

// ErrorType represents the type of LLM error
type ErrorType string

const (
	ErrorTypeUnknown           ErrorType = "unknown"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeAuthentication    ErrorType = "authentication_error"
	ErrorTypePermission        ErrorType = "permission_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRateLimit         ErrorType = "rate_limit_exceeded"
	ErrorTypeInsufficientQuota ErrorType = "insufficient_quota"
	ErrorTypeContextLength     ErrorType = "context_length_exceeded"
	ErrorTypeContentFilter     ErrorType = "content_filter"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionError   ErrorType = "connection_error"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
)

// LLMError represents an error from an LLM provider
type LLMError struct {
	Type       ErrorType         `json:"type"`
	Message    string            `json:"message"`
	Code       string            `json:"code,omitempty"`
	Provider   Provider          `json:"provider"`
	Model      string            `json:"model,omitempty"`
	HTTPStatus int               `json:"http_status,omitempty"`
	Retryable  bool              `json:"retryable"`
	RetryAfter int               `json:"retry_after,omitempty"` // Seconds to wait before retry
	Details    map[string]string `json:"details,omitempty"`
	Cause      error             `json:"-"`
}

// Error implements the error interface
func (e *LLMError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *LLMError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the class sentinel of this error.
func (e *LLMError) Is(target error) bool {
	return target == e.Class()
}

// Class returns the sentinel (ErrAuth, ErrRateLimit, ErrMalformedResponse or
// ErrUpstream) that this error belongs to.
func (e *LLMError) Class() error {
	switch e.Type {
	case ErrorTypeAuthentication, ErrorTypePermission:
		return ErrAuth
	case ErrorTypeRateLimit:
		return ErrRateLimit
	case ErrorTypeMalformedResponse:
		return ErrMalformedResponse
	default:
		return ErrUpstream
	}
}

// IsRetryable returns true if the error is retryable
func (e *LLMError) IsRetryable() bool {
	return e.Retryable
}

// NewLLMError creates a new LLM error
func NewLLMError(provider Provider, errorType ErrorType, message string) *LLMError {
	return &LLMError{
		Type:      errorType,
		Message:   message,
		Provider:  provider,
		Retryable: isRetryableError(errorType),
	}
}

// NewLLMErrorWithCause creates a new LLM error with an underlying cause
func NewLLMErrorWithCause(provider Provider, errorType ErrorType, message string, cause error) *LLMError {
	err := NewLLMError(provider, errorType, message)
	err.Cause = cause
	return err
}

// NewMalformedResponseError reports a response that could not be interpreted.
func NewMalformedResponseError(provider Provider, format string, args ...any) *LLMError {
	return NewLLMError(provider, ErrorTypeMalformedResponse, fmt.Sprintf(format, args...))
}

// isRetryableError determines if an error type is retryable
func isRetryableError(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeConnectionError:
		return true
	default:
		return false
	}
}

// ParseHTTPError parses HTTP status codes into appropriate LLM errors
func ParseHTTPError(provider Provider, statusCode int, body string) *LLMError {
	var errorType ErrorType
	var message string

	switch statusCode {
	case http.StatusBadRequest:
		errorType = ErrorTypeInvalidRequest
		message = "Invalid request parameters"
	case http.StatusUnauthorized:
		errorType = ErrorTypeAuthentication
		message = "Invalid API key or authentication failed"
	case http.StatusPaymentRequired:
		errorType = ErrorTypeInsufficientQuota
		message = "Insufficient balance"
	case http.StatusForbidden:
		errorType = ErrorTypePermission
		message = "Permission denied"
	case http.StatusNotFound:
		errorType = ErrorTypeNotFound
		message = "Resource not found"
	case http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
		message = "Rate limit exceeded"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		errorType = ErrorTypeServerError
		message = "Server error occurred"
	default:
		errorType = ErrorTypeUnknown
		message = fmt.Sprintf("HTTP %d error", statusCode)
	}

	// Authentication failures keep their status-derived class regardless of body wording.
	if body != "" && errorType != ErrorTypeAuthentication && errorType != ErrorTypePermission {
		if specificError := extractSpecificError(provider, body); specificError != nil {
			specificError.HTTPStatus = statusCode
			return specificError
		}
	}
	if body != "" {
		message = fmt.Sprintf("%s: %s", message, truncateBody(body, 200))
	}

	return &LLMError{
		Type:       errorType,
		Message:    message,
		Provider:   provider,
		HTTPStatus: statusCode,
		Retryable:  isRetryableError(errorType),
	}
}

// extractSpecificError extracts provider-specific error information
func extractSpecificError(provider Provider, body string) *LLMError {
	lowerBody := strings.ToLower(body)

	if strings.Contains(lowerBody, "rate limit") || strings.Contains(lowerBody, "too many requests") {
		return &LLMError{
			Type:      ErrorTypeRateLimit,
			Message:   "Rate limit exceeded",
			Provider:  provider,
			Retryable: true,
		}
	}

	if strings.Contains(lowerBody, "insufficient quota") || strings.Contains(lowerBody, "quota exceeded") ||
		strings.Contains(lowerBody, "insufficient balance") {
		return &LLMError{
			Type:     ErrorTypeInsufficientQuota,
			Message:  "Insufficient quota or credits",
			Provider: provider,
		}
	}

	if strings.Contains(lowerBody, "context length") || strings.Contains(lowerBody, "token limit") {
		return &LLMError{
			Type:     ErrorTypeContextLength,
			Message:  "Context length exceeded",
			Provider: provider,
		}
	}

	if strings.Contains(lowerBody, "content filter") || strings.Contains(lowerBody, "safety") {
		return &LLMError{
			Type:     ErrorTypeContentFilter,
			Message:  "Content filtered by safety system",
			Provider: provider,
		}
	}

	return nil
}

// truncateBody truncates response body for error messages
func truncateBody(body string, maxLength int) string {
	if len(body) <= maxLength {
		return body
	}
	return body[:maxLength] + "..."
}

// IsLLMError checks if an error is, or wraps, an LLMError
func IsLLMError(err error) (*LLMError, bool) {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if llmErr, ok := IsLLMError(err); ok {
		// Compute retryability from the error type to be robust even if the
		// struct was constructed without using the constructor.
		return isRetryableError(llmErr.Type)
	}
	return false
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuth)
}
