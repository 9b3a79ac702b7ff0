// Package errors provides error classification and bounded retry for the trades ETL pipeline.
// Failures are classified into the pipeline's error taxonomy (network, parse,
// schema, IO, auth) so the retry helper can distinguish transient transport
// failures from permanent data and credential problems. Retries exist only at
// the fetch and upload boundaries; everything else fails the run immediately.
package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lucasvieira/go-trades-etl/internal/config"
)

// ErrorType represents the classification of an error
type ErrorType string

const (
	// Retryable error types
	ErrorTypeNetwork     ErrorType = "network"      // Network connectivity issues
	ErrorTypeTimeout     ErrorType = "timeout"      // Request timeout
	ErrorTypeRateLimit   ErrorType = "rate_limit"   // Rate limiting from the API
	ErrorTypeServerError ErrorType = "server_error" // HTTP 5xx errors

	// Non-retryable error types
	ErrorTypeBadRequest ErrorType = "bad_request" // HTTP 4xx errors (except rate limit)

	ErrorTypeParse  ErrorType = "parse"  // Malformed API response
	ErrorTypeSchema ErrorType = "schema" // Missing or unexpected fields during transform
	ErrorTypeIO     ErrorType = "io"     // Local file or credential-read failure
	ErrorTypeAuth   ErrorType = "auth"   // Invalid or missing cloud credentials
	ErrorTypeConfig ErrorType = "config" // Configuration errors

	// Unclassified errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// StepError represents a pipeline failure with metadata about which component
// and operation produced it. It wraps the underlying library error unchanged.
type StepError struct {
	Err       error
	Type      ErrorType
	Component string
	Operation string
	Timestamp time.Time
}

// Error implements the error interface
func (se *StepError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %v", se.Component, se.Type, se.Operation, se.Err)
}

// Unwrap returns the underlying error
func (se *StepError) Unwrap() error {
	return se.Err
}

// Is reports whether target matches this error's classification. Two
// StepErrors match when their types are equal; otherwise matching defers to
// the wrapped error chain.
func (se *StepError) Is(target error) bool {
	if t, ok := target.(*StepError); ok {
		return se.Type == t.Type
	}
	return errors.Is(se.Err, target)
}

// New creates a StepError with an explicit classification.
func New(err error, errorType ErrorType, component, operation string) *StepError {
	return &StepError{
		Err:       err,
		Type:      errorType,
		Component: component,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// Classify analyzes an error and wraps it with component and operation
// metadata. Already-classified errors pass through unchanged.
func Classify(err error, component, operation string) *StepError {
	if err == nil {
		return nil
	}

	var se *StepError
	if errors.As(err, &se) {
		return se
	}

	return New(err, classifyErrorType(err), component, operation)
}

// classifyErrorType determines the error type from the error content
func classifyErrorType(err error) ErrorType {
	errStr := strings.ToLower(err.Error())

	if isTimeoutError(err) {
		return ErrorTypeTimeout
	}

	if isNetworkError(err) {
		return ErrorTypeNetwork
	}

	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return ErrorTypeRateLimit
	}

	if strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "signature") ||
		strings.Contains(errStr, "credential") {
		return ErrorTypeAuth
	}

	if strings.Contains(errStr, "server error") ||
		strings.Contains(errStr, "internal server") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "bad gateway") {
		return ErrorTypeServerError
	}

	if strings.Contains(errStr, "unmarshal") ||
		strings.Contains(errStr, "unexpected end of json") ||
		strings.Contains(errStr, "invalid character") ||
		strings.Contains(errStr, "parse") {
		return ErrorTypeParse
	}

	if strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "no such file") ||
		strings.Contains(errStr, "is a directory") ||
		strings.Contains(errStr, "read-only file system") {
		return ErrorTypeIO
	}

	return ErrorTypeUnknown
}

// isNetworkError checks if the error is network-related
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection aborted",
		"no route to host",
		"host unreachable",
		"network unreachable",
		"no such host",
		"dns",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// isTimeoutError checks if the error is timeout-related
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsRetryable reports whether an error type should be retried. Only transient
// transport failures qualify; data, file, and credential problems never do.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// GetErrorType extracts the error type from an error chain.
func GetErrorType(err error) ErrorType {
	var se *StepError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrorTypeUnknown
}

// Retrier executes operations with bounded retry according to a RetryConfig.
// A MaxAttempts of 1 reproduces plain single-shot behavior.
type Retrier struct {
	config config.RetryConfig
	logger *slog.Logger
}

// NewRetrier creates a retrier with the given policy.
func NewRetrier(cfg config.RetryConfig, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{config: cfg, logger: logger}
}

// Do runs fn, retrying with exponential backoff while the classified error is
// retryable and attempts remain. The returned error is the classified error
// from the final attempt.
func (r *Retrier) Do(ctx context.Context, component, operation string, fn func() error) error {
	strategy := r.newBackoff()

	var lastErr *StepError
	attempts := 0

	for {
		attempts++

		err := fn()
		if err == nil {
			if attempts > 1 {
				r.logger.Debug("operation succeeded after retry",
					"component", component,
					"operation", operation,
					"attempts", attempts)
			}
			return nil
		}

		lastErr = Classify(err, component, operation)

		r.logger.Warn("operation failed",
			"component", component,
			"operation", operation,
			"attempt", attempts,
			"max_attempts", r.config.MaxAttempts,
			"error_type", lastErr.Type,
			"retryable", IsRetryable(lastErr.Type),
			"error", err.Error())

		if !IsRetryable(lastErr.Type) || attempts >= r.config.MaxAttempts {
			break
		}

		wait := strategy.NextBackOff()
		if wait == backoff.Stop {
			break
		}

		if ctx.Err() != nil {
			return New(ctx.Err(), ErrorTypeTimeout, component, operation)
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return New(ctx.Err(), ErrorTypeTimeout, component, operation)
		}
	}

	return fmt.Errorf("operation failed after %d attempt(s): %w", attempts, lastErr)
}

// newBackoff builds the exponential backoff schedule from the retry config.
func (r *Retrier) newBackoff() backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = r.config.InitialDelayDuration()
	exponential.MaxInterval = r.config.MaxDelayDuration()
	exponential.MaxElapsedTime = 0
	if !r.config.Jitter {
		exponential.RandomizationFactor = 0
	}
	return exponential
}
