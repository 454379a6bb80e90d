package shared

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryNetwork    ErrorCategory = "network"
	ErrorCategoryDatabase   ErrorCategory = "database"
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryExtraction ErrorCategory = "extraction"
	ErrorCategoryTimeout    ErrorCategory = "timeout"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Operation, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// NewNetworkError creates a network error, always retryable with another
// URL pattern or a later run.
func NewNetworkError(message, serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryNetwork, message, serviceName, operation, true, cause)
}

// NewDatabaseError creates a database error
func NewDatabaseError(message, serviceName, operation string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryDatabase, message, serviceName, operation, false, cause)
}

// IsRetryable reports whether err (or any error it wraps) is a retryable ServiceError.
func IsRetryable(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}
	return false
}
