// Package services holds the business logic between the HTTP handlers
// and the planning engine, plan store, inventory and event queue.
package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/clusterplan/internal/planerr"
)

// Error codes returned to API clients
const (
	CodeInvalidSpec          = string(planerr.KindInvalidSpec)
	CodeInsufficientCapacity = string(planerr.KindInsufficientCapacity)
	CodeUnsupportedTopology  = string(planerr.KindUnsupportedTopology)
	CodeInvalidEnsembleSize  = string(planerr.KindInvalidEnsembleSize)
	CodeNotFound             = "NOT_FOUND"
	CodeUnavailable          = "UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromError converts any error into a ServiceError. Engine errors keep
// their kind and details; anything else becomes an internal error.
func FromError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	var pe *planerr.Error
	if errors.As(err, &pe) {
		return &ServiceError{
			Code:    string(pe.Kind),
			Message: err.Error(),
			Details: pe.Details,
			cause:   err,
		}
	}

	return &ServiceError{Code: CodeInternal, Message: err.Error(), cause: err}
}

// HTTPStatus maps an error code to an HTTP status
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidSpec, CodeInvalidEnsembleSize:
		return fiber.StatusBadRequest
	case CodeUnsupportedTopology:
		return fiber.StatusUnprocessableEntity
	case CodeInsufficientCapacity:
		return fiber.StatusConflict
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
