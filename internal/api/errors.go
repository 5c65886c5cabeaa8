package api

import (
	"errors"
	"fmt"
)

// Common errors returned by the API
var (
	ErrNotFound = errors.New("not found")
	ErrNotReady = errors.New("not ready")
)

// NotFoundError wraps ErrNotFound with context
type NotFoundError struct {
	ResourceType string
	ID           string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NotReadyError reports an artifact whose media is not yet available.
type NotReadyError struct {
	ResourceType string
	ID           string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s not ready: %s", e.ResourceType, e.ID)
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}
