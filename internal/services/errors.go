package services

import "errors"

var (
	// ErrNoImage means the image call succeeded but returned no image part.
	ErrNoImage = errors.New("model did not return an image")

	// ErrInvalidDecision means the decision output failed shape validation.
	ErrInvalidDecision = errors.New("invalid routing decision")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }
