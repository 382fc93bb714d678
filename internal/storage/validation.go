package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmturner/cinnamon/internal/service"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidPrediction = errors.New("invalid prediction record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePredictionRecord validates a prediction record before insert.
func validatePredictionRecord(rec *service.PredictionRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPrediction)
	}
	if strings.TrimSpace(rec.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidPrediction)
	}
	if rec.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidPrediction)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidPrediction)
	}
	return nil
}
