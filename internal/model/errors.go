package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means a step had too few candles to run.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidCandle marks a non-finite, inconsistent or non-monotonic candle.
	ErrInvalidCandle = errors.New("invalid candle")
	// ErrBelowConfidenceThreshold means a detector had an opinion too weak to report.
	ErrBelowConfidenceThreshold = errors.New("below confidence threshold")
	// ErrConfiguration marks malformed thresholds or tolerances.
	ErrConfiguration = errors.New("configuration error")
)

// ConfigError describes one rejected configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// StepStatus is the typed outcome of one analysis step.
type StepStatus string

const (
	StatusOK               StepStatus = "ok"
	StatusInsufficientData StepStatus = "insufficient_data"
	StatusBelowThreshold   StepStatus = "below_threshold"
)

// Err maps a status to its sentinel error, nil for StatusOK.
func (s StepStatus) Err() error {
	switch s {
	case StatusInsufficientData:
		return ErrInsufficientData
	case StatusBelowThreshold:
		return ErrBelowConfidenceThreshold
	default:
		return nil
	}
}
