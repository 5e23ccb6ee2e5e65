package ml

import "errors"

var (
	// ErrStorage wraps I/O failures reading or writing a model artifact.
	ErrStorage = errors.New("model storage failure")

	// ErrCorruptArtifact is returned when an artifact cannot be decoded or
	// does not match the current feature schema.
	ErrCorruptArtifact = errors.New("corrupt model artifact")

	// ErrInference is returned when a model produces a non-finite output.
	ErrInference = errors.New("model inference failed")

	// ErrNotFitted is returned by Predict on an untrained regressor.
	ErrNotFitted = errors.New("regressor is not fitted")

	// ErrUnknownModelLib is returned for an unrecognised regressor family.
	ErrUnknownModelLib = errors.New("unknown model library")

	// ErrNoModel is returned when no artifact has been loaded yet.
	ErrNoModel = errors.New("no model loaded")
)
