package pipeline

import "errors"

// invalidImageError signals an unparseable or empty upload for 400 mapping.
type invalidImageError struct{ msg string }

func (e invalidImageError) Error() string { return "invalid image: " + e.msg }

// ErrInvalidImage constructs an invalidImageError.
func ErrInvalidImage(msg string) error { return invalidImageError{msg: msg} }

// IsInvalidImage reports whether err indicates bad image input (return 400).
func IsInvalidImage(err error) bool {
	var e invalidImageError
	return errors.As(err, &e)
}

// modelUnavailableError signals a failed or missing model load so the HTTP
// layer can return 503 Service Unavailable instead of 500.
type modelUnavailableError struct{ msg string }

func (e modelUnavailableError) Error() string { return "model unavailable: " + e.msg }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(msg string) error { return modelUnavailableError{msg: msg} }

// IsModelUnavailable reports whether err indicates a degraded pipeline (return 503).
func IsModelUnavailable(err error) bool {
	var e modelUnavailableError
	return errors.As(err, &e)
}
