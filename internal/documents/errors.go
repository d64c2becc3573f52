package documents

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrExtraction      = errors.New("text extraction failed")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("document not found")
)
