package domain

import "errors"

var (
	ErrNotPrepared       = errors.New("embedder not prepared")
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrLengthMismatch    = errors.New("patterns and vectors length mismatch")
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrEmptyCompletion   = errors.New("model returned an empty completion")
	ErrNoEmbedding       = errors.New("no embedding returned")
	ErrNoTests           = errors.New("no tests provided")
	ErrNoSchemas         = errors.New("no .json schema files found")
	ErrUnsupportedFormat = errors.New("export format not supported")
)
