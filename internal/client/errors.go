package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions detected before any network call.
var (
	ErrMissingInput     = errors.New("missing input")
	ErrDeclined         = errors.New("test value not supplied")
	ErrPlaceholderCount = errors.New("template must contain exactly one " + Placeholder + " placeholder")
)

// Kind classifies a pipeline failure for presentation.
type Kind string

// Failure kinds.
const (
	KindNone               Kind = ""
	KindMissingInput       Kind = "missing_input"
	KindAuthOrSchema       Kind = "auth_or_schema"
	KindEmptyResult        Kind = "empty_result"
	KindGeneration         Kind = "generation"
	KindLogicalTestFailure Kind = "logical_test_failure"
	KindNetwork            Kind = "network"
)

// SchemaFetchError is returned when table or column listing gets a non-2xx status.
type SchemaFetchError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *SchemaFetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("error %d: %s: %s", e.Status, e.StatusText, e.Message)
	}
	return fmt.Sprintf("error %d: %s", e.Status, e.StatusText)
}

// GenerationError is returned when the proxy refuses to generate a template.
type GenerationError struct {
	Status  int
	Message string
}

func (e *GenerationError) Error() string {
	return e.Message
}

// TestError is returned when the test endpoint answers with an undecodable failure.
type TestError struct {
	Status  int
	Message string
}

func (e *TestError) Error() string {
	return fmt.Sprintf("error %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure that happened before any response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. A nil error yields KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		schemaErr *SchemaFetchError
		genErr    *GenerationError
		netErr    *NetworkError
		testErr   *TestError
	)

	switch {
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrDeclined), errors.Is(err, ErrPlaceholderCount):
		return KindMissingInput
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &schemaErr):
		return KindAuthOrSchema
	case errors.As(err, &genErr):
		return KindGeneration
	case errors.As(err, &testErr):
		return KindLogicalTestFailure
	default:
		return KindNetwork
	}
}
