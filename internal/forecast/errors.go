package forecast

import "fmt"

// InsufficientDataError indicates that no rows survived filtering: either
// nothing to train on, or zero matching rows for a requested group. It is a
// recoverable outcome that callers translate into a structured "no forecast
// available" response.
type InsufficientDataError struct {
	Message string
}

func (e *InsufficientDataError) Error() string {
	return e.Message
}

// NewInsufficientDataErrorf creates an InsufficientDataError with a
// formatted message.
func NewInsufficientDataErrorf(format string, args ...interface{}) error {
	return &InsufficientDataError{Message: fmt.Sprintf(format, args...)}
}

// SchemaMismatchError indicates that inference-time feature columns do not
// align with the stored feature schema. It is fatal to the current
// operation: predicting against misaligned columns would silently produce
// wrong numbers.
type SchemaMismatchError struct {
	Message string
}

func (e *SchemaMismatchError) Error() string {
	return e.Message
}

// NewSchemaMismatchErrorf creates a SchemaMismatchError with a formatted
// message.
func NewSchemaMismatchErrorf(format string, args ...interface{}) error {
	return &SchemaMismatchError{Message: fmt.Sprintf(format, args...)}
}
