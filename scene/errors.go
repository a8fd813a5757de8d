package scene

import (
	"errors"
	"fmt"
)

var (
	// Returned (wrapped) when a scene, material or camera field is out of range.
	ErrConfiguration = errors.New("scene: invalid configuration")

	// Returned (wrapped) when a field value would make the kernel produce NaN values.
	ErrNumericDegeneracy = errors.New("scene: numeric degeneracy")

	// Returned (wrapped) when packed scene data does not match the kernel layout.
	ErrLayoutMismatch = errors.New("scene: packed data does not match sphere layout")
)

// A ValidationError describes an offending field. It unwraps to either
// ErrConfiguration or ErrNumericDegeneracy.
type ValidationError struct {
	Object string
	Field  string
	Value  interface{}
	Reason string

	kind error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s = %v: %s", e.kind.Error(), e.Object, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.kind
}

func configError(object, field string, value interface{}, reason string) error {
	return &ValidationError{Object: object, Field: field, Value: value, Reason: reason, kind: ErrConfiguration}
}

func degeneracyError(object, field string, value interface{}, reason string) error {
	return &ValidationError{Object: object, Field: field, Value: value, Reason: reason, kind: ErrNumericDegeneracy}
}
