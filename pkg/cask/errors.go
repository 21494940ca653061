package cask

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a name or path segment that does not resolve.
	ErrNotFound = errors.New("cask: not found")

	// ErrStructure indicates a modeling error: a sub-property on a simple
	// property, a value on a compound property, a cycle, or an invalid name.
	ErrStructure = errors.New("cask: structural misuse")

	// ErrUnknownPropertyType indicates no value class maps to a native data
	// type or to a Go value.
	ErrUnknownPropertyType = errors.New("cask: unknown property type")

	// ErrValueType indicates a value whose Go type does not match the
	// property's value class.
	ErrValueType = errors.New("cask: value type mismatch")

	// ErrUnresolvedWriteClass indicates an object whose schema has no
	// registered kind to write it with.
	ErrUnresolvedWriteClass = errors.New("cask: unresolved write class")

	// ErrImmutableTop indicates an attempt to rename or reparent Top.
	ErrImmutableTop = errors.New("cask: top is immutable")

	// ErrKindMismatch indicates a typed view requested for the wrong kind.
	ErrKindMismatch = errors.New("cask: kind mismatch")

	// ErrSampleIndex indicates a sample locator outside the property.
	ErrSampleIndex = errors.New("cask: sample index out of range")

	// ErrParentNotSaved indicates a write handle requested before the
	// parent's write handle exists.
	ErrParentNotSaved = errors.New("cask: parent not saved")

	// ErrClosed indicates use of a closed archive.
	ErrClosed = errors.New("cask: archive closed")

	// ErrOpen indicates a path that cannot be opened as an archive.
	ErrOpen = errors.New("cask: cannot open archive")

	// ErrFPS indicates a frame rate that is not positive.
	ErrFPS = errors.New("cask: frame rate must be positive")

	// ErrOverwriteSource indicates a write targeting the archive's own
	// source file.
	ErrOverwriteSource = errors.New("cask: cannot overwrite source archive")
)

// SampleError marks a sample that could not be read. It stands in the value
// cache at the failing index so the remaining samples stay readable.
type SampleError struct {
	Path  string
	Index int
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d of %s: %v", e.Index, e.Path, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// String renders the marker the way it appears in value listings.
func (e *SampleError) String() string {
	return "<error: " + e.Error() + ">"
}
