package pack

import "errors"

var (
	// ErrInvalidArchive indicates a file that is not a cask container.
	ErrInvalidArchive = errors.New("pack: invalid archive")

	// ErrCorruptEntry indicates an entry whose payload does not match its
	// digest or cannot be decoded.
	ErrCorruptEntry = errors.New("pack: corrupt entry")

	// ErrDuplicateName indicates a child or property name already in use
	// under the same parent.
	ErrDuplicateName = errors.New("pack: duplicate name")

	// ErrInvalidName indicates an empty name or one containing '/'.
	ErrInvalidName = errors.New("pack: invalid name")

	// ErrClosed indicates use of a reader or writer after Close.
	ErrClosed = errors.New("pack: closed")

	// ErrOutOfRange indicates a child, property or sample index past the end.
	ErrOutOfRange = errors.New("pack: index out of range")
)
