package config

import "errors"

var (
	// ErrStorageTooSmall is returned when the EEPROM cannot hold the record at its offset.
	ErrStorageTooSmall = errors.New("storage too small")
	// ErrCrcMismatch is returned when a stored record fails verification.
	ErrCrcMismatch = errors.New("crc mismatch")
	// ErrKeyNotFound is returned for an unknown field key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnsupportedType is returned for a field whose type tag has no accessor.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrIndexOutOfRange is returned for an input index past the table end.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidValue is returned when a value does not fit its field.
	ErrInvalidValue = errors.New("invalid value")
)
