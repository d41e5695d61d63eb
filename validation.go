package treecrypt

import (
	"fmt"
	"strings"
)

// MaxNameLength is the longest leaf name common filesystems accept
const MaxNameLength = 255

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
			Err:     ErrNilKey,
		}
	}

	if len(key) != expectedSize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), expectedSize),
			Err:     ErrInvalidKey,
		}
	}

	return nil
}

// ValidateFilePath checks if a file path is valid (not empty)
func ValidateFilePath(path string) error {
	if path == "" {
		return &ValidationError{
			Field:   "path",
			Message: "file path cannot be empty",
		}
	}
	return nil
}

// ValidateLeafName checks that an encoded name can be created as a single
// path segment
func ValidateLeafName(name string) error {
	if len(name) > MaxNameLength {
		return &ValidationError{
			Field:   "name",
			Value:   len(name),
			Message: fmt.Sprintf("name is %d bytes, limit is %d", len(name), MaxNameLength),
			Err:     ErrNameTooLong,
		}
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{
			Field:   "name",
			Value:   name,
			Message: "name contains a path separator or NUL",
		}
	}
	return nil
}
