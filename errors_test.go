package treecrypt

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &ValidationError{Field: "cipher", Value: 9, Message: "unsupported cipher suite"},
			wantMsg: "validation error: cipher: unsupported cipher suite",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "invalid configuration"},
			wantMsg: "validation error: invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "with path",
			err:     NewIOError("remove", "/project/notes.txt", os.ErrPermission),
			wantMsg: "io error: remove /project/notes.txt: permission denied",
		},
		{
			name:    "operation only",
			err:     &IOError{Operation: "list", Message: "failed"},
			wantMsg: "io error: list: failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("IOError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestIOError_UnwrapsToOSError(t *testing.T) {
	err := fmt.Errorf("walk: %w", NewIOError("open", "/missing", os.ErrNotExist))

	if !IsIOError(err) {
		t.Error("IsIOError should see through fmt wrapping")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("IOError should unwrap to os.ErrNotExist")
	}
	if IsAuthenticationError(err) {
		t.Error("IOError must not look like an authentication error")
	}
}

func TestAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("/project/x", ErrAuthFailed)

	want := "authentication error: /project/x: " + ErrAuthFailed.Error()
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrAuthFailed) {
		t.Error("AuthenticationError should unwrap to ErrAuthFailed")
	}
	if !IsAuthenticationError(err) {
		t.Error("IsAuthenticationError() = false")
	}
}

func TestArchiveFormatError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "with entry",
			err:     NewArchiveFormatError("/a.treecrypt.zip", "../evil", ErrUnsafeEntry),
			wantMsg: `archive error: /a.treecrypt.zip: entry "../evil": ` + ErrUnsafeEntry.Error(),
		},
		{
			name:    "archive only",
			err:     NewArchiveFormatError("/a.treecrypt.zip", "", ErrNotPackedArchive),
			wantMsg: "archive error: /a.treecrypt.zip: " + ErrNotPackedArchive.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !IsArchiveFormatError(tt.err) {
				t.Error("IsArchiveFormatError() = false")
			}
		})
	}
}

func TestEncryptionError(t *testing.T) {
	err := NewEncryptionError("encrypt", "/file.txt", errors.New("rng failure"))
	if got, want := err.Error(), "encrypt error: /file.txt: rng failure"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsEncryptionError(err) {
		t.Error("IsEncryptionError() = false")
	}
}
