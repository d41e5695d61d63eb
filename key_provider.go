package treecrypt

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/absfs/absfs"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KeyProvider supplies the master key for a run
type KeyProvider interface {
	MasterKey() ([]byte, error)
}

// GenerateKey returns a new random master key
func GenerateKey() ([]byte, error) {
	return randomBytes(KeySize)
}

// WriteKeyFile generates a key and stores it raw at path
func WriteKeyFile(fs absfs.FileSystem, path string) ([]byte, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, NewIOError("create", path, err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return nil, NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, NewIOError("close", path, err)
	}
	return key, nil
}

// ReadKeyFile loads a raw key written by WriteKeyFile
func ReadKeyFile(fs absfs.FileSystem, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, NewIOError("open", path, err)
	}
	defer f.Close()

	key, err := io.ReadAll(f)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}
	if err := ValidateKey(key, KeySize); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadOrCreateKeyFile reads the key at path, generating it first if the
// file does not exist yet.
func LoadOrCreateKeyFile(fs absfs.FileSystem, path string) ([]byte, error) {
	key, err := ReadKeyFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return WriteKeyFile(fs, path)
	}
	return key, err
}

// FileKeyProvider implements KeyProvider using a key file
type FileKeyProvider struct {
	fs   absfs.FileSystem
	path string
}

// NewFileKeyProvider creates a provider for the key file at path. The file
// is created on first use.
func NewFileKeyProvider(fs absfs.FileSystem, path string) *FileKeyProvider {
	return &FileKeyProvider{fs: fs, path: path}
}

func (p *FileKeyProvider) MasterKey() ([]byte, error) {
	return LoadOrCreateKeyFile(p.fs, p.path)
}

// EnvKeyProvider implements KeyProvider using an environment variable
// holding a hex or base64 encoded key
type EnvKeyProvider struct {
	envVar string
}

// NewEnvKeyProvider creates a new environment variable key provider
func NewEnvKeyProvider(envVar string) *EnvKeyProvider {
	return &EnvKeyProvider{envVar: envVar}
}

func (e *EnvKeyProvider) MasterKey() ([]byte, error) {
	encoded := os.Getenv(e.envVar)
	if encoded == "" {
		return nil, NewValidationError("env", e.envVar, "environment variable not set")
	}

	if key, err := hex.DecodeString(encoded); err == nil && len(key) == KeySize {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) == KeySize {
		return key, nil
	}
	return nil, &ValidationError{
		Field:   "env",
		Value:   e.envVar,
		Message: fmt.Sprintf("must hold a hex or base64 encoded %d-byte key", KeySize),
		Err:     ErrInvalidKey,
	}
}

// Argon2idParams contains parameters for Argon2id key derivation
type Argon2idParams struct {
	Memory      uint32 // Memory in KiB (e.g., 64*1024 for 64MB)
	Iterations  uint32 // Number of iterations (time parameter)
	Parallelism uint8  // Degree of parallelism
}

// PasswordKeyProvider derives the master key from a passphrase with
// Argon2id. The salt must be stored next to the data; the command line
// keeps it in the key file.
type PasswordKeyProvider struct {
	password []byte
	salt     []byte
	params   Argon2idParams
}

// NewPasswordKeyProvider creates a new password-based key provider
func NewPasswordKeyProvider(password, salt []byte, params Argon2idParams) *PasswordKeyProvider {
	if params.Memory == 0 {
		params.Memory = 64 * 1024 // 64 MB
	}
	if params.Iterations == 0 {
		params.Iterations = 3
	}
	if params.Parallelism == 0 {
		params.Parallelism = 4
	}

	return &PasswordKeyProvider{
		password: password,
		salt:     salt,
		params:   params,
	}
}

func (p *PasswordKeyProvider) MasterKey() ([]byte, error) {
	if len(p.password) == 0 {
		return nil, NewValidationError("password", nil, "password cannot be empty")
	}
	if len(p.salt) < 16 {
		return nil, NewValidationError("salt", len(p.salt), "salt must be at least 16 bytes")
	}

	return argon2.IDKey(p.password, p.salt, p.params.Iterations, p.params.Memory, p.params.Parallelism, KeySize), nil
}

const (
	contentKeyInfo  = "treecrypt content"
	filenameKeyInfo = "treecrypt filename"
)

// deriveSubkey expands the master key into a purpose-bound key
func deriveSubkey(master, salt []byte, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}
