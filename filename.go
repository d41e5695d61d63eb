package treecrypt

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"
)

// nameEncoding is filesystem safe: no '/', no '.', no padding
var nameEncoding = base64.RawURLEncoding

var nameAD = []byte("treecrypt name")

// NameCodec encrypts and decrypts single path segments
type NameCodec interface {
	// EncryptName encrypts a leaf name
	EncryptName(plaintext string) (string, error)

	// DecryptName decrypts a leaf name. Names that were not produced by
	// EncryptName under the same key fail with ErrAuthFailed.
	DecryptName(ciphertext string) (string, error)
}

// NewNameCodec creates a codec for mode using nameKey. Random mode needs a
// KeySize key, deterministic mode a SIVKeySize key.
func NewNameCodec(mode FilenameEncryption, suite CipherSuite, nameKey []byte, preserveExtensions bool) (NameCodec, error) {
	var inner NameCodec
	switch mode {
	case FilenameEncryptionNone:
		return noOpNameCodec{}, nil
	case FilenameEncryptionRandom:
		engine, err := NewCipherEngine(suite, nameKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create name cipher: %w", err)
		}
		inner = &randomNameCodec{engine: engine}
	case FilenameEncryptionDeterministic:
		siv, err := NewSIVEngine(nameKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create SIV engine: %w", err)
		}
		inner = &deterministicNameCodec{siv: siv}
	default:
		return nil, NewValidationError("filename_encryption", mode, "unsupported filename encryption mode")
	}

	if preserveExtensions {
		return extensionCodec{inner}, nil
	}
	return inner, nil
}

type noOpNameCodec struct{}

func (noOpNameCodec) EncryptName(plaintext string) (string, error)  { return plaintext, nil }
func (noOpNameCodec) DecryptName(ciphertext string) (string, error) { return ciphertext, nil }

// randomNameCodec seals names as nonce || ciphertext with a fresh nonce
type randomNameCodec struct {
	engine CipherEngine
}

func (r *randomNameCodec) EncryptName(plaintext string) (string, error) {
	nonce, err := randomBytes(r.engine.NonceSize())
	if err != nil {
		return "", err
	}

	sealed, err := r.engine.Seal(nonce, []byte(plaintext), nameAD)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt filename: %w", err)
	}

	return nameEncoding.EncodeToString(append(nonce, sealed...)), nil
}

func (r *randomNameCodec) DecryptName(ciphertext string) (string, error) {
	data, err := nameEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode filename: %w", ErrInvalidCiphertext)
	}

	n := r.engine.NonceSize()
	if len(data) < n+r.engine.Overhead() {
		return "", fmt.Errorf("filename too short: %w", ErrInvalidCiphertext)
	}

	plaintext, err := r.engine.Open(data[:n], data[n:], nameAD)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt filename: %w", err)
	}
	return string(plaintext), nil
}

// deterministicNameCodec uses SIV so equal names encrypt equally
type deterministicNameCodec struct {
	siv *SIVEngine
}

func (d *deterministicNameCodec) EncryptName(plaintext string) (string, error) {
	return nameEncoding.EncodeToString(d.siv.Seal([]byte(plaintext), nameAD)), nil
}

func (d *deterministicNameCodec) DecryptName(ciphertext string) (string, error) {
	data, err := nameEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode filename: %w", ErrInvalidCiphertext)
	}

	plaintext, err := d.siv.Open(data, nameAD)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt filename: %w", err)
	}
	return string(plaintext), nil
}

// extensionCodec leaves the final extension of a name in clear text
type extensionCodec struct {
	inner NameCodec
}

func splitExt(name string) (base, ext string) {
	ext = path.Ext(name)
	base = strings.TrimSuffix(name, ext)
	if base == "" {
		// dotfile such as ".profile"
		return name, ""
	}
	return base, ext
}

func (e extensionCodec) EncryptName(plaintext string) (string, error) {
	base, ext := splitExt(plaintext)
	encoded, err := e.inner.EncryptName(base)
	if err != nil {
		return "", err
	}
	return encoded + ext, nil
}

func (e extensionCodec) DecryptName(ciphertext string) (string, error) {
	base, ext := splitExt(ciphertext)
	decoded, err := e.inner.DecryptName(base)
	if err != nil {
		return "", err
	}
	return decoded + ext, nil
}

// SplitPath splits p after its last separator. A path without a separator
// has an empty prefix.
func SplitPath(p string) (prefix, leaf string) {
	i := strings.LastIndexByte(p, '/')
	return p[:i+1], p[i+1:]
}

// RenamePath returns p with its leaf name encrypted or decrypted. Other
// segments are never touched. Decrypting a leaf that is not valid
// ciphertext fails with an *AuthenticationError.
func RenamePath(p string, codec NameCodec, dir Direction) (string, error) {
	prefix, leaf := SplitPath(p)
	if leaf == "" || leaf == "." || leaf == ".." {
		return p, nil
	}

	if dir == Decrypt {
		name, err := codec.DecryptName(leaf)
		if err != nil {
			return "", NewAuthenticationError(p, err)
		}
		if err := ValidateLeafName(name); err != nil {
			return "", NewAuthenticationError(p, err)
		}
		return prefix + name, nil
	}

	name, err := codec.EncryptName(leaf)
	if err != nil {
		return "", NewEncryptionError("encrypt", p, err)
	}
	if err := ValidateLeafName(name); err != nil {
		return "", err
	}
	return prefix + name, nil
}
