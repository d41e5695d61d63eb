package treecrypt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MagicBytes identifies sealed files (ASCII: "TCRY")
	MagicBytes = uint32(0x59524354)

	// CurrentVersion is the current file format version
	CurrentVersion = uint8(1)

	// MinHeaderSize covers magic, version, cipher and salt size:
	// 4 + 1 + 1 + 2 bytes
	MinHeaderSize = 8

	// SaltSize is the per-file salt used to derive the content key
	SaltSize = 32
)

// FileHeader precedes the ciphertext of every sealed file. Its encoded
// bytes are authenticated as associated data.
type FileHeader struct {
	Magic   uint32      // Magic bytes to identify sealed files
	Version uint8       // File format version
	Cipher  CipherSuite // Cipher suite used for encryption
	Salt    []byte      // Salt for content key derivation
	Nonce   []byte      // Nonce for the AEAD
}

// NewFileHeader creates a new file header with the given parameters
func NewFileHeader(suite CipherSuite, salt, nonce []byte) *FileHeader {
	return &FileHeader{
		Magic:   MagicBytes,
		Version: CurrentVersion,
		Cipher:  suite,
		Salt:    salt,
		Nonce:   nonce,
	}
}

// Size returns the encoded size of the header in bytes
func (h *FileHeader) Size() int {
	return MinHeaderSize + len(h.Salt) + 2 + len(h.Nonce)
}

// MarshalBinary encodes the header, little endian
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, h.Size()))

	fields := []any{h.Magic, h.Version, h.Cipher, uint16(len(h.Salt))}
	for _, f := range fields {
		if err := binary.Write(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	buf.Write(h.Salt)
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(h.Nonce))); err != nil {
		return nil, fmt.Errorf("failed to write nonce size: %w", err)
	}
	buf.Write(h.Nonce)

	return buf.Bytes(), nil
}

// ReadFrom decodes a header from r
func (h *FileHeader) ReadFrom(r io.Reader) (int64, error) {
	var fixed struct {
		Magic    uint32
		Version  uint8
		Cipher   CipherSuite
		SaltSize uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return 0, fmt.Errorf("failed to read header: %w", ErrInvalidHeader)
	}
	total := int64(MinHeaderSize)

	h.Magic, h.Version, h.Cipher = fixed.Magic, fixed.Version, fixed.Cipher
	if err := h.checkPrefix(); err != nil {
		return total, err
	}

	h.Salt = make([]byte, fixed.SaltSize)
	n, err := io.ReadFull(r, h.Salt)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("failed to read salt: %w", ErrInvalidHeader)
	}

	var nonceSize uint16
	if err := binary.Read(r, binary.LittleEndian, &nonceSize); err != nil {
		return total, fmt.Errorf("failed to read nonce size: %w", ErrInvalidHeader)
	}
	total += 2

	h.Nonce = make([]byte, nonceSize)
	n, err = io.ReadFull(r, h.Nonce)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("failed to read nonce: %w", ErrInvalidHeader)
	}

	return total, nil
}

func (h *FileHeader) checkPrefix() error {
	if h.Magic != MagicBytes {
		return ErrInvalidHeader
	}
	if h.Version > CurrentVersion {
		return ErrUnsupportedVersion
	}
	return nil
}

// Validate checks if the header is valid
func (h *FileHeader) Validate() error {
	if err := h.checkPrefix(); err != nil {
		return err
	}
	if h.Cipher != CipherAES256GCM && h.Cipher != CipherChaCha20Poly1305 {
		return ErrUnsupportedCipher
	}
	if len(h.Salt) == 0 {
		return fmt.Errorf("salt cannot be empty: %w", ErrInvalidHeader)
	}
	if len(h.Nonce) == 0 {
		return fmt.Errorf("nonce cannot be empty: %w", ErrInvalidHeader)
	}
	return nil
}

// HasMagic reports whether data starts with the sealed file magic
func HasMagic(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == MagicBytes
}
