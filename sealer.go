package treecrypt

import (
	"bytes"
	"errors"
	"fmt"
)

// Sealer encrypts file contents and names under one master key. Contents
// get a per-file key derived from a random salt kept in the file header;
// names use a single derived name key.
type Sealer struct {
	suite  CipherSuite
	master []byte
	names  NameCodec
}

// NewSealer creates a Sealer for masterKey
func NewSealer(masterKey []byte, config *Config) (*Sealer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := ValidateKey(masterKey, KeySize); err != nil {
		return nil, err
	}

	suite := config.Cipher.resolve()

	size := KeySize
	if config.FilenameEncryption == FilenameEncryptionDeterministic {
		size = SIVKeySize
	}
	nameKey, err := deriveSubkey(masterKey, nil, filenameKeyInfo, size)
	if err != nil {
		return nil, err
	}

	names, err := NewNameCodec(config.FilenameEncryption, suite, nameKey, config.PreserveExtensions)
	if err != nil {
		return nil, err
	}

	return &Sealer{
		suite:  suite,
		master: bytes.Clone(masterKey),
		names:  names,
	}, nil
}

// Names returns the filename codec
func (s *Sealer) Names() NameCodec {
	return s.names
}

// EncryptBytes returns header || AEAD(plaintext)
func (s *Sealer) EncryptBytes(plaintext []byte) ([]byte, error) {
	salt, err := randomBytes(SaltSize)
	if err != nil {
		return nil, err
	}

	engine, err := s.contentEngine(s.suite, salt)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(engine.NonceSize())
	if err != nil {
		return nil, err
	}

	header, err := NewFileHeader(s.suite, salt, nonce).MarshalBinary()
	if err != nil {
		return nil, err
	}

	sealed, err := engine.Seal(nonce, plaintext, header)
	if err != nil {
		return nil, err
	}
	return append(header, sealed...), nil
}

// DecryptBytes reverses EncryptBytes. Every failure, including data that
// was never sealed, is an *AuthenticationError wrapping ErrAuthFailed.
func (s *Sealer) DecryptBytes(data []byte) ([]byte, error) {
	r := bytes.NewReader(data)

	var h FileHeader
	n, err := h.ReadFrom(r)
	if err != nil {
		return nil, authFailure(err)
	}
	if err := h.Validate(); err != nil {
		return nil, authFailure(err)
	}

	engine, err := s.contentEngine(h.Cipher, h.Salt)
	if err != nil {
		return nil, authFailure(err)
	}

	plaintext, err := engine.Open(h.Nonce, data[n:], data[:n])
	if err != nil {
		return nil, authFailure(err)
	}
	return plaintext, nil
}

// EncryptText encrypts a leaf name
func (s *Sealer) EncryptText(name string) (string, error) {
	return s.names.EncryptName(name)
}

// DecryptText decrypts a leaf name. Failures are *AuthenticationError.
func (s *Sealer) DecryptText(name string) (string, error) {
	plaintext, err := s.names.DecryptName(name)
	if err != nil {
		return "", authFailure(err)
	}
	return plaintext, nil
}

// authFailure reports err as an authentication error that always matches
// ErrAuthFailed. Callers that know the path set it on the result.
func authFailure(err error) error {
	if !errors.Is(err, ErrAuthFailed) {
		err = fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	return NewAuthenticationError("", err)
}

func (s *Sealer) contentEngine(suite CipherSuite, salt []byte) (CipherEngine, error) {
	key, err := deriveSubkey(s.master, salt, contentKeyInfo, KeySize)
	if err != nil {
		return nil, err
	}
	return NewCipherEngine(suite, key)
}
