package treecrypt

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealer_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cipher CipherSuite
		data   []byte
	}{
		{"aes empty", CipherAES256GCM, []byte{}},
		{"aes text", CipherAES256GCM, []byte("hello")},
		{"chacha text", CipherChaCha20Poly1305, []byte("print(1)")},
		{"auto binary", CipherAuto, bytes.Repeat([]byte{0x00, 0xff, 0x10}, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSealer(t, &Config{Cipher: tt.cipher})

			sealed, err := s.EncryptBytes(tt.data)
			if err != nil {
				t.Fatalf("EncryptBytes failed: %v", err)
			}
			if !HasMagic(sealed) {
				t.Error("sealed data does not start with the magic")
			}
			if bytes.Contains(sealed, tt.data) && len(tt.data) > 0 {
				t.Error("sealed data contains the plaintext")
			}

			opened, err := s.DecryptBytes(sealed)
			if err != nil {
				t.Fatalf("DecryptBytes failed: %v", err)
			}
			if !bytes.Equal(opened, tt.data) {
				t.Errorf("Round-trip failed:\ngot:  %q\nwant: %q", opened, tt.data)
			}
		})
	}
}

func TestSealer_FreshSaltPerCall(t *testing.T) {
	s := newTestSealer(t, nil)

	a, _ := s.EncryptBytes([]byte("same"))
	b, _ := s.EncryptBytes([]byte("same"))
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same data are identical")
	}
}

func TestSealer_ReadsSuiteFromHeader(t *testing.T) {
	key := testMasterKey(t)

	chacha, err := NewSealer(key, &Config{Cipher: CipherChaCha20Poly1305})
	if err != nil {
		t.Fatalf("Failed to create sealer: %v", err)
	}
	aes, err := NewSealer(key, &Config{Cipher: CipherAES256GCM})
	if err != nil {
		t.Fatalf("Failed to create sealer: %v", err)
	}

	sealed, err := chacha.EncryptBytes([]byte("portable"))
	if err != nil {
		t.Fatalf("EncryptBytes failed: %v", err)
	}
	opened, err := aes.DecryptBytes(sealed)
	if err != nil {
		t.Fatalf("DecryptBytes failed: %v", err)
	}
	if string(opened) != "portable" {
		t.Errorf("got %q", opened)
	}
}

func TestSealer_Failures(t *testing.T) {
	s := newTestSealer(t, nil)
	sealed, err := s.EncryptBytes([]byte("hello"))
	if err != nil {
		t.Fatalf("EncryptBytes failed: %v", err)
	}

	flipped := func(i int) []byte {
		d := bytes.Clone(sealed)
		d[i] ^= 0x01
		return d
	}
	future := bytes.Clone(sealed)
	future[4] = CurrentVersion + 1

	tests := []struct {
		name    string
		sealer  *Sealer
		data    []byte
		wantErr error
	}{
		{"wrong key", newTestSealer(t, nil), sealed, ErrAuthFailed},
		{"plaintext", s, []byte("hello, not sealed at all"), ErrInvalidHeader},
		{"empty", s, nil, ErrInvalidHeader},
		{"truncated header", s, sealed[:MinHeaderSize+4], ErrInvalidHeader},
		{"tampered salt", s, flipped(MinHeaderSize), ErrAuthFailed},
		{"tampered body", s, flipped(len(sealed) - 1), ErrAuthFailed},
		{"future version", s, future, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sealer.DecryptBytes(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecryptBytes() error = %v, want %v", err, tt.wantErr)
			}
			if !IsAuthenticationError(err) {
				t.Errorf("DecryptBytes() should return AuthenticationError, got %T", err)
			}
			if !errors.Is(err, ErrAuthFailed) {
				t.Errorf("DecryptBytes() error = %v, should match ErrAuthFailed", err)
			}
		})
	}
}

func TestNewSealer_Invalid(t *testing.T) {
	if _, err := NewSealer(make([]byte, 16), DefaultConfig()); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("short key: err = %v, want ErrInvalidKey", err)
	}
	if _, err := NewSealer(nil, DefaultConfig()); !errors.Is(err, ErrNilKey) {
		t.Errorf("nil key: err = %v, want ErrNilKey", err)
	}
	if _, err := NewSealer(make([]byte, KeySize), nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("nil config: err = %v, want ErrNilConfig", err)
	}
}

func TestCipherEngine_Suites(t *testing.T) {
	key := testMasterKey(t)

	for _, suite := range []CipherSuite{CipherAES256GCM, CipherChaCha20Poly1305} {
		t.Run(suite.String(), func(t *testing.T) {
			engine, err := NewCipherEngine(suite, key)
			if err != nil {
				t.Fatalf("NewCipherEngine failed: %v", err)
			}
			if engine.NonceSize() != 12 || engine.Overhead() != 16 {
				t.Errorf("NonceSize=%d Overhead=%d", engine.NonceSize(), engine.Overhead())
			}

			nonce := make([]byte, engine.NonceSize())
			ct, err := engine.Seal(nonce, []byte("data"), []byte("ad"))
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}
			if _, err := engine.Open(nonce, ct, []byte("other")); !errors.Is(err, ErrAuthFailed) {
				t.Errorf("Open with wrong AD: err = %v, want ErrAuthFailed", err)
			}
			if _, err := engine.Seal(nonce[:4], []byte("data"), nil); err == nil {
				t.Error("Seal accepted a short nonce")
			}
		})
	}

	if _, err := NewCipherEngine(CipherSuite(9), key); !errors.Is(err, ErrUnsupportedCipher) {
		t.Errorf("err = %v, want ErrUnsupportedCipher", err)
	}
}

func TestFileHeader(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltSize)
	nonce := bytes.Repeat([]byte{2}, 12)
	h := NewFileHeader(CipherChaCha20Poly1305, salt, nonce)

	data, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(data) != h.Size() {
		t.Errorf("encoded %d bytes, Size() = %d", len(data), h.Size())
	}
	if string(data[:4]) != "TCRY" {
		t.Errorf("magic = %q, want TCRY", data[:4])
	}

	var got FileHeader
	n, err := got.ReadFrom(bytes.NewReader(append(data, "body"...)))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("ReadFrom consumed %d bytes, want %d", n, len(data))
	}
	if got.Cipher != CipherChaCha20Poly1305 || !bytes.Equal(got.Salt, salt) || !bytes.Equal(got.Nonce, nonce) {
		t.Errorf("decoded header mismatch: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestFileHeader_Validate(t *testing.T) {
	salt := []byte("salt")
	nonce := []byte("nonce")

	tests := []struct {
		name    string
		header  *FileHeader
		wantErr error
	}{
		{"bad magic", &FileHeader{Magic: 1, Version: CurrentVersion, Cipher: CipherAES256GCM, Salt: salt, Nonce: nonce}, ErrInvalidHeader},
		{"future version", &FileHeader{Magic: MagicBytes, Version: CurrentVersion + 1, Cipher: CipherAES256GCM, Salt: salt, Nonce: nonce}, ErrUnsupportedVersion},
		{"auto cipher", NewFileHeader(CipherAuto, salt, nonce), ErrUnsupportedCipher},
		{"no salt", NewFileHeader(CipherAES256GCM, nil, nonce), ErrInvalidHeader},
		{"no nonce", NewFileHeader(CipherAES256GCM, salt, nil), ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.header.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
