package treecrypt

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/absfs/memfs"
)

func TestFileKeyProvider(t *testing.T) {
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("Failed to create memfs: %v", err)
	}

	kp := NewFileKeyProvider(fs, "/secret.key")

	first, err := kp.MasterKey()
	if err != nil {
		t.Fatalf("MasterKey (create) failed: %v", err)
	}
	if len(first) != KeySize {
		t.Fatalf("key length = %d, want %d", len(first), KeySize)
	}

	second, err := kp.MasterKey()
	if err != nil {
		t.Fatalf("MasterKey (load) failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second load returned a different key")
	}

	info, err := fs.Stat("/secret.key")
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if info.Size() != KeySize {
		t.Errorf("key file size = %d, want %d", info.Size(), KeySize)
	}
}

func TestReadKeyFile_WrongSize(t *testing.T) {
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("Failed to create memfs: %v", err)
	}
	if err := writeFile(fs, "/short.key", []byte("too short"), 0600); err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}

	if _, err := ReadKeyFile(fs, "/short.key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
	if _, err := LoadOrCreateKeyFile(fs, "/short.key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("LoadOrCreateKeyFile must not overwrite a bad key file, err = %v", err)
	}
}

func TestEnvKeyProvider(t *testing.T) {
	key := testMasterKey(t)

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"hex", hex.EncodeToString(key), false},
		{"base64", base64.StdEncoding.EncodeToString(key), false},
		{"unset", "", true},
		{"short", hex.EncodeToString(key[:16]), true},
		{"garbage", "not a key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TREECRYPT_TEST_KEY", tt.value)

			got, err := NewEnvKeyProvider("TREECRYPT_TEST_KEY").MasterKey()
			if (err != nil) != tt.wantErr {
				t.Fatalf("MasterKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if !bytes.Equal(got, key) {
				t.Error("decoded key mismatch")
			}
		})
	}
}

func TestPasswordKeyProvider(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, 16)
	params := Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1}

	a, err := NewPasswordKeyProvider([]byte("hunter2"), salt, params).MasterKey()
	if err != nil {
		t.Fatalf("MasterKey failed: %v", err)
	}
	if len(a) != KeySize {
		t.Errorf("key length = %d, want %d", len(a), KeySize)
	}

	b, _ := NewPasswordKeyProvider([]byte("hunter2"), salt, params).MasterKey()
	if !bytes.Equal(a, b) {
		t.Error("same password and salt gave different keys")
	}

	c, _ := NewPasswordKeyProvider([]byte("hunter3"), salt, params).MasterKey()
	if bytes.Equal(a, c) {
		t.Error("different passwords gave the same key")
	}

	if _, err := NewPasswordKeyProvider(nil, salt, params).MasterKey(); !IsValidationError(err) {
		t.Errorf("empty password: err = %v, want ValidationError", err)
	}
	if _, err := NewPasswordKeyProvider([]byte("x"), salt[:8], params).MasterKey(); !IsValidationError(err) {
		t.Errorf("short salt: err = %v, want ValidationError", err)
	}
}

func TestDeriveSubkey(t *testing.T) {
	master := testMasterKey(t)

	content, _ := deriveSubkey(master, []byte("salt"), contentKeyInfo, KeySize)
	names, _ := deriveSubkey(master, nil, filenameKeyInfo, SIVKeySize)
	if len(names) != SIVKeySize {
		t.Errorf("name key length = %d", len(names))
	}
	if bytes.Equal(content, names[:KeySize]) {
		t.Error("content and name keys collide")
	}
	if bytes.Equal(content, master) {
		t.Error("derived key equals the master key")
	}
}
