package treecrypt

import (
	"errors"
	"io"
	"os"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
)

const tempPrefix = ".treecrypt-"

// readFile returns the contents and mode of p
func readFile(fs absfs.FileSystem, p string) ([]byte, os.FileMode, error) {
	f, err := fs.Open(p)
	if err != nil {
		return nil, 0, NewIOError("open", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, NewIOError("stat", p, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, NewIOError("read", p, err)
	}
	perm := info.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	return data, perm, nil
}

// writeFile writes data to p, closing it on every path
func writeFile(fs absfs.FileSystem, p string, data []byte, perm os.FileMode) (err error) {
	f, err := fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return NewIOError("create", p, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = NewIOError("close", p, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return NewIOError("write", p, err)
	}
	return nil
}

// tempPath returns an unused sibling name for p
func tempPath(p string) string {
	prefix, _ := SplitPath(p)
	return prefix + tempPrefix + uuid.NewString() + ".tmp"
}

// TransformFile encrypts or decrypts the file at p and renames it to the
// matching form of its leaf name. It returns the new path.
//
// The transformed contents are written to a temporary sibling before the
// original is removed, so a cipher failure (wrong key, foreign data)
// leaves p untouched. If the process dies between removing p and renaming
// the temporary file, the content survives under the temporary name.
func TransformFile(fs absfs.FileSystem, s *Sealer, p string, dir Direction) (string, error) {
	data, perm, err := readFile(fs, p)
	if err != nil {
		return "", err
	}

	var out []byte
	if dir == Decrypt {
		out, err = s.DecryptBytes(data)
		if err != nil {
			var ae *AuthenticationError
			if errors.As(err, &ae) {
				ae.Path = p
			}
			return "", err
		}
	} else {
		out, err = s.EncryptBytes(data)
		if err != nil {
			return "", NewEncryptionError("encrypt", p, err)
		}
	}

	newPath, err := RenamePath(p, s.Names(), dir)
	if err != nil {
		return "", err
	}
	if newPath != p {
		taken, err := exists(fs, newPath)
		if err != nil {
			return "", err
		}
		if taken {
			return "", NewIOError("rename", newPath, os.ErrExist)
		}
	}

	tmp := tempPath(p)
	if err := writeFile(fs, tmp, out, perm); err != nil {
		fs.Remove(tmp)
		return "", err
	}

	if err := fs.Remove(p); err != nil {
		fs.Remove(tmp)
		return "", NewIOError("remove", p, err)
	}
	if err := fs.Rename(tmp, newPath); err != nil {
		return "", NewIOError("rename", tmp, err)
	}
	return newPath, nil
}

// isSealed reports whether the file at p starts with the sealed header magic
func isSealed(fs absfs.FileSystem, p string) (bool, error) {
	f, err := fs.Open(p)
	if err != nil {
		return false, NewIOError("open", p, err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, NewIOError("read", p, err)
	}
	return HasMagic(magic), nil
}
