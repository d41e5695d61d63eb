package treecrypt

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/absfs/absfs"
)

// PackedName returns the archive name Pack uses for dir
func PackedName(dir string) string {
	return strings.TrimSuffix(dir, "/") + ArchiveMarker + ArchiveExt
}

// UnpackedName strips the marker and extension from an archive path
func UnpackedName(archive string) string {
	return strings.TrimSuffix(archive, ArchiveMarker+ArchiveExt)
}

// Pack writes every node under dir into a single zip archive named
// PackedName(dir), then removes dir. Entries are stored uncompressed with
// slash separated names relative to dir. If writing fails, the partial
// archive is removed and dir is left as it was.
func Pack(fs absfs.FileSystem, dir string) (string, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return "", NewIOError("stat", dir, err)
	}
	if !info.IsDir() {
		return "", NewValidationError("path", dir, "only directories can be packed")
	}
	if _, leaf := SplitPath(strings.TrimSuffix(dir, "/")); leaf == "" {
		return "", NewValidationError("path", dir, "cannot pack the filesystem root")
	}

	archive := PackedName(dir)
	taken, err := exists(fs, archive)
	if err != nil {
		return "", err
	}
	if taken {
		return "", NewIOError("create", archive, os.ErrExist)
	}

	if err := writeArchive(fs, archive, dir); err != nil {
		fs.Remove(archive)
		return "", err
	}

	if err := fs.RemoveAll(dir); err != nil {
		return "", NewIOError("remove", dir, err)
	}
	return archive, nil
}

func writeArchive(fs absfs.FileSystem, archive, dir string) (err error) {
	f, err := fs.OpenFile(archive, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return NewIOError("create", archive, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = NewIOError("close", archive, cerr)
		}
	}()

	zw := zip.NewWriter(f)
	if err := addTree(fs, zw, dir, ""); err != nil {
		zw.Close()
		return err
	}
	if err := zw.SetComment(archiveComment); err != nil {
		zw.Close()
		return NewIOError("write", archive, err)
	}
	if err := zw.Close(); err != nil {
		return NewIOError("write", archive, err)
	}
	return nil
}

func addTree(fs absfs.FileSystem, zw *zip.Writer, dir, rel string) error {
	nodes, err := listDir(fs, dir)
	if err != nil {
		return err
	}

	for _, n := range nodes {
		_, leaf := SplitPath(n.path)
		name := path.Join(rel, leaf)

		if n.kind == KindDirectory {
			hdr := &zip.FileHeader{Name: name + "/", Method: zip.Store}
			hdr.SetMode(os.ModeDir | 0755)
			if _, err := zw.CreateHeader(hdr); err != nil {
				return NewIOError("write", n.path, err)
			}
			if err := addTree(fs, zw, n.path, name); err != nil {
				return err
			}
			continue
		}

		if err := addFile(fs, zw, n.path, name); err != nil {
			return err
		}
	}
	return nil
}

func addFile(fs absfs.FileSystem, zw *zip.Writer, p, name string) error {
	f, err := fs.Open(p)
	if err != nil {
		return NewIOError("open", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return NewIOError("stat", p, err)
	}

	hdr := &zip.FileHeader{Name: name, Method: zip.Store, Modified: info.ModTime()}
	hdr.SetMode(info.Mode())

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return NewIOError("write", p, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return NewIOError("read", p, err)
	}
	return nil
}

// IsPackedArchive reports whether p carries the archive marker and is a
// zip written by Pack
func IsPackedArchive(fs absfs.FileSystem, p string) (bool, error) {
	if _, leaf := SplitPath(p); ClassifyName(leaf) != KindEncryptedArchive {
		return false, nil
	}

	f, err := fs.Open(p)
	if err != nil {
		return false, NewIOError("open", p, err)
	}
	defer f.Close()

	zr, err := openZip(f)
	if err != nil {
		return false, nil
	}
	return zr.Comment == archiveComment, nil
}

func openZip(f absfs.File) (*zip.Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	return zr, nil
}

// Unpack extracts an archive written by Pack into UnpackedName(archive)
// and removes the archive. The target directory must not exist. Entries
// that are absolute, unclean or escape the target are rejected with an
// *ArchiveFormatError before anything is written.
func Unpack(fs absfs.FileSystem, archive string) (string, error) {
	if _, leaf := SplitPath(archive); ClassifyName(leaf) != KindEncryptedArchive {
		return "", NewArchiveFormatError(archive, "", ErrNotPackedArchive)
	}
	dir := UnpackedName(archive)

	if err := extractArchive(fs, archive, dir); err != nil {
		return "", err
	}

	if err := fs.Remove(archive); err != nil {
		return "", NewIOError("remove", archive, err)
	}
	return dir, nil
}

func extractArchive(fs absfs.FileSystem, archive, dir string) error {
	f, err := fs.Open(archive)
	if err != nil {
		return NewIOError("open", archive, err)
	}
	defer f.Close()

	zr, err := openZip(f)
	if err != nil {
		return NewArchiveFormatError(archive, "", err)
	}
	if zr.Comment != archiveComment {
		return NewArchiveFormatError(archive, "", ErrNotPackedArchive)
	}

	seen := make(map[string]bool, len(zr.File))
	for _, entry := range zr.File {
		name, err := entryName(entry.Name)
		if err != nil {
			return NewArchiveFormatError(archive, entry.Name, err)
		}
		if seen[name] {
			return &ArchiveFormatError{Path: archive, Entry: entry.Name, Message: "duplicate entry"}
		}
		seen[name] = true
	}

	taken, err := exists(fs, dir)
	if err != nil {
		return err
	}
	if taken {
		return NewIOError("create", dir, os.ErrExist)
	}
	if err := fs.Mkdir(dir, 0755); err != nil {
		return NewIOError("mkdir", dir, err)
	}

	for _, entry := range zr.File {
		name, _ := entryName(entry.Name)
		target := path.Join(dir, name)

		if entry.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0755); err != nil {
				return NewIOError("mkdir", target, err)
			}
			continue
		}

		if err := fs.MkdirAll(path.Dir(target), 0755); err != nil {
			return NewIOError("mkdir", path.Dir(target), err)
		}
		if err := extractEntry(fs, archive, entry, target); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(fs absfs.FileSystem, archive string, entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return NewArchiveFormatError(archive, entry.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return NewArchiveFormatError(archive, entry.Name, err)
	}

	perm := entry.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	return writeFile(fs, target, data, perm)
}

// entryName validates a zip entry name and returns it without a trailing slash
func entryName(name string) (string, error) {
	trimmed := strings.TrimSuffix(name, "/")
	switch {
	case trimmed == "":
		return "", fmt.Errorf("empty name: %w", ErrUnsafeEntry)
	case strings.ContainsAny(trimmed, "\\\x00"):
		return "", fmt.Errorf("invalid character: %w", ErrUnsafeEntry)
	case path.IsAbs(trimmed):
		return "", fmt.Errorf("absolute name: %w", ErrUnsafeEntry)
	case trimmed == ".." || strings.HasPrefix(trimmed, "../"):
		return "", ErrUnsafeEntry
	case path.Clean(trimmed) != trimmed:
		return "", fmt.Errorf("unclean name: %w", ErrUnsafeEntry)
	}
	return trimmed, nil
}
