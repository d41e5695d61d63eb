package treecrypt

import (
	"fmt"
	"os"
	"strings"

	"github.com/absfs/absfs"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TreeCrypt encrypts and decrypts files and directory trees in place
type TreeCrypt struct {
	fs     absfs.FileSystem
	config *Config
	sealer *Sealer
	log    *log.Logger
}

// New creates a TreeCrypt over fs using masterKey
func New(fs absfs.FileSystem, masterKey []byte, config *Config) (*TreeCrypt, error) {
	if fs == nil {
		return nil, NewValidationError("fs", nil, "filesystem cannot be nil")
	}

	sealer, err := NewSealer(masterKey, config)
	if err != nil {
		return nil, err
	}

	return &TreeCrypt{
		fs:     fs,
		config: config,
		sealer: sealer,
		log:    config.logger(),
	}, nil
}

// NewWithProvider creates a TreeCrypt with the key supplied by kp
func NewWithProvider(fs absfs.FileSystem, kp KeyProvider, config *Config) (*TreeCrypt, error) {
	key, err := kp.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load key: %w", err)
	}
	return New(fs, key, config)
}

// Sealer returns the cipher adapter
func (t *TreeCrypt) Sealer() *Sealer {
	return t.sealer
}

// walk carries the per-call state of one top-level operation
type walk struct {
	*TreeCrypt
	log      *log.Logger
	compress bool
}

func (t *TreeCrypt) begin(op, p string, compress bool) (*walk, node, error) {
	if err := ValidateFilePath(p); err != nil {
		return nil, node{}, err
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil, node{}, NewValidationError("path", "/", "refusing to transform the filesystem root")
	}

	n, err := statNode(t.fs, p)
	if err != nil {
		return nil, node{}, err
	}

	w := &walk{
		TreeCrypt: t,
		log:       t.log.With("run", uuid.NewString()),
		compress:  compress,
	}
	w.log.Debug(op, "path", p, "kind", n.kind, "compress", compress)
	return w, n, nil
}

// Encrypt encrypts the file or directory tree at p and returns its new
// path. Every file below p is sealed and renamed. With compress, every
// directory is packed into an archive once its children are sealed, and
// the archive is sealed in turn, so p collapses to a single file.
func (t *TreeCrypt) Encrypt(p string, compress bool) (string, error) {
	w, n, err := t.begin("encrypt", p, compress)
	if err != nil {
		return "", err
	}
	if err := w.check(n, true); err != nil {
		return "", err
	}
	return w.encrypt(n, true)
}

// Decrypt reverses Encrypt on the file or directory tree at p and returns
// the restored path. Whether p was compressed is detected from the names
// found while walking.
func (t *TreeCrypt) Decrypt(p string) (string, error) {
	w, n, err := t.begin("decrypt", p, false)
	if err != nil {
		return "", err
	}
	return w.decrypt(n, true)
}

func (w *walk) encrypt(n node, top bool) (string, error) {
	if n.kind != KindDirectory {
		return w.transform(n.path, Encrypt)
	}

	children, err := listDir(w.fs, n.path)
	if err != nil {
		return "", err
	}
	for _, c := range children {
		if _, err := w.encrypt(c, false); err != nil {
			return "", err
		}
	}

	if w.compress {
		archive, err := Pack(w.fs, n.path)
		if err != nil {
			return "", err
		}
		w.log.Info("packed", "path", archive, "from", n.path)
		return w.transform(archive, Encrypt)
	}

	if w.config.EncryptDirNames && !top {
		return w.renameDir(n.path, Encrypt)
	}
	return n.path, nil
}

// renamed returns the path whose leaf encrypt rewrites for n, or "" when
// n keeps its name
func (w *walk) renamed(n node, top bool) string {
	switch {
	case n.kind != KindDirectory:
		return n.path
	case w.compress:
		return PackedName(n.path)
	case w.config.EncryptDirNames && !top:
		return n.path
	}
	return ""
}

// check walks the tree below n before anything is mutated and fails if a
// node cannot get its encrypted name or its archive name is already taken.
func (w *walk) check(n node, top bool) error {
	if p := w.renamed(n, top); p != "" {
		if _, err := RenamePath(p, w.sealer.Names(), Encrypt); err != nil {
			return err
		}
	}
	if n.kind != KindDirectory {
		return nil
	}

	if w.compress {
		archive := PackedName(n.path)
		taken, err := exists(w.fs, archive)
		if err != nil {
			return err
		}
		if taken {
			return NewIOError("create", archive, os.ErrExist)
		}
	}

	children, err := listDir(w.fs, n.path)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := w.check(c, false); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) decrypt(n node, top bool) (string, error) {
	if n.kind == KindDirectory {
		return w.decryptDir(n.path, !top)
	}

	if n.kind == KindEncryptedArchive {
		sealed, err := isSealed(w.fs, n.path)
		if err != nil {
			return "", err
		}
		if !sealed {
			return w.unpack(n.path)
		}
	}

	p, err := w.transform(n.path, Decrypt)
	if err != nil {
		return "", err
	}
	if _, leaf := SplitPath(p); ClassifyName(leaf) == KindEncryptedArchive {
		return w.unpack(p)
	}
	return p, nil
}

func (w *walk) decryptDir(dir string, rename bool) (string, error) {
	children, err := listDir(w.fs, dir)
	if err != nil {
		return "", err
	}
	for _, c := range children {
		if _, err := w.decrypt(c, false); err != nil {
			return "", err
		}
	}

	if rename && w.config.EncryptDirNames {
		return w.renameDir(dir, Decrypt)
	}
	return dir, nil
}

// unpack extracts a packed archive and decrypts what it contained. The
// directory it produces already has its plaintext name.
func (w *walk) unpack(archive string) (string, error) {
	packed, err := IsPackedArchive(w.fs, archive)
	if err != nil {
		return "", err
	}
	if !packed {
		w.log.Debug("not a packed archive, leaving as is", "path", archive)
		return archive, nil
	}

	dir, err := Unpack(w.fs, archive)
	if err != nil {
		return "", err
	}
	w.log.Info("unpacked", "path", dir, "from", archive)
	return w.decryptDir(dir, false)
}

func (w *walk) transform(p string, dir Direction) (string, error) {
	newPath, err := TransformFile(w.fs, w.sealer, p, dir)
	if err != nil {
		return "", err
	}
	w.log.Info(dir.String()+"ed", "path", newPath, "from", p)
	return newPath, nil
}

func (w *walk) renameDir(p string, dir Direction) (string, error) {
	newPath, err := RenamePath(p, w.sealer.Names(), dir)
	if err != nil {
		return "", err
	}
	if newPath == p {
		return p, nil
	}

	taken, err := exists(w.fs, newPath)
	if err != nil {
		return "", err
	}
	if taken {
		return "", NewIOError("rename", newPath, os.ErrExist)
	}
	if err := w.fs.Rename(p, newPath); err != nil {
		return "", NewIOError("rename", p, err)
	}
	w.log.Info("renamed", "path", newPath, "from", p)
	return newPath, nil
}
