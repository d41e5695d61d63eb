package treecrypt

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/absfs/absfs"
)

const (
	// ArchiveExt is the container extension written by Pack
	ArchiveExt = ".zip"

	// ArchiveMarker precedes ArchiveExt in the names of packed directories
	ArchiveMarker = ".treecrypt"

	// archiveComment is stored in every packed archive so that a user's
	// own file that happens to carry the marker is not unpacked
	archiveComment = "treecrypt-archive/1"
)

// NodeKind classifies a tree node once, when its directory is listed
type NodeKind uint8

const (
	// KindPlainFile is any regular file
	KindPlainFile NodeKind = iota
	// KindPlainArchive is a zip without the marker. It is handled as a
	// plain file.
	KindPlainArchive
	// KindEncryptedArchive carries ArchiveMarker + ArchiveExt, the name
	// Pack gives its output
	KindEncryptedArchive
	// KindDirectory is a directory
	KindDirectory
)

func (k NodeKind) String() string {
	switch k {
	case KindPlainFile:
		return "file"
	case KindPlainArchive:
		return "archive"
	case KindEncryptedArchive:
		return "packed-archive"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// ClassifyName derives the kind of a regular file from its name
func ClassifyName(name string) NodeKind {
	if !strings.HasSuffix(name, ArchiveExt) {
		return KindPlainFile
	}
	if strings.HasSuffix(name, ArchiveMarker+ArchiveExt) && len(name) > len(ArchiveMarker+ArchiveExt) {
		return KindEncryptedArchive
	}
	return KindPlainArchive
}

// node is one entry of a directory snapshot
type node struct {
	path string
	kind NodeKind
}

func statNode(fs absfs.FileSystem, p string) (node, error) {
	info, err := fs.Stat(p)
	if err != nil {
		return node{}, NewIOError("stat", p, err)
	}
	return newNode(p, info), nil
}

func newNode(p string, info os.FileInfo) node {
	if info.IsDir() {
		return node{path: p, kind: KindDirectory}
	}
	_, leaf := SplitPath(p)
	return node{path: p, kind: ClassifyName(leaf)}
}

// listDir snapshots the children of dir before any of them is mutated
func listDir(fs absfs.FileSystem, dir string) ([]node, error) {
	f, err := fs.Open(dir)
	if err != nil {
		return nil, NewIOError("open", dir, err)
	}
	defer f.Close()

	infos, err := f.Readdir(0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, NewIOError("list", dir, err)
	}

	nodes := make([]node, 0, len(infos))
	for _, info := range infos {
		name := path.Base(info.Name())
		if name == "." || name == ".." || name == "/" {
			continue
		}
		nodes = append(nodes, newNode(path.Join(dir, name), info))
	}
	return nodes, nil
}

func exists(fs absfs.FileSystem, p string) (bool, error) {
	_, err := fs.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, NewIOError("stat", p, err)
	}
}
