package rwfs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// OSFS is a RWFS rooted at a directory on the local filesystem. It is the
// concrete sink cmd/dkreg's pull command writes extracted layers into.
type OSFS struct {
	Root string
}

// NewOSFS returns an OSFS rooted at root. root must already exist.
func NewOSFS(root string) *OSFS {
	return &OSFS{Root: root}
}

func (o *OSFS) join(name string) string {
	return filepath.Join(o.Root, filepath.FromSlash(name))
}

// Open implements fs.FS.
func (o *OSFS) Open(name string) (fs.File, error) {
	f, err := os.Open(o.join(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create implements WriteFS.
func (o *OSFS) Create(name string) (WFile, error) {
	f, err := os.Create(o.join(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Mkdir implements WriteFS.
func (o *OSFS) Mkdir(name string, perm fs.FileMode) error {
	return os.Mkdir(o.join(name), perm)
}

// OpenFile implements WriteFS.
func (o *OSFS) OpenFile(name string, flag int, perm fs.FileMode) (RWFile, error) {
	f, err := os.OpenFile(o.join(name), flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove implements WriteFS.
func (o *OSFS) Remove(name string) error {
	return os.Remove(o.join(name))
}

var (
	_ RWFS = (*OSFS)(nil)
)
