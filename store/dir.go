package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Dir stores every artifact in its own file below a root directory.
// Zone ids with slashes become nested directories, as in a zoneinfo tree.
type Dir struct {
	fs   afero.Fs
	root string
}

// NewDir returns a store rooted at root in fsys.
func NewDir(fsys afero.Fs, root string) *Dir {
	return &Dir{fs: fsys, root: root}
}

// CheckDestination fails unless root is an existing, writable directory.
func CheckDestination(fsys afero.Fs, root string) error {
	fi, err := fsys.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("check destination %s: %w", root, fs.ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("check destination: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("check destination %s: not a directory", root)
	}
	if fi.Mode().Perm()&0o200 == 0 {
		return fmt.Errorf("check destination %s: not writable", root)
	}
	return nil
}

func (d *Dir) path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// Put writes data to the file for name, creating parent directories as needed.
func (d *Dir) Put(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	p := d.path(name)
	if err := d.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	if err := afero.WriteFile(d.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// Get reads the file for name.
func (d *Dir) Get(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(d.fs, d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("get %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return data, nil
}

// Close does nothing. Files are complete once Put returns.
func (d *Dir) Close() error {
	return nil
}
