package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Pebble stores artifacts as values of a pebble database keyed by name.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens or creates the database in dir. A nil fs means the
// operating system's file system.
func OpenPebble(dir string, fs vfs.FS) (*Pebble, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble store %s: %w", dir, err)
	}
	return &Pebble{db: db}, nil
}

// Put sets the value for name and syncs the write.
func (p *Pebble) Put(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := p.db.Set([]byte(name), data, pebble.Sync); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// Get returns a copy of the value for name.
func (p *Pebble) Get(name string) ([]byte, error) {
	data, closer, err := p.db.Get([]byte(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("get %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer closer.Close()

	return append([]byte(nil), data...), nil
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
