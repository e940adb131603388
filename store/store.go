// Package store keeps compiled zone artifacts and the zone info map by name.
//
// Names are zone ids such as "Europe/Zurich" or zoneinfo.MapName.
package store

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Get for a name that was never put.
var ErrNotFound = errors.New("artifact not found")

// Store is a place to keep compiled artifacts.
type Store interface {
	// Put stores data under name, replacing what was there.
	Put(name string, data []byte) error
	// Get returns the data stored under name or an error wrapping ErrNotFound.
	Get(name string) ([]byte, error)
	Close() error
}

// checkName rejects names that would escape a directory tree or are not clean.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("empty artifact name")
	}
	if strings.HasPrefix(name, "/") || path.Clean(name) != name {
		return fmt.Errorf("artifact name %q is not a clean relative path", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("artifact name %q has a %q component", name, part)
		}
	}
	return nil
}
