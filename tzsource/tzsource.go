// Package tzsource finds the tzdb data files that make up a compiler run,
// either in a directory or in a tzdata archive distributed by IANA.
//
// Only data files are picked up. A data file starts with the magic header
//
//	# tzdb data for
//
// and everything else (leapseconds, zone1970.tab, Makefile, ...) is ignored.
package tzsource

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	// dataFileMagicHeader is used to identify data files.
	dataFileMagicHeader = "# tzdb data for"
	// versionFilename is the name of the version file.
	versionFilename = "version"
)

// ErrNoDataFiles is returned if a source holds no data files.
var ErrNoDataFiles = errors.New("no data files found")

// DataFiles is a map of tzdb data file names to file contents.
// Filenames are never empty. Discovered files always start with the
// magic header that indicates the start of a data file, files read by
// name are taken as they are.
//
// Example:
//
//	 DataFiles{
//		"africa", []byte("# tzdb data for Africa and environs\n..."),
//		"europe", []byte("# tzdb data for Europe and environs\n..."),
//	 }
type DataFiles map[string][]byte

// Names returns the file names in lexical order.
func (f DataFiles) Names() []string {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Release is a set of tzdb data files.
type Release struct {
	// Version is the version of the time zone database, for example "2024b".
	// It is empty if the source had no version file.
	Version string
	// DataFiles holds the data files by name.
	DataFiles DataFiles
}

// ReadArchive unpacks the data files from an archive.
//
// The io.Reader must contain a gzip-compressed tar archive as found at
// https://data.iana.org/time-zones/releases/.
func ReadArchive(r io.Reader) (*Release, error) {
	gunzip, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	tr := tar.NewReader(gunzip)

	result := Release{DataFiles: make(DataFiles)}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Clean(header.Name)

		if name == versionFilename {
			versionBytes, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read version file: %w", err)
			}
			if result.Version, err = parseVersion(versionBytes); err != nil {
				return nil, err
			}
			continue
		}

		data, ok, err := readDataFile(tr, header.Size)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		if ok {
			result.DataFiles[name] = data
		}
	}

	if len(result.DataFiles) == 0 {
		return nil, ErrNoDataFiles
	}
	if result.Version == "" {
		return nil, fmt.Errorf("no version found")
	}
	return &result, nil
}

// ReadDir reads data files from dir.
//
// Without names every regular file in dir that starts with the magic header
// is read. With names exactly those files are read, whatever their header.
// The version file is optional.
func ReadDir(fsys afero.Fs, dir string, names ...string) (*Release, error) {
	result := Release{DataFiles: make(DataFiles)}

	if b, err := afero.ReadFile(fsys, filepath.Join(dir, versionFilename)); err == nil {
		if result.Version, err = parseVersion(b); err != nil {
			return nil, err
		}
	}

	explicit := len(names) > 0
	if !explicit {
		infos, err := afero.ReadDir(fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("read source directory: %w", err)
		}
		for _, fi := range infos {
			if fi.Mode().IsRegular() && fi.Name() != versionFilename {
				names = append(names, fi.Name())
			}
		}
	}

	for _, name := range names {
		if explicit {
			data, err := afero.ReadFile(fsys, filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("read data file: %w", err)
			}
			result.DataFiles[name] = data
			continue
		}
		f, err := fsys.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("open data file: %w", err)
		}
		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("stat data file: %w", err)
		}
		data, ok, err := readDataFile(f, fi.Size())
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		if ok {
			result.DataFiles[name] = data
		}
	}

	if len(result.DataFiles) == 0 {
		return nil, ErrNoDataFiles
	}
	return &result, nil
}

// readDataFile reads a file of the given size from r if it starts with the magic header.
// It only consumes the header of other files.
func readDataFile(r io.Reader, size int64) ([]byte, bool, error) {
	if size < int64(len(dataFileMagicHeader)) {
		// Too small to contain the magic string.
		return nil, false, nil
	}

	// Read only the magic string to check if it's a data file.
	magicBuf := make([]byte, len(dataFileMagicHeader))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, false, fmt.Errorf("read magic string: %w", err)
	}
	if !bytes.Equal(magicBuf, []byte(dataFileMagicHeader)) {
		return nil, false, nil
	}

	data := make([]byte, size)
	copy(data, magicBuf)
	if _, err := io.ReadFull(r, data[len(dataFileMagicHeader):]); err != nil {
		return nil, false, fmt.Errorf("read rest of file: %w", err)
	}
	return data, true, nil
}

func parseVersion(b []byte) (string, error) {
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "", fmt.Errorf("empty version file")
	}
	return v, nil
}
