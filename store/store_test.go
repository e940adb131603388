package store

import (
	"io/fs"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	p, err := OpenPebble("db", vfs.NewMem())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return map[string]Store{
		"dir":    NewDir(afero.NewMemMapFs(), "zoneinfo"),
		"pebble": p,
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put("Europe/Zurich", []byte("zurich")))
			require.NoError(t, s.Put("UTC", []byte("utc")))
			require.NoError(t, s.Put("ZoneInfoMap", []byte("map")))

			got, err := s.Get("Europe/Zurich")
			require.NoError(t, err)
			require.Equal(t, []byte("zurich"), got)

			got, err = s.Get("UTC")
			require.NoError(t, err)
			require.Equal(t, []byte("utc"), got)

			require.NoError(t, s.Put("UTC", []byte("replaced")))
			got, err = s.Get("UTC")
			require.NoError(t, err)
			require.Equal(t, []byte("replaced"), got)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("Europe/Bern")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_BadName(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "/etc/passwd", "../outside", "Europe/../../x", "Europe//Zurich", "Europe/"} {
				require.Error(t, s.Put(id, []byte("x")), "Put(%q)", id)
			}
		})
	}
}

func TestDir_Layout(t *testing.T) {
	fsys := afero.NewMemMapFs()
	d := NewDir(fsys, "out")
	require.NoError(t, d.Put("America/Argentina/Buenos_Aires", []byte("ba")))

	data, err := afero.ReadFile(fsys, "out/America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	require.Equal(t, []byte("ba"), data)

	isDir, err := afero.IsDir(fsys, "out/America/Argentina")
	require.NoError(t, err)
	require.True(t, isDir)
}

func TestCheckDestination(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("out", 0o755))
	require.NoError(t, afero.WriteFile(fsys, "file", []byte("x"), 0o644))
	require.NoError(t, fsys.MkdirAll("readonly", 0o555))

	require.NoError(t, CheckDestination(fsys, "out"))
	require.ErrorIs(t, CheckDestination(fsys, "missing"), fs.ErrNotExist)
	require.ErrorContains(t, CheckDestination(fsys, "file"), "not a directory")
	require.ErrorContains(t, CheckDestination(fsys, "readonly"), "not writable")
}

func TestPebble_Reopen(t *testing.T) {
	fs := vfs.NewMem()
	p, err := OpenPebble("db", fs)
	require.NoError(t, err)
	require.NoError(t, p.Put("Europe/Zurich", []byte("zurich")))
	require.NoError(t, p.Close())

	p, err = OpenPebble("db", fs)
	require.NoError(t, err)
	defer p.Close()
	got, err := p.Get("Europe/Zurich")
	require.NoError(t, err)
	require.Equal(t, []byte("zurich"), got)
}
