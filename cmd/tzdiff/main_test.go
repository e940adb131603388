package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

func writeZone(t *testing.T, z *zoneinfo.Zone) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, z.Encode(&buf))
	f, err := os.CreateTemp(t.TempDir(), "zone")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write(buf.Bytes())
	require.NoError(t, err)
	return f.Name()
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestDiff_Zones(t *testing.T) {
	a := writeZone(t, zoneinfo.Fixed("Etc/Foo", "FOO", 3*time.Hour, 3*time.Hour))
	b := writeZone(t, zoneinfo.Fixed("Etc/Foo", "FOO", 3*time.Hour, 3*time.Hour))
	c := writeZone(t, zoneinfo.Fixed("Etc/Foo", "BAR", 3*time.Hour, 3*time.Hour))

	assert.Contains(t, execute(t, a, b), "files are identical")
	out := execute(t, a, c)
	assert.Contains(t, out, "files are different")
	assert.Contains(t, out, `"BAR"`)
}

func TestDiff_Maps(t *testing.T) {
	write := func(ids map[string]string) string {
		m, err := zoneinfo.BuildMap(ids)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, m.Encode(&buf))
		path := filepath.Join(t.TempDir(), zoneinfo.MapName)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
		return path
	}
	a := write(map[string]string{"UTC": "Etc/UTC", "Etc/UTC": "Etc/UTC"})
	b := write(map[string]string{"UTC": "Etc/UTC", "Etc/UTC": "Etc/UTC", "Zulu": "Etc/UTC"})

	out := execute(t, "--map", a, b)
	assert.Contains(t, out, "files are different")
	assert.Contains(t, out, "Zulu")
}
