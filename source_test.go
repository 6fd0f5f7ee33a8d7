package wiregram

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSchemaDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "net"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "net", "ethernet.yaml"), []byte(ethernetDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "net", "ipv4.yml"), []byte(ipv4Doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tunnel.wg"), []byte(tunnelDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	return dir
}

func TestDirErrors(t *testing.T) {
	_, err := Dir("/this/path/does/not/exist/at/all")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.yaml")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Dir(file)
	require.ErrorIs(t, err, os.ErrInvalid)
	_, err = DirTree(file)
	require.ErrorIs(t, err, os.ErrInvalid)

	require.Panics(t, func() { MustDir("/this/path/does/not/exist") })
	require.Panics(t, func() { MustDirTree("/this/path/does/not/exist") })
}

func TestDirSource(t *testing.T) {
	root := writeSchemaDir(t)
	src := MustDir(root)

	files, err := src.ListFiles()
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "tunnel.wg")}, files)

	r, path, err := src.Find("tunnel")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "tunnel.wg"), path)
	require.NoError(t, r.Close())

	_, _, err = src.Find("ethernet")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDirTreeSource(t *testing.T) {
	root := writeSchemaDir(t)
	src := MustDirTree(root)

	files, err := src.ListFiles()
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "net", "ethernet.yaml"),
		filepath.Join(root, "net", "ipv4.yml"),
		filepath.Join(root, "tunnel.wg"),
	}, files)

	r, path, err := src.Find("ipv4")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "net", "ipv4.yml"), path)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, ipv4Doc, string(data))

	_, _, err = src.Find("missing")
	require.ErrorIs(t, err, fs.ErrNotExist)

	r, err = src.Open(filepath.Join(root, "tunnel.wg"))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	_, err = src.Open(filepath.Join(root, "notes.txt"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFSSource(t *testing.T) {
	src := FS("mem", testFS())

	files, err := src.ListFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"mem:net/ethernet.yaml", "mem:net/ipv4.yml", "mem:tunnel.wg"}, files)

	r, path, err := src.Find("ethernet")
	require.NoError(t, err)
	require.Equal(t, "mem:net/ethernet.yaml", path)
	require.NoError(t, r.Close())

	r, err = src.Open("mem:tunnel.wg")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = src.Open("other:tunnel.wg")
	require.ErrorIs(t, err, fs.ErrNotExist)
	_, _, err = src.Find("README")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWithExtensions(t *testing.T) {
	src := FS("mem", testFS(), WithExtensions(".WG"))
	files, err := src.ListFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"mem:tunnel.wg"}, files)
}

func TestMultiSource(t *testing.T) {
	root := writeSchemaDir(t)
	first := FS("mem", testFS())
	src := Multi(first, MustDirTree(root))

	r, path, err := src.Find("ipv4")
	require.NoError(t, err)
	require.Equal(t, "mem:net/ipv4.yml", path)
	require.NoError(t, r.Close())

	files, err := src.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 6)

	r, err = src.Open(filepath.Join(root, "tunnel.wg"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, _, err = src.Find("missing")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSchemaNameFromPath(t *testing.T) {
	require.Equal(t, "ipv4", schemaNameFromPath("/a/b/ipv4.yml"))
	require.Equal(t, "dns.v2", schemaNameFromPath("dns.v2.yaml"))
	require.Equal(t, "plain", schemaNameFromPath("plain"))
}

func TestDefaultExtensions(t *testing.T) {
	require.Equal(t, []string{".yaml", ".yml", ".wg"}, DefaultExtensions)
}
