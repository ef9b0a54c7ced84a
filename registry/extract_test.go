package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarball(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "package.tgz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestExtractStripsPackagePrefix(t *testing.T) {
	tarball := writeTarball(t, map[string]string{
		"package/package.json": `{"name":"a","version":"1.0.0"}`,
		"package/lib/index.js": "module.exports = 1",
	})
	dest := filepath.Join(t.TempDir(), "package")

	require.NoError(t, Extractor{}.Extract(context.Background(), tarball, dest))

	data, err := os.ReadFile(filepath.Join(dest, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"a"`)
	_, err = os.Stat(filepath.Join(dest, "lib", "index.js"))
	assert.NoError(t, err)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	tarball := writeTarball(t, map[string]string{
		"package/../../evil": "nope",
	})
	dest := filepath.Join(t.TempDir(), "package")

	err := Extractor{}.Extract(context.Background(), tarball, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
}

func TestExtractCopiesStagedDirectory(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "package.json"), []byte("{}"), 0644))
	dest := filepath.Join(t.TempDir(), "package")

	require.NoError(t, Extractor{}.Extract(context.Background(), src, dest))
	_, err := os.Stat(filepath.Join(dest, "package.json"))
	assert.NoError(t, err)
}

func TestExtractRejectsNonTarball(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-tarball")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0644))

	err := Extractor{}.Extract(context.Background(), path, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}
