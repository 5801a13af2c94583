package safe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	t.Run("reads regular file", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "join.sk")
		require.NoError(t, os.WriteFile(src, []byte("on join:"), 0o644))

		got, err := ReadFile(src, nil)
		require.NoError(t, err)
		assert.Equal(t, "on join:", string(got))
	})

	t.Run("rejects symlink by default", func(t *testing.T) {
		tmpDir := t.TempDir()
		src := filepath.Join(tmpDir, "join.sk")
		link := filepath.Join(tmpDir, "link.sk")
		require.NoError(t, os.WriteFile(src, []byte("on join:"), 0o644))
		require.NoError(t, os.Symlink(src, link))

		_, err := ReadFile(link, nil)
		assert.Error(t, err)

		got, err := ReadFile(link, &ReadOptions{AllowSymlinks: true})
		require.NoError(t, err)
		assert.Equal(t, "on join:", string(got))
	})

	t.Run("rejects directories", func(t *testing.T) {
		_, err := ReadFile(t.TempDir(), nil)
		assert.Error(t, err)
	})

	t.Run("rejects file exceeding max size", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "big.sk")
		require.NoError(t, os.WriteFile(src, make([]byte, 1024), 0o644))

		_, err := ReadFile(src, &ReadOptions{MaxSize: 512})
		assert.ErrorContains(t, err, "exceeds maximum allowed size")
	})
}

func TestReadLines(t *testing.T) {
	src := filepath.Join(t.TempDir(), "join.sk")
	require.NoError(t, os.WriteFile(src, []byte("\xef\xbb\xbfon join:\r\n\tsend \"hi\"\r\n"), 0o644))

	lines, err := ReadLines(src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"on join:", "\tsend \"hi\""}, lines)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, SplitLines(nil))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines([]byte("a\n\nb")))
	assert.Equal(t, []string{""}, SplitLines([]byte("\n")))
}
