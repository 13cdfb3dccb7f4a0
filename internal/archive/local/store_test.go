package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/archive"
)

func TestPutObjectWritesFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	path := archive.ObjectPath("session-1", "https://job4freshers.co.in/widgetco-backend-engineer/")
	uri, err := s.PutObject(context.Background(), path, "text/html", strings.NewReader("<html>body</html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	require.NoError(t, err)
	require.Equal(t, "<html>body</html>", string(data))
}

func TestPutObjectRejectsEscapingPath(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.PutObject(context.Background(), "../outside.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestObjectPathStablePerURL(t *testing.T) {
	t.Parallel()

	a := archive.ObjectPath("s1", "https://job4freshers.co.in/a/")
	b := archive.ObjectPath("s1", "https://job4freshers.co.in/a/")
	c := archive.ObjectPath("s1", "https://job4freshers.co.in/b/")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.True(t, strings.HasPrefix(a, "sessions/s1/"))
}
