package filestore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrej220/prefstore/pkg/config/configstore"
	"github.com/andrej220/prefstore/pkg/config/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{ err error }

func (w failingWriter) Write(string, []byte) error { return w.err }

func TestLoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "config.yaml"))

	var doc value.Document
	err := store.Load(&doc)
	assert.ErrorIs(t, err, configstore.ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "  \n\n"},
		{"invalid syntax", "window: [unclosed\n"},
		{"sequence at top level", "- a\n- b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			var doc value.Document
			err := New(path).Load(&doc)
			assert.Error(t, err)
			assert.False(t, errors.Is(err, configstore.ErrNotFound))
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", "config.yaml")
	store := New(path)

	doc := value.Document{
		"window.width": value.Int(1024),
		"recent":       value.Seq(value.String("a.txt"), value.String("b.txt")),
	}
	require.NoError(t, store.Save(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "recent:\n  - a.txt\n  - b.txt\nwindow.width: 1024\n", string(data))

	var back value.Document
	require.NoError(t, store.Load(&back))
	assert.True(t, back["window.width"].Equal(value.Int(1024)))
	assert.True(t, back["recent"].Equal(doc["recent"]))
}

func TestSaveRewritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("# hand edited\nold: 1\n"), 0o600))

	store := New(path)
	require.NoError(t, store.Save(value.Document{"new": value.Bool(true)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new: true\n", string(data))
}

func TestSaveErrors(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Error(t, store.Save(nil))

	store.writer = failingWriter{err: errors.New("disk full")}
	err := store.Save(value.Document{})
	assert.ErrorContains(t, err, "disk full")

	assert.Error(t, store.Load(nil))
}
