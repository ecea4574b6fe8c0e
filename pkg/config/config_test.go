package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andrej220/prefstore/pkg/config/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name: "file backend",
			opts: Options{Backend: FileStore, File: &FileConfig{Path: "config.yaml"}},
		},
		{
			name: "mongo backend",
			opts: Options{Backend: MongoStore, Mongo: &MongoConfig{
				URI: "mongodb://localhost:27017", DBName: "app", CollName: "config", ID: "prefshell",
			}},
		},
		{
			name: "file backend with kafka",
			opts: Options{
				Backend: FileStore,
				File:    &FileConfig{Path: "config.yaml"},
				Kafka:   &KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "config-changes"},
			},
		},
		{
			name:    "missing backend",
			opts:    Options{File: &FileConfig{Path: "config.yaml"}},
			wantErr: true,
		},
		{
			name:    "file backend without section",
			opts:    Options{Backend: FileStore},
			wantErr: true,
		},
		{
			name:    "file backend without path",
			opts:    Options{Backend: FileStore, File: &FileConfig{}},
			wantErr: true,
		},
		{
			name:    "mongo backend missing id",
			opts:    Options{Backend: MongoStore, Mongo: &MongoConfig{URI: "mongodb://localhost:27017", DBName: "app", CollName: "config"}},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			opts: Options{
				Backend: FileStore,
				File:    &FileConfig{Path: "config.yaml"},
				Kafka:   &KafkaConfig{Topic: "config-changes"},
			},
			wantErr: true,
		},
		{
			name: "kafka broker without port",
			opts: Options{
				Backend: FileStore,
				File:    &FileConfig{Path: "config.yaml"},
				Kafka:   &KafkaConfig{Brokers: []string{"localhost"}, Topic: "config-changes"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	opts := Options{Backend: "redis", File: &FileConfig{Path: "config.yaml"}}
	assert.ErrorIs(t, opts.Validate(), ErrInvalidStoreType)

	_, err := NewBackend(context.Background(), opts)
	assert.ErrorIs(t, err, ErrInvalidStoreType)
}

func TestOpenFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := Open(context.Background(), Options{Backend: FileStore, File: &FileConfig{Path: path}})
	require.NoError(t, err)

	fs, ok := store.backend.(*filestore.FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path)

	store.Init()
	require.NoError(t, Set(store, "window.width", 1024))
	assert.NoError(t, store.Close(context.Background()))
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	path, err := DefaultPath("prefshell")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("prefshell", DefaultFileName), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
