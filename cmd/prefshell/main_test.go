package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andrej220/prefstore/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, opts config.Options)
		wantErr error
	}{
		{
			name: "file backend",
			args: []string{"-config", path},
			check: func(t *testing.T, opts config.Options) {
				assert.Equal(t, config.FileStore, opts.Backend)
				require.NotNil(t, opts.File)
				assert.Equal(t, path, opts.File.Path)
				assert.Nil(t, opts.Kafka)
			},
		},
		{
			name: "mongo backend",
			args: []string{"-backend", "mongo", "-mongo-id", "desktop"},
			check: func(t *testing.T, opts config.Options) {
				require.NotNil(t, opts.Mongo)
				assert.Equal(t, "desktop", opts.Mongo.ID)
				assert.Nil(t, opts.File)
			},
		},
		{
			name: "kafka brokers",
			args: []string{"-config", path, "-kafka-brokers", "kafka-1:9092,kafka-2:9092"},
			check: func(t *testing.T, opts config.Options) {
				require.NotNil(t, opts.Kafka)
				assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, opts.Kafka.Brokers)
				assert.Equal(t, "prefstore.changes", opts.Kafka.Topic)
			},
		},
		{
			name:    "unknown backend",
			args:    []string{"-backend", "redis"},
			wantErr: config.ErrInvalidStoreType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFlags(tt.args)
			require.NoError(t, err)
			opts, err := f.options()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestRunHelp(t *testing.T) {
	assert.NoError(t, run(context.Background(), []string{"-h"}))
}
