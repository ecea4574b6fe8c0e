package filestore

import (
	"bytes"
	"fmt"
	"os"

	"github.com/andrej220/prefstore/internal/persistence"
	"github.com/andrej220/prefstore/pkg/config/configstore"
	"gopkg.in/yaml.v3"
)

var _ configstore.ConfigStore = (*FileStore)(nil)

// FileStore keeps the configuration document in a single YAML file.
type FileStore struct {
	Path       string
	serializer persistence.Serializer
	writer     persistence.Writer
}

func New(path string) *FileStore {
	return &FileStore{
		Path:       path,
		serializer: persistence.YAMLSerializer{Indent: persistence.DefaultIndent},
		writer:     persistence.FileWriter{Overwrite: true, Perm: persistence.DefaultPerm},
	}
}

// Load decodes the file into out. A missing file is reported as
// configstore.ErrNotFound; an empty or malformed file is an error.
func (f *FileStore) Load(out any) error {
	if out == nil {
		return fmt.Errorf("Load: output parameter must not be nil")
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("Load: %w: %w", configstore.ErrNotFound, err)
		}
		return fmt.Errorf("Load: failed to read file %s: %w", f.Path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("Load: config file %s is empty", f.Path)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("Load: failed to parse YAML in %s: %w", f.Path, err)
	}

	return nil
}

// Save serializes in and replaces the whole file.
func (f *FileStore) Save(in any) error {
	if in == nil {
		return fmt.Errorf("Save: input parameter must not be nil")
	}

	if err := persistence.WriteToFile(in, f.Path, f.serializer, f.writer); err != nil {
		return fmt.Errorf("Save: %s: %w", f.Path, err)
	}

	return nil
}
