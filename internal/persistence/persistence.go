// Package persistence writes serialized documents to files, split into a
// Serializer (encoding) and a Writer (destination) so each can be swapped in tests.
package persistence

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIndent = 2
	DefaultPerm   = 0o600
	dirPerm       = 0o755
)

type Serializer interface {
	Marshal(data any) ([]byte, error)
}

type Writer interface {
	Write(filename string, data []byte) error
}

// YAMLSerializer encodes documents as YAML with a fixed indent.
type YAMLSerializer struct {
	Indent int
}

func (s YAMLSerializer) Marshal(data any) ([]byte, error) {
	indent := s.Indent
	if indent <= 0 {
		indent = DefaultIndent
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileWriter replaces the whole target file. The new content is written to a
// temporary file in the same directory and renamed over the target.
type FileWriter struct {
	Overwrite bool
	Perm      os.FileMode
}

func (w FileWriter) Write(filename string, data []byte) error {
	if filename == "" {
		return os.ErrInvalid
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) && !w.Overwrite {
		return os.ErrExist
	}
	if err := os.MkdirAll(filepath.Dir(filename), dirPerm); err != nil {
		return err
	}
	perm := w.Perm
	if perm == 0 {
		perm = DefaultPerm
	}
	return renameio.WriteFile(filename, data, perm)
}

// WriteToFile serializes data with serializer and hands the bytes to writer.
func WriteToFile(data any, filename string, serializer Serializer, writer Writer) error {
	if filename == "" {
		return fmt.Errorf("invalid filename: %w", os.ErrInvalid)
	}

	bytes, err := serializer.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := writer.Write(filename, bytes); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// WriteYAML persists data as YAML with default settings (overwrite enabled, 2-space indent, 0600).
func WriteYAML(data any, filename string) error {
	return WriteToFile(data, filename, YAMLSerializer{Indent: DefaultIndent}, FileWriter{Overwrite: true, Perm: DefaultPerm})
}
