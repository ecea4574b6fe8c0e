// Package config is the application's key/value configuration store: one
// document of string keys to structured values, loaded once from a backend and
// rewritten in full on every change.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andrej220/prefstore/pkg/config/configstore"
	"github.com/andrej220/prefstore/pkg/config/filestore"
	"github.com/andrej220/prefstore/pkg/config/mongostore"
	"github.com/andrej220/prefstore/pkg/config/notify"
	"github.com/go-playground/validator/v10"
)

type StoreType string

const (
	FileStore  StoreType = "file"
	MongoStore StoreType = "mongo"
)

const DefaultFileName = "config.yaml"

var ErrInvalidStoreType = errors.New("invalid store type")

var validate = validator.New(validator.WithRequiredStructEnabled())

type FileConfig struct {
	Path string `yaml:"path" json:"path" validate:"required"`
}

type MongoConfig = mongostore.Config

type KafkaConfig = notify.KafkaConfig

// Options selects and configures the backend, plus optional change publishing.
type Options struct {
	Backend StoreType    `yaml:"backend" json:"backend" validate:"required,oneof=file mongo"`
	File    *FileConfig  `yaml:"file" json:"file" validate:"-"`
	Mongo   *MongoConfig `yaml:"mongo" json:"mongo" validate:"-"`
	Kafka   *KafkaConfig `yaml:"kafka" json:"kafka" validate:"-"`
}

// Validate checks the options and the section of the selected backend.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "Backend" && verrs[0].Tag() == "oneof" {
			return fmt.Errorf("%w: %q", ErrInvalidStoreType, o.Backend)
		}
		return fmt.Errorf("invalid options: %w", err)
	}

	switch o.Backend {
	case FileStore:
		if o.File == nil {
			return fmt.Errorf("invalid options: file backend selected without file section")
		}
		if err := validate.Struct(o.File); err != nil {
			return fmt.Errorf("invalid file options: %w", err)
		}
	case MongoStore:
		if o.Mongo == nil {
			return fmt.Errorf("invalid options: mongo backend selected without mongo section")
		}
		if err := validate.Struct(o.Mongo); err != nil {
			return fmt.Errorf("invalid mongo options: %w", err)
		}
	}

	if o.Kafka != nil {
		if err := validate.Struct(o.Kafka); err != nil {
			return fmt.Errorf("invalid kafka options: %w", err)
		}
	}
	return nil
}

// DefaultPath is <user config dir>/<app>/config.yaml.
func DefaultPath(app string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, app, DefaultFileName), nil
}

// NewBackend builds the backend selected by opts.
func NewBackend(ctx context.Context, opts Options) (configstore.ConfigStore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch opts.Backend {
	case FileStore:
		path, err := filepath.Abs(opts.File.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid config path %q: %w", opts.File.Path, err)
		}
		return filestore.New(path), nil
	case MongoStore:
		return mongostore.New(ctx, *opts.Mongo)
	default:
		return nil, ErrInvalidStoreType
	}
}

// Open builds the backend and, when configured, the Kafka notifier, and returns
// a store over them. The store is not loaded yet; call Init.
func Open(ctx context.Context, opts Options, storeOpts ...Option) (*Store, error) {
	backend, err := NewBackend(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.Kafka != nil {
		storeOpts = append(storeOpts, WithNotifier(notify.NewKafka(*opts.Kafka)))
	}
	return New(backend, storeOpts...), nil
}

// Close releases the notifier and, for backends that hold connections, the backend.
func (s *Store) Close(ctx context.Context) error {
	var errs []error
	if err := s.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close notifier: %w", err))
	}
	if c, ok := s.backend.(interface{ Close(context.Context) error }); ok {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
	}
	return errors.Join(errs...)
}
