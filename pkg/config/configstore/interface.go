// Package configstore defines the contract between the configuration store and
// the place its document is persisted.
package configstore

import "errors"

// ErrNotFound is wrapped by backends when no document has been stored yet.
var ErrNotFound = errors.New("config document not found")

// ConfigStore loads and saves a whole configuration document.
// Load decodes into out, Save replaces the stored document with in.
type ConfigStore interface {
	Load(out any) error
	Save(in any) error
}
