// Package storage defines the library file-system abstraction.
package storage

import "github.com/nborup/skribent/internal/models"

// Provider is the interface for library file operations. Paths are relative
// to the library root; saved-text documents are .json files.
type Provider interface {
	// List returns metadata for every document under dir (relative to the library root).
	List(dir string) ([]models.TextMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
