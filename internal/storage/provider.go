// Package storage defines the bundle file-system abstraction.
package storage

import "github.com/starford/diagreplay/internal/models"

// Provider is the interface for bundle file operations. Paths are relative
// to the bundle root.
type Provider interface {
	// List returns metadata for every file under dir whose name ends in ext.
	// An empty ext lists every file.
	List(dir, ext string) ([]models.ArtifactMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether path names a regular file.
	Exists(path string) bool
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
