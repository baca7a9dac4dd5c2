// Package storage defines the vault of snippet documents.
package storage

import "github.com/starford/petpad/internal/models"

// DocumentExt is the file extension of snippet documents.
const DocumentExt = ".toml"

// Provider is the interface for vault document operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every document under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a document exists at path.
	Exists(path string) (bool, error)
	// Write atomically replaces the document at path.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// IsDocument reports whether name looks like a snippet document.
func IsDocument(name string) bool {
	return len(name) > len(DocumentExt) && name[len(name)-len(DocumentExt):] == DocumentExt
}
