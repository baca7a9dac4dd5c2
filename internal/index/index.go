package index

import "github.com/starford/petpad/internal/models"

// DocumentIndex is the read/write surface the editor and Sync work against.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, snippets []models.Snippet) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListDocuments() ([]DocumentRow, error)
	AllSnippets() ([]IndexedSnippet, error)
	Tags() ([]TagCount, error)
}

var _ DocumentIndex = (*DB)(nil)
