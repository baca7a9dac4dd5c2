// Package models defines the domain types for petpad.
package models

import (
	"slices"
	"time"
)

// Snippet is one stored command template.
type Snippet struct {
	Description string   `json:"description"`
	Command     string   `json:"command"`
	Tags        []string `json:"tags"`
	Output      string   `json:"output"`
}

// Clone returns a deep copy of s.
func (s Snippet) Clone() Snippet {
	out := s
	out.Tags = slices.Clone(s.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// Equal reports whether two snippets carry the same field values.
func (s Snippet) Equal(o Snippet) bool {
	return s.Description == o.Description &&
		s.Command == o.Command &&
		s.Output == o.Output &&
		slices.Equal(s.Tags, o.Tags)
}

// HasTag reports whether tag is among the snippet's tags.
func (s Snippet) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// Document is a named collection of snippets held open in the editor.
//
// When the persisted text could not be decoded, Snippets is nil, Raw keeps
// the text for manual correction and ParseError describes the failure.
type Document struct {
	Name       string    `json:"name"`
	Snippets   []Snippet `json:"snippets"`
	Dirty      bool      `json:"dirty"`
	Raw        string    `json:"raw,omitempty"`
	ParseError string    `json:"parse_error,omitempty"`
	// Checksum is the digest of the on-disk content at last open or save.
	// Empty for documents that were never written.
	Checksum string `json:"checksum,omitempty"`
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := *d
	if d.Snippets != nil {
		out.Snippets = make([]Snippet, len(d.Snippets))
		for i, s := range d.Snippets {
			out.Snippets[i] = s.Clone()
		}
	}
	return &out
}

// DocumentMetadata is the storage listing entry for a vault document.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
