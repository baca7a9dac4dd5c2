package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/petpad/internal/editor"
	"github.com/starford/petpad/internal/index"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/palette"
	"github.com/starford/petpad/internal/vars"
)

// NameRequest names a vault document.
type NameRequest struct {
	Name string `json:"name" example:"work/git.toml" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *NameRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
	)
}

// ContentRequest replaces a document's raw text.
type ContentRequest struct {
	Content string `json:"content" example:"[[snippets]]\ncommand = \"ls\""`
}

// Validate implements validation.Validatable.
func (r *ContentRequest) Validate() error { return nil }

// EditRequest updates one snippet field. Value is used for text fields and
// Tags for "tag".
type EditRequest struct {
	Field string   `json:"field" example:"description" validate:"required"`
	Value string   `json:"value"`
	Tags  []string `json:"tags"`
}

// Validate implements validation.Validatable.
func (r *EditRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Field, validation.Required, validation.By(func(any) error {
			_, err := editor.ParseField(r.Field)
			return err
		})),
	)
}

// CopyRequest copies snippets into another open document.
type CopyRequest struct {
	Indexes []int  `json:"indexes" validate:"required"`
	Target  string `json:"target" example:"shared.toml" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *CopyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Indexes, validation.Required, validation.Each(validation.Min(0))),
		validation.Field(&r.Target, validation.Required),
	)
}

// DeleteRequest removes several snippets at once.
type DeleteRequest struct {
	Indexes []int `json:"indexes" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *DeleteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Indexes, validation.Required, validation.Each(validation.Min(0))),
	)
}

// MoveRequest moves a snippet to a new position.
type MoveRequest struct {
	To *int `json:"to" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.To, validation.NotNil, validation.Min(0)),
	)
}

// VariablesRequest carries edited variables.
type VariablesRequest struct {
	Variables []vars.Variable `json:"variables" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *VariablesRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Variables, validation.NotNil),
	)
}

// ListOpRequest edits the list form of one variable. Index is the list
// entry dropped by "remove".
type ListOpRequest struct {
	Op    string `json:"op" example:"add" validate:"required"`
	Index int    `json:"index"`
}

// Validate implements validation.Validatable.
func (r *ListOpRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Op, validation.Required, validation.By(func(any) error {
			_, err := editor.ParseListOp(r.Op)
			return err
		})),
	)
}

// CommandRequest is a bare command template.
type CommandRequest struct {
	Command string `json:"command" example:"ssh <user=root>@<host>"`
}

// Validate implements validation.Validatable.
func (r *CommandRequest) Validate() error { return nil }

// FormatRequest encodes one variable.
type FormatRequest struct {
	Variable vars.Variable `json:"variable" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *FormatRequest) Validate() error {
	return validation.ValidateStruct(&r.Variable,
		validation.Field(&r.Variable.Name, validation.Required),
	)
}

// InterpolateRequest fills placeholders. Without values the parsed
// defaults are used.
type InterpolateRequest struct {
	Command string            `json:"command" example:"ping -c <count=3> <host>"`
	Values  map[string]string `json:"values"`
}

// Validate implements validation.Validatable.
func (r *InterpolateRequest) Validate() error { return nil }

// UpdateCommandRequest synchronizes variables into a command.
type UpdateCommandRequest struct {
	Command   string          `json:"command"`
	Variables []vars.Variable `json:"variables"`
}

// Validate implements validation.Validatable.
func (r *UpdateCommandRequest) Validate() error { return nil }

// PaletteRequest replaces the color palette.
type PaletteRequest struct {
	Colors []string `json:"colors" example:"#e91e63,#3f51b5" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *PaletteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Colors, validation.NotNil, validation.By(func(any) error {
			return palette.ValidateColors(r.Colors)
		})),
	)
}

// DocumentListResponse wraps the vault listing.
type DocumentListResponse struct {
	Documents []index.DocumentRow `json:"documents" validate:"required"`
}

// OpenListResponse wraps the open documents.
type OpenListResponse struct {
	Documents []*models.Document `json:"documents" validate:"required"`
	Selected  int                `json:"selected"`
}

// SnippetListResponse wraps filter results of one document.
type SnippetListResponse struct {
	Snippets []editor.Hit `json:"snippets" validate:"required"`
	Total    int          `json:"total" example:"12"`
}

// ParseResponse is the parsed form of a command.
type ParseResponse struct {
	Variables []vars.Variable `json:"variables" validate:"required"`
	Positions []vars.Position `json:"positions" validate:"required"`
}

// CommandResponse is a rewritten command.
type CommandResponse struct {
	Command string `json:"command" validate:"required"`
}

// PaletteResponse is the live palette.
type PaletteResponse struct {
	Colors []string `json:"colors" validate:"required"`
}

// VaultTagsResponse lists tags across the vault with their snippet counts.
type VaultTagsResponse struct {
	Tags []index.TagCount `json:"tags" validate:"required"`
}

// SearchResponse wraps vault search hits.
type SearchResponse struct {
	Results []index.IndexedSnippet `json:"results" validate:"required"`
}
