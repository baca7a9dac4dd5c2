// Package codec converts between snippet collections and their TOML
// document form.
//
// Decoding accepts both spellings of every key ("snippets"/"Snippets",
// "description"/"Description", ...). Encoding always writes the canonical
// layout:
//
//	[[Snippets]]
//	Description = "..."
//	Output = "..."
//	Tag = ["..."]
//	command = "..."
//
// with one blank line between entries.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/models"
)

// DecodeError reports a document that is not well-formed TOML.
type DecodeError struct {
	Line    int    // 1-based; 0 when unknown
	Key     string // last key parsed before the failure, may be empty
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("codec: line %d: %s", e.Line, e.Message)
	}
	return "codec: " + e.Message
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches apperr.ErrMalformedDocument.
func (e *DecodeError) Is(target error) bool {
	return target == apperr.ErrMalformedDocument
}

var (
	collectionKeys  = []string{"snippets", "Snippets"}
	descriptionKeys = []string{"description", "Description"}
	commandKeys     = []string{"command", "Command"}
	tagKeys         = []string{"tag", "Tag"}
	outputKeys      = []string{"output", "Output"}
)

// Decode parses document text into snippets. Missing fields default to the
// empty string, or an empty tag list. Malformed text yields a *DecodeError.
func Decode(text string) ([]models.Snippet, error) {
	var doc map[string]any
	if _, err := toml.Decode(text, &doc); err != nil {
		return nil, newDecodeError(err)
	}

	raw := lookup(doc, collectionKeys, func(v any) bool { return v != nil })
	entries := tables(raw)

	out := make([]models.Snippet, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Snippet{
			Description: stringField(e, descriptionKeys),
			Command:     stringField(e, commandKeys),
			Tags:        tagField(e),
			Output:      stringField(e, outputKeys),
		})
	}
	return out, nil
}

func newDecodeError(err error) *DecodeError {
	var perr toml.ParseError
	if errors.As(err, &perr) {
		return &DecodeError{
			Line:    perr.Position.Line,
			Key:     perr.LastKey,
			Message: parseMessage(perr),
			Err:     err,
		}
	}
	return &DecodeError{Message: err.Error(), Err: err}
}

// parseMessage returns the reason text of a parse error. Most syntax errors
// leave Message empty and only carry the reason in Error(), behind a
// "toml: line N" prefix.
func parseMessage(perr toml.ParseError) string {
	if perr.Message != "" {
		return perr.Message
	}
	prefix := fmt.Sprintf("toml: line %d: ", perr.Position.Line)
	if perr.LastKey != "" {
		prefix = fmt.Sprintf("toml: line %d (last key %q): ", perr.Position.Line, perr.LastKey)
	}
	return strings.TrimPrefix(perr.Error(), prefix)
}

// lookup returns the value of the first key whose value satisfies ok.
func lookup(m map[string]any, keys []string, ok func(any) bool) any {
	for _, k := range keys {
		if v, found := m[k]; found && ok(v) {
			return v
		}
	}
	return nil
}

// tables normalizes an array of tables. Entries that are not tables decode
// as empty snippets so positions are preserved.
func tables(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, _ := item.(map[string]any)
			if m == nil {
				m = map[string]any{}
			}
			out = append(out, m)
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	}
	return nil
}

func stringField(m map[string]any, keys []string) string {
	v := lookup(m, keys, func(v any) bool {
		s, err := cast.ToStringE(v)
		return err == nil && s != ""
	})
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

func tagField(m map[string]any) []string {
	v := lookup(m, tagKeys, func(v any) bool {
		_, err := cast.ToStringSliceE(v)
		return err == nil
	})
	tags := []string{}
	if v == nil {
		return tags
	}
	return append(tags, cast.ToStringSlice(v)...)
}

// entry is the canonical on-disk shape of one snippet. Field order is the
// order keys are written in.
type entry struct {
	Description string   `toml:"Description"`
	Output      string   `toml:"Output"`
	Tag         []string `toml:"Tag"`
	Command     string   `toml:"command"`
}

type document struct {
	Snippets []entry `toml:"Snippets"`
}

// Encode writes snippets in the canonical layout. Every field is emitted even
// when empty. The output ends with a single newline and has no trailing
// blank line; an empty collection encodes to "".
func Encode(snippets []models.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	doc := document{Snippets: make([]entry, 0, len(snippets))}
	for _, s := range snippets {
		tags := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			tags = append(tags, validUTF8(t))
		}
		doc.Snippets = append(doc.Snippets, entry{
			Description: validUTF8(s.Description),
			Output:      validUTF8(s.Output),
			Tag:         tags,
			Command:     validUTF8(s.Command),
		})
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		// Only strings and string slices are encoded.
		panic(fmt.Sprintf("codec: encode: %v", err))
	}
	return buf.String()
}

// validUTF8 replaces invalid byte sequences, which TOML strings cannot hold.
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}
