// Package vars extracts, edits and re-encodes the <name=default> placeholders
// embedded in snippet command templates.
//
// Placeholder grammar:
//
//	placeholder := "<" name [ "=" default ] ">"
//	default     := scalar | "|_" value ("_||_" value)* "_|"
//
// Only the first occurrence of each name carries the editable default; later
// occurrences are left as literal text when a command is synchronized.
package vars

import (
	"regexp"
	"strings"

	"github.com/starford/petpad/internal/palette"
)

const (
	listOpen  = "|_"
	listClose = "_|"
	listSep   = "_||_"
)

// placeholderRe matches a '<' followed by at least one non-'>' character and
// the next '>'. Nested brackets are not supported.
var placeholderRe = regexp.MustCompile(`<([^>]+)>`)

// Variable is the editable view of one placeholder name.
type Variable struct {
	Name       string   `json:"name"`
	Value      string   `json:"value"`
	IsList     bool     `json:"is_list"`
	ListValues []string `json:"list_values"`
	Color      string   `json:"color"`
}

// Position is one placeholder occurrence in a command. Start and End are
// byte offsets; End is exclusive.
type Position struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// span is a raw placeholder match.
type span struct {
	start, end int
	text       string
	content    string
}

// scan returns every placeholder span in command, left to right.
func scan(command string) []span {
	locs := placeholderRe.FindAllStringSubmatchIndex(command, -1)
	out := make([]span, 0, len(locs))
	for _, loc := range locs {
		out = append(out, span{
			start:   loc[0],
			end:     loc[1],
			text:    command[loc[0]:loc[1]],
			content: command[loc[2]:loc[3]],
		})
	}
	return out
}

// spanName returns the variable name of a placeholder's inner content: the
// trimmed text before the first '=', or the whole content verbatim.
func spanName(content string) string {
	if i := strings.IndexByte(content, '='); i >= 0 {
		return strings.TrimSpace(content[:i])
	}
	return content
}

// decode builds a Variable (without color) from a placeholder's content.
func decode(content string) Variable {
	v := Variable{Name: content, ListValues: []string{""}}
	i := strings.IndexByte(content, '=')
	if i < 0 {
		return v
	}
	v.Name = strings.TrimSpace(content[:i])
	raw := content[i+1:]

	if !strings.HasPrefix(raw, listOpen) || !strings.HasSuffix(raw, listClose) {
		v.Value = raw
		return v
	}

	v.IsList = true
	inner := ""
	if len(raw) >= len(listOpen)+len(listClose) {
		inner = raw[len(listOpen) : len(raw)-len(listClose)]
	}
	var values []string
	for _, piece := range strings.Split(inner, listSep) {
		if piece != "" {
			values = append(values, piece)
		}
	}
	if len(values) > 0 {
		v.ListValues = values
	}
	return v
}

// Parser turns command templates into Variables, coloring them from a
// palette Provider.
type Parser struct {
	palette  palette.Provider
	fallback string
}

// NewParser returns a Parser reading colors from p.
func NewParser(p palette.Provider) *Parser {
	return &Parser{palette: p}
}

// WithFallback sets the color used when the palette is empty.
func (p *Parser) WithFallback(color string) *Parser {
	p.fallback = color
	return p
}

func (p *Parser) assigner() *palette.Assigner {
	return palette.NewAssigner(p.palette).WithFallback(p.fallback)
}

// Parse returns one Variable per distinct placeholder name, in order of first
// occurrence. Each Variable is built from the first occurrence of its name.
func (p *Parser) Parse(command string) []Variable {
	spans := scan(command)
	if len(spans) == 0 {
		return []Variable{}
	}
	colors := p.assigner()
	seen := make(map[string]struct{}, len(spans))
	out := make([]Variable, 0, len(spans))
	for _, s := range spans {
		v := decode(s.content)
		if _, dup := seen[v.Name]; dup {
			continue
		}
		seen[v.Name] = struct{}{}
		v.Color = colors.Color(v.Name)
		out = append(out, v)
	}
	return out
}

// Positions returns every placeholder occurrence, duplicates included, with
// the color its name gets in Parse.
func (p *Parser) Positions(command string) []Position {
	spans := scan(command)
	colors := p.assigner()
	out := make([]Position, 0, len(spans))
	for _, s := range spans {
		name := spanName(s.content)
		out = append(out, Position{
			Name:  name,
			Start: s.start,
			End:   s.end,
			Text:  s.text,
			Color: colors.Color(name),
		})
	}
	return out
}
