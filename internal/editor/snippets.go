package editor

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/vars"
)

// Field is an editable snippet field.
type Field string

const (
	FieldDescription Field = "description"
	FieldCommand     Field = "command"
	FieldOutput      Field = "output"
	FieldTag         Field = "tag"
)

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldDescription, FieldCommand, FieldOutput, FieldTag:
		return f, nil
	case "tags":
		return FieldTag, nil
	}
	return "", fmt.Errorf("%w: unknown field %q", apperr.ErrInvalidInput, s)
}

// Edit is a single field update. Value is used for text fields and Tags for
// FieldTag.
type Edit struct {
	Field Field
	Value string
	Tags  []string
}

// ListOp is a list edit on one variable.
type ListOp string

const (
	ListMake   ListOp = "make_list"
	ListAdd    ListOp = "add"
	ListRemove ListOp = "remove"
)

// ParseListOp validates a list operation name.
func ParseListOp(s string) (ListOp, error) {
	switch op := ListOp(strings.ToLower(strings.TrimSpace(s))); op {
	case ListMake, ListAdd, ListRemove:
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown list operation %q", apperr.ErrInvalidInput, s)
}

// VariableView is the variable editor state of one snippet.
type VariableView struct {
	Command   string          `json:"command"`
	Variables []vars.Variable `json:"variables"`
	Positions []vars.Position `json:"positions"`
	Preview   string          `json:"preview"`
}

// Hit is a filter result: the snippet and its position in the document.
type Hit struct {
	Index   int            `json:"index"`
	Snippet models.Snippet `json:"snippet"`
}

func editable(d *models.Document) error {
	if d.ParseError != "" {
		return fmt.Errorf("%w: %s", apperr.ErrMalformedDocument, d.ParseError)
	}
	return nil
}

func checkIndex(d *models.Document, i int) error {
	if i < 0 || i >= len(d.Snippets) {
		return fmt.Errorf("%w: %d", apperr.ErrInvalidIndex, i)
	}
	return nil
}

// AddSnippet inserts a blank snippet at the top of the document.
func (s *Service) AddSnippet(name string) (*models.Document, error) {
	return s.mutate(name, SnippetAdded, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		d.Snippets = slices.Insert(d.Snippets, 0, models.Snippet{Tags: []string{}})
		return []int{0}, nil
	})
}

// EditSnippet updates one field of the snippet at index.
func (s *Service) EditSnippet(name string, index int, e Edit) (*models.Document, error) {
	return s.mutate(name, SnippetUpdated, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		if err := checkIndex(d, index); err != nil {
			return nil, err
		}
		sn := &d.Snippets[index]
		switch e.Field {
		case FieldDescription:
			sn.Description = e.Value
		case FieldCommand:
			sn.Command = e.Value
		case FieldOutput:
			sn.Output = e.Value
		case FieldTag:
			sn.Tags = cleanTags(e.Tags)
		default:
			return nil, fmt.Errorf("%w: unknown field %q", apperr.ErrInvalidInput, e.Field)
		}
		return []int{index}, nil
	})
}

// cleanTags trims tags and drops blanks and duplicates, keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// DeleteSnippets removes the snippets at the given indexes. All indexes are
// validated before anything is removed.
func (s *Service) DeleteSnippets(name string, indexes ...int) (*models.Document, error) {
	return s.mutate(name, SnippetDeleted, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		if len(indexes) == 0 {
			return nil, fmt.Errorf("%w: no snippets selected", apperr.ErrInvalidInput)
		}
		uniq := slices.Clone(indexes)
		slices.Sort(uniq)
		uniq = slices.Compact(uniq)
		for _, i := range uniq {
			if err := checkIndex(d, i); err != nil {
				return nil, err
			}
		}
		for j := len(uniq) - 1; j >= 0; j-- {
			d.Snippets = slices.Delete(d.Snippets, uniq[j], uniq[j]+1)
		}
		return uniq, nil
	})
}

// MoveSnippet moves the snippet at from so that it ends up at to.
func (s *Service) MoveSnippet(name string, from, to int) (*models.Document, error) {
	return s.mutate(name, SnippetMoved, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		if err := checkIndex(d, from); err != nil {
			return nil, err
		}
		if err := checkIndex(d, to); err != nil {
			return nil, err
		}
		sn := d.Snippets[from]
		d.Snippets = slices.Delete(d.Snippets, from, from+1)
		d.Snippets = slices.Insert(d.Snippets, to, sn)
		return []int{from, to}, nil
	})
}

// CopySnippets appends copies of the selected snippets of src to the end of
// dst. The source document is not modified.
func (s *Service) CopySnippets(src string, indexes []int, dst string) (*models.Document, error) {
	s.mu.Lock()
	from, ok := s.docs[src]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	if err := editable(from); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	copies := make([]models.Snippet, 0, len(indexes))
	for _, i := range indexes {
		if err := checkIndex(from, i); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		copies = append(copies, from.Snippets[i].Clone())
	}
	s.mu.Unlock()

	if len(copies) == 0 {
		return nil, fmt.Errorf("%w: no snippets selected", apperr.ErrInvalidInput)
	}
	return s.mutate(dst, SnippetAdded, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		added := make([]int, len(copies))
		for k := range copies {
			added[k] = len(d.Snippets) + k
		}
		d.Snippets = append(d.Snippets, copies...)
		return added, nil
	})
}

// Variables returns the parsed variables of the snippet at index.
func (s *Service) Variables(name string, index int) (*VariableView, error) {
	d, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if err := editable(d); err != nil {
		return nil, err
	}
	if err := checkIndex(d, index); err != nil {
		return nil, err
	}
	return s.view(d.Snippets[index].Command), nil
}

func (s *Service) view(command string) *VariableView {
	v := s.parser.Parse(command)
	return &VariableView{
		Command:   command,
		Variables: v,
		Positions: s.parser.Positions(command),
		Preview:   vars.Interpolate(command, vars.Defaults(v)),
	}
}

// SetVariables writes edited variables back into the command of the snippet
// at index and returns the refreshed view.
func (s *Service) SetVariables(name string, index int, variables []vars.Variable) (*VariableView, error) {
	var command string
	_, err := s.mutate(name, SnippetUpdated, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		if err := checkIndex(d, index); err != nil {
			return nil, err
		}
		command = vars.UpdateCommand(d.Snippets[index].Command, variables)
		d.Snippets[index].Command = command
		return []int{index}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(command), nil
}

// EditVariableList applies op to the variable varName of the snippet at
// index and writes it back into the command. slot is the list entry that
// ListRemove drops.
//
// Blank list entries are not written to the command, so the returned view
// carries the edited variable as it stands after op.
func (s *Service) EditVariableList(name string, index int, varName string, op ListOp, slot int) (*VariableView, error) {
	var (
		command string
		edited  vars.Variable
	)
	_, err := s.mutate(name, SnippetUpdated, func(d *models.Document) ([]int, error) {
		if err := editable(d); err != nil {
			return nil, err
		}
		if err := checkIndex(d, index); err != nil {
			return nil, err
		}
		variables := s.parser.Parse(d.Snippets[index].Command)
		i := slices.IndexFunc(variables, func(v vars.Variable) bool { return v.Name == varName })
		if i < 0 {
			return nil, fmt.Errorf("%w: no variable %q", apperr.ErrNotFound, varName)
		}
		v := &variables[i]
		switch {
		case op == ListMake && !v.IsList:
			v.MakeList()
		case op == ListAdd && v.IsList:
			v.AddValue()
		case op == ListRemove && v.IsList:
			if slot < 0 || slot >= len(v.ListValues) {
				return nil, fmt.Errorf("%w: list entry %d", apperr.ErrInvalidIndex, slot)
			}
			v.RemoveValue(slot)
		default:
			return nil, fmt.Errorf("%w: %s on %s variable %q", apperr.ErrInvalidInput, op, kindOf(*v), varName)
		}
		edited = *v
		command = vars.UpdateCommand(d.Snippets[index].Command, []vars.Variable{edited})
		d.Snippets[index].Command = command
		return []int{index}, nil
	})
	if err != nil {
		return nil, err
	}
	view := s.view(command)
	for i := range view.Variables {
		if view.Variables[i].Name == varName {
			edited.Color = view.Variables[i].Color
			view.Variables[i] = edited
		}
	}
	return view, nil
}

func kindOf(v vars.Variable) string {
	if v.IsList {
		return "list"
	}
	return "scalar"
}

// Filter applies q to an open document. When text search is unavailable the
// tag-filtered hits are returned along with apperr.ErrSearchUnavailable.
func (s *Service) Filter(name string, q filter.Query) ([]Hit, error) {
	d, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	if err := editable(d); err != nil {
		return nil, err
	}
	idx, err := s.engine.ApplyIndexed(d.Snippets, q)
	hits := make([]Hit, len(idx))
	for k, i := range idx {
		hits[k] = Hit{Index: i, Snippet: d.Snippets[i]}
	}
	return hits, err
}

// Tags returns the sorted distinct tags of an open document.
func (s *Service) Tags(name string) ([]string, error) {
	d, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, sn := range d.Snippets {
		for _, t := range sn.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
