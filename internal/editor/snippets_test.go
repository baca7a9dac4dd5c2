package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/testutil"
	"github.com/starford/petpad/internal/vars"
)

func openSample(t *testing.T) *env {
	t.Helper()
	e := newEnv(t)
	testutil.WriteDocument(t, e.dir, "net.toml", sampleDoc)
	if _, err := e.svc.Open(context.Background(), "net.toml"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func commands(d *models.Document) []string {
	out := make([]string, len(d.Snippets))
	for i, s := range d.Snippets {
		out[i] = s.Command
	}
	return out
}

func TestAddSnippet_InsertsAtTop(t *testing.T) {
	e := openSample(t)
	d, err := e.svc.AddSnippet("net.toml")
	if err != nil {
		t.Fatalf("AddSnippet: %v", err)
	}
	want := []string{"", "ls -la <dir=.>", "ping -c <count=3> <host>"}
	if diff := cmp.Diff(want, commands(d)); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}
	if !d.Dirty {
		t.Error("document not dirty after add")
	}
	if d.Snippets[0].Tags == nil {
		t.Error("new snippet should have empty, non-nil tags")
	}
}

func TestEditSnippet(t *testing.T) {
	e := openSample(t)
	d, err := e.svc.EditSnippet("net.toml", 1, Edit{Field: FieldTag, Tags: []string{" net ", "", "net", "icmp"}})
	if err != nil {
		t.Fatalf("EditSnippet: %v", err)
	}
	if diff := cmp.Diff([]string{"net", "icmp"}, d.Snippets[1].Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}

	d, _ = e.svc.EditSnippet("net.toml", 1, Edit{Field: FieldOutput, Value: "64 bytes"})
	if d.Snippets[1].Output != "64 bytes" {
		t.Errorf("output = %q", d.Snippets[1].Output)
	}

	if _, err := e.svc.EditSnippet("net.toml", 5, Edit{Field: FieldCommand}); !errors.Is(err, apperr.ErrInvalidIndex) {
		t.Errorf("out of range: err = %v", err)
	}
	if _, err := e.svc.EditSnippet("net.toml", 0, Edit{Field: "bogus"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad field: err = %v", err)
	}
	if _, err := e.svc.EditSnippet("other.toml", 0, Edit{Field: FieldCommand}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("not open: err = %v", err)
	}
}

func TestParseField(t *testing.T) {
	for in, want := range map[string]Field{"Description": FieldDescription, "tags": FieldTag, " command ": FieldCommand} {
		got, err := ParseField(in)
		if err != nil || got != want {
			t.Errorf("ParseField(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseField("title"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("ParseField(title): err = %v", err)
	}
}

func TestDeleteSnippets(t *testing.T) {
	e := openSample(t)
	_, _ = e.svc.AddSnippet("net.toml")

	if _, err := e.svc.DeleteSnippets("net.toml", 0, 9); !errors.Is(err, apperr.ErrInvalidIndex) {
		t.Fatalf("invalid index: err = %v", err)
	}
	d, _ := e.svc.Get("net.toml")
	if len(d.Snippets) != 3 {
		t.Fatalf("failed delete must not remove anything, have %d", len(d.Snippets))
	}

	d, err := e.svc.DeleteSnippets("net.toml", 2, 0, 2)
	if err != nil {
		t.Fatalf("DeleteSnippets: %v", err)
	}
	if diff := cmp.Diff([]string{"ls -la <dir=.>"}, commands(d)); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}
}

func TestMoveSnippet(t *testing.T) {
	e := openSample(t)
	d, err := e.svc.MoveSnippet("net.toml", 0, 1)
	if err != nil {
		t.Fatalf("MoveSnippet: %v", err)
	}
	want := []string{"ping -c <count=3> <host>", "ls -la <dir=.>"}
	if diff := cmp.Diff(want, commands(d)); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}
	if _, err := e.svc.MoveSnippet("net.toml", 0, 2); !errors.Is(err, apperr.ErrInvalidIndex) {
		t.Errorf("out of range: err = %v", err)
	}
}

func TestCopySnippets(t *testing.T) {
	e := openSample(t)
	ctx := context.Background()
	_, _ = e.svc.Create(ctx, "copy.toml")
	_, _ = e.svc.AddSnippet("copy.toml")

	d, err := e.svc.CopySnippets("net.toml", []int{1, 0}, "copy.toml")
	if err != nil {
		t.Fatalf("CopySnippets: %v", err)
	}
	want := []string{"", "ping -c <count=3> <host>", "ls -la <dir=.>"}
	if diff := cmp.Diff(want, commands(d)); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}

	src, _ := e.svc.Get("net.toml")
	if src.Dirty {
		t.Error("source marked dirty by copy")
	}

	last := e.rec.changes[len(e.rec.changes)-1]
	if last.Type != SnippetAdded || last.Document != "copy.toml" {
		t.Errorf("last change = %+v", last)
	}
	if diff := cmp.Diff([]int{1, 2}, last.Indexes); diff != "" {
		t.Errorf("indexes (-want +got):\n%s", diff)
	}
}

func TestVariables_RoundTrip(t *testing.T) {
	e := openSample(t)
	v, err := e.svc.Variables("net.toml", 1)
	if err != nil {
		t.Fatalf("Variables: %v", err)
	}
	if len(v.Variables) != 2 || v.Variables[0].Name != "count" || v.Variables[1].Name != "host" {
		t.Fatalf("variables = %+v", v.Variables)
	}
	if v.Preview != "ping -c 3 " {
		t.Errorf("preview = %q", v.Preview)
	}

	edited := v.Variables
	edited[1].Value = "example.com"
	edited[0].MakeList()
	edited[0].ListValues = []string{"1", "5"}

	got, err := e.svc.SetVariables("net.toml", 1, edited)
	if err != nil {
		t.Fatalf("SetVariables: %v", err)
	}
	wantCmd := "ping -c <count=|_1_||_5_|> <host=example.com>"
	if got.Command != wantCmd {
		t.Errorf("command = %q, want %q", got.Command, wantCmd)
	}
	if got.Preview != "ping -c 1 example.com" {
		t.Errorf("preview = %q", got.Preview)
	}

	d, _ := e.svc.Get("net.toml")
	if d.Snippets[1].Command != wantCmd || !d.Dirty {
		t.Errorf("document not updated: %+v", d.Snippets[1])
	}
}

func TestSetVariables_Unchanged(t *testing.T) {
	e := openSample(t)
	v, _ := e.svc.Variables("net.toml", 0)
	if _, err := e.svc.SetVariables("net.toml", 0, v.Variables); err != nil {
		t.Fatalf("SetVariables: %v", err)
	}
	d, _ := e.svc.Get("net.toml")
	if d.Dirty {
		t.Error("synchronizing unmodified variables dirtied the document")
	}
}

func TestFilter(t *testing.T) {
	e := openSample(t)

	hits, err := e.svc.Filter("net.toml", filter.Query{Tags: []string{"net"}})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(hits) != 1 || hits[0].Index != 1 {
		t.Errorf("tag hits = %+v", hits)
	}

	hits, err = e.svc.Filter("net.toml", filter.Query{Text: "pinng"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(hits) != 1 || hits[0].Index != 1 {
		t.Errorf("fuzzy hits = %+v", hits)
	}
}

func TestFilter_SearchUnavailable(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteDocument(t, dir, "net.toml", sampleDoc)
	svc := NewService(store, testutil.TestDB(t), Options{
		Engine: filter.NewEngine(nil),
		Parser: vars.NewParser(nil),
		Logger: testutil.Logger(),
	})
	_, _ = svc.Open(context.Background(), "net.toml")

	hits, err := svc.Filter("net.toml", filter.Query{Tags: []string{"fs"}, Text: "list"})
	if !errors.Is(err, apperr.ErrSearchUnavailable) {
		t.Fatalf("err = %v, want ErrSearchUnavailable", err)
	}
	if len(hits) != 1 || hits[0].Index != 0 {
		t.Errorf("tag results should survive: %+v", hits)
	}
}

func TestTags(t *testing.T) {
	e := openSample(t)
	got, err := e.svc.Tags("net.toml")
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if diff := cmp.Diff([]string{"fs", "net", "shell"}, got); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestEditVariableList(t *testing.T) {
	e := openSample(t)

	v, err := e.svc.EditVariableList("net.toml", 1, "count", ListMake, 0)
	if err != nil {
		t.Fatalf("make_list: %v", err)
	}
	if v.Command != "ping -c <count=|_3_|> <host>" {
		t.Errorf("command = %q", v.Command)
	}
	if diff := cmp.Diff([]string{"3", ""}, v.Variables[0].ListValues); diff != "" {
		t.Errorf("list values (-want +got):\n%s", diff)
	}
	if v.Variables[0].Color == "" {
		t.Error("edited variable lost its color")
	}

	v, err = e.svc.EditVariableList("net.toml", 1, "count", ListAdd, 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if diff := cmp.Diff([]string{"3", ""}, v.Variables[0].ListValues); diff != "" {
		t.Errorf("list values after add (-want +got):\n%s", diff)
	}

	v, err = e.svc.EditVariableList("net.toml", 1, "count", ListRemove, 0)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if v.Command != "ping -c <count> <host>" || v.Variables[0].IsList {
		t.Errorf("after removing the last entry = %+v", v)
	}

	d, _ := e.svc.Get("net.toml")
	if d.Snippets[1].Command != "ping -c <count> <host>" || !d.Dirty {
		t.Errorf("document not updated: %+v", d.Snippets[1])
	}
}

func TestEditVariableList_Errors(t *testing.T) {
	e := openSample(t)
	if _, err := e.svc.EditVariableList("net.toml", 1, "count", ListMake, 0); err != nil {
		t.Fatalf("make_list: %v", err)
	}
	tests := []struct {
		name string
		op   ListOp
		slot int
		want error
	}{
		{"missing", ListAdd, 0, apperr.ErrNotFound},
		{"host", ListAdd, 0, apperr.ErrInvalidInput},
		{"host", ListRemove, 0, apperr.ErrInvalidInput},
		{"count", ListMake, 0, apperr.ErrInvalidInput},
		{"count", ListRemove, 4, apperr.ErrInvalidIndex},
	}
	for _, tt := range tests {
		if _, err := e.svc.EditVariableList("net.toml", 1, tt.name, tt.op, tt.slot); !errors.Is(err, tt.want) {
			t.Errorf("%s %s: err = %v, want %v", tt.op, tt.name, err, tt.want)
		}
	}
	if _, err := e.svc.EditVariableList("net.toml", 9, "count", ListAdd, 0); !errors.Is(err, apperr.ErrInvalidIndex) {
		t.Errorf("bad snippet index: err = %v", err)
	}
	if _, err := ParseListOp("sort"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("ParseListOp: err = %v", err)
	}
}
