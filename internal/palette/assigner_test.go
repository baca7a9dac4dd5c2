package palette

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAssigner_CyclesByFirstAppearance(t *testing.T) {
	a := NewAssigner(Static{"red", "green", "blue"})
	var got []string
	for _, name := range []string{"v1", "v2", "v3", "v4", "v5"} {
		got = append(got, a.Color(name))
	}
	want := []string{"red", "green", "blue", "red", "green"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("colors mismatch (-want +got):\n%s", diff)
	}
}

func TestAssigner_SameNameSameColor(t *testing.T) {
	a := NewAssigner(Static{"red", "green"})
	first := a.Color("src")
	_ = a.Color("dst")
	if again := a.Color("src"); again != first {
		t.Errorf("src color changed: %q then %q", first, again)
	}
}

func TestAssigner_EmptyPaletteFallsBack(t *testing.T) {
	a := NewAssigner(Static{})
	if c := a.Color("x"); c != FallbackColor {
		t.Errorf("color = %q, want %q", c, FallbackColor)
	}
	a = NewAssigner(nil).WithFallback("#000")
	if c := a.Color("x"); c != "#000" {
		t.Errorf("color = %q, want #000", c)
	}
}

func TestAssigner_ReadsPaletteOnEveryCall(t *testing.T) {
	colors := []string{"red"}
	a := NewAssigner(ProviderFunc(func() []string { return colors }))
	if c := a.Color("a"); c != "red" {
		t.Fatalf("color = %q", c)
	}
	colors = []string{"cyan", "magenta"}
	if c := a.Color("b"); c != "magenta" {
		t.Errorf("color after palette change = %q, want magenta", c)
	}
}

func TestAssigner_FreshStatePerInstance(t *testing.T) {
	p := Static{"red", "green"}
	a := NewAssigner(p)
	_ = a.Color("a")
	_ = a.Color("b")
	b := NewAssigner(p)
	if c := b.Color("b"); c != "red" {
		t.Errorf("new assigner should start at palette[0], got %q", c)
	}
}
