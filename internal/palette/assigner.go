package palette

// Assigner hands out colors sequentially by first appearance: the first
// distinct name gets palette[0], the second palette[1], wrapping around.
// One Assigner is created per parse pass and then discarded.
type Assigner struct {
	provider Provider
	fallback string
	index    map[string]int
	next     int
}

// NewAssigner returns an Assigner reading from p. A nil provider behaves
// like an empty palette.
func NewAssigner(p Provider) *Assigner {
	return &Assigner{
		provider: p,
		fallback: FallbackColor,
		index:    make(map[string]int),
	}
}

// WithFallback overrides the color used when the palette is empty.
func (a *Assigner) WithFallback(color string) *Assigner {
	if color != "" {
		a.fallback = color
	}
	return a
}

// Color returns the color for name. The palette is read on every call so a
// configuration change applies to the very next parse.
func (a *Assigner) Color(name string) string {
	idx, ok := a.index[name]
	if !ok {
		idx = a.next
		a.index[name] = idx
		a.next++
	}

	var colors []string
	if a.provider != nil {
		colors = a.provider.Colors()
	}
	if len(colors) == 0 {
		return a.fallback
	}
	return colors[idx%len(colors)]
}
