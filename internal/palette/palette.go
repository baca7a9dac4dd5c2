// Package palette supplies the variable display colors and assigns them to
// placeholder names.
package palette

import "slices"

// FallbackColor is used when the configured palette is empty.
const FallbackColor = "#d0d0d0"

// DefaultColors is the palette used when nothing else is configured.
var DefaultColors = []string{
	"#e91e63",
	"#9c27b0",
	"#3f51b5",
	"#2196f3",
	"#009688",
	"#ff9800",
	"#f44336",
}

// Provider returns the current ordered palette. Implementations must return
// the live value; callers read it on every use.
type Provider interface {
	Colors() []string
}

// Static is a fixed palette.
type Static []string

// Colors implements Provider.
func (s Static) Colors() []string {
	return slices.Clone(s)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() []string

// Colors implements Provider.
func (f ProviderFunc) Colors() []string {
	return f()
}
