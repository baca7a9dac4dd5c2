package palette

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColors checks that every entry is a #rgb or #rrggbb color.
func ValidateColors(colors []string) error {
	return validation.Validate(colors,
		validation.Each(validation.Required, validation.Match(hexColorRe).Error("must be a hex color")),
	)
}

type fileFormat struct {
	Colors []string `yaml:"colors"`
}

// Store is the process-wide palette. When backed by a file the file is the
// source of truth: Set writes it and Watch reloads it on external edits.
type Store struct {
	path     string
	defaults []string

	mu     sync.RWMutex
	colors []string
}

// NewStore creates a Store. path may be empty for an in-memory palette.
// A missing file is not an error; defaults are used until one is written.
func NewStore(path string, defaults []string) (*Store, error) {
	s := &Store{
		path:     path,
		defaults: slices.Clone(defaults),
		colors:   slices.Clone(defaults),
	}
	if path == "" {
		return s, nil
	}
	colors, err := readFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, err
	}
	s.colors = colors
	return s, nil
}

// Colors implements Provider.
func (s *Store) Colors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.colors)
}

// Set validates and replaces the palette, persisting it when file-backed.
func (s *Store) Set(colors []string) error {
	if err := ValidateColors(colors); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	if s.path != "" {
		if err := writeFile(s.path, colors); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.colors = slices.Clone(colors)
	s.mu.Unlock()
	return nil
}

// reload re-reads the file and reports whether the palette changed.
func (s *Store) reload() (bool, error) {
	colors, err := readFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		colors = s.defaults
	} else if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Equal(s.colors, colors) {
		return false, nil
	}
	s.colors = slices.Clone(colors)
	return true, nil
}

// Watch reloads the palette file whenever it changes on disk and calls
// onChange with the new colors when they differ from the previous value.
// It blocks until ctx is cancelled. A Store without a file returns at once.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, onChange func([]string)) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors often replace the file via rename.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("palette: watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)
	logger.Info("palette: watching", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			changed, err := s.reload()
			if err != nil {
				logger.Warn("palette: reload failed", slog.String("error", err.Error()))
				continue
			}
			if changed {
				logger.Debug("palette: changed", slog.String("path", target))
				if onChange != nil {
					onChange(s.Colors())
				}
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("palette: watcher error", slog.String("error", werr.Error()))
		}
	}
}

func readFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("palette: parse %s: %w", path, err)
	}
	if err := ValidateColors(f.Colors); err != nil {
		return nil, fmt.Errorf("palette: %s: %w", path, err)
	}
	return f.Colors, nil
}

func writeFile(path string, colors []string) error {
	data, err := yaml.Marshal(fileFormat{Colors: colors})
	if err != nil {
		return fmt.Errorf("palette: encode: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("palette: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".palette-tmp-*")
	if err != nil {
		return fmt.Errorf("palette: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("palette: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("palette: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("palette: rename: %w", err)
	}
	return nil
}
