// Package session persists the editor's open documents between runs.
package session

import (
	"log/slog"

	"github.com/starford/petpad/internal/models"
)

// Backend stores one session snapshot.
type Backend interface {
	SaveSession(s models.SessionState) error
	LoadSession() (*models.SessionState, error)
}

// Persister adapts a Backend to the load/save contract of the editor:
// failures are logged and never reach the caller.
type Persister struct {
	backend Backend
	logger  *slog.Logger
}

// NewPersister returns a Persister over b. A nil backend disables
// persistence.
func NewPersister(b Backend, logger *slog.Logger) *Persister {
	return &Persister{backend: b, logger: logger}
}

// Load returns the saved session, or nil if there is none or it cannot be
// read.
func (p *Persister) Load() *models.SessionState {
	if p == nil || p.backend == nil {
		return nil
	}
	s, err := p.backend.LoadSession()
	if err != nil {
		p.logger.Warn("session: load failed", slog.String("error", err.Error()))
		return nil
	}
	if s == nil {
		return nil
	}
	if s.Selected < 0 || s.Selected >= len(s.Documents) {
		s.Selected = 0
	}
	return s
}

// Save stores s.
func (p *Persister) Save(s models.SessionState) {
	if p == nil || p.backend == nil {
		return
	}
	if s.Documents == nil {
		s.Documents = []models.DocumentState{}
	}
	if err := p.backend.SaveSession(s); err != nil {
		p.logger.Warn("session: save failed", slog.String("error", err.Error()))
	}
}
