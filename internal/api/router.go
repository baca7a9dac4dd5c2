package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/petpad/internal/editor"
)

// Options configures the API router.
type Options struct {
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// Palette backs /palette; nil answers 404.
	Palette PaletteStore
	// OnPaletteSet is called with the new colors after PUT /palette.
	OnPaletteSet func([]string)
	SearchLimit  int
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *editor.Service, opts Options) chi.Router {
	h := NewHandler(svc, opts)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

	// Vault documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Delete("/documents/{name}", h.DeleteDocument)

	// Workspace.
	r.Get("/open", h.ListOpen)
	r.Post("/open", h.OpenDocument)
	r.Route("/open/{name}", func(r chi.Router) {
		r.Get("/", h.GetDocument)
		r.Delete("/", h.CloseDocument)
		r.Post("/select", h.SelectDocument)
		r.Post("/rename", h.RenameDocument)
		r.Put("/content", h.SetContent)
		r.Post("/save", h.SaveDocument)
		r.Get("/tags", h.Tags)

		r.Get("/snippets", h.ListSnippets)
		r.Post("/snippets", h.AddSnippet)
		r.Post("/snippets/copy", h.CopySnippets)
		r.Post("/snippets/delete", h.DeleteSnippets)
		r.Patch("/snippets/{index}", h.EditSnippet)
		r.Delete("/snippets/{index}", h.DeleteSnippet)
		r.Post("/snippets/{index}/move", h.MoveSnippet)
		r.Get("/snippets/{index}/variables", h.GetVariables)
		r.Put("/snippets/{index}/variables", h.SetVariables)
		r.Patch("/snippets/{index}/variables/{var}", h.EditVariableList)
	})

	// Stateless variable tools.
	r.Post("/variables/parse", h.ParseVariables)
	r.Post("/variables/format", h.FormatVariable)
	r.Post("/variables/interpolate", h.Interpolate)
	r.Post("/commands/update", h.UpdateCommand)

	r.Get("/palette", h.GetPalette)
	r.Put("/palette", h.SetPalette)

	r.Get("/search", h.Search)
	r.Get("/tags", h.VaultTags)
	r.Get("/session", h.Session)

	// SSE endpoint (protected by same auth middleware).
	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
