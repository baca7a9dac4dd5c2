package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/petpad/internal/apperr"
	"github.com/starford/petpad/internal/editor"
	"github.com/starford/petpad/internal/filter"
	"github.com/starford/petpad/internal/models"
	"github.com/starford/petpad/internal/vars"
)

// PaletteStore is the live color palette.
type PaletteStore interface {
	Colors() []string
	Set(colors []string) error
}

// Handler holds API route handlers.
type Handler struct {
	svc         *editor.Service
	palette     PaletteStore
	onPalette   func([]string)
	searchLimit int
}

// NewHandler creates a new Handler.
func NewHandler(svc *editor.Service, opts Options) *Handler {
	return &Handler{
		svc:         svc,
		palette:     opts.Palette,
		onPalette:   opts.OnPaletteSet,
		searchLimit: opts.SearchLimit,
	}
}

// docName extracts the {name} segment. Nested names arrive URL-escaped
// (work%2Fgit.toml).
func docName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func snippetIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("snippet index must be an integer"))
		return 0, false
	}
	return i, true
}

func queryFilter(w http.ResponseWriter, r *http.Request) (filter.Query, bool) {
	q := r.URL.Query()
	mode, err := filter.ParseMatchMode(q.Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return filter.Query{}, false
	}
	var tags []string
	for _, t := range q["tag"] {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	}
	return filter.Query{Tags: tags, Mode: mode, Text: q.Get("q")}, true
}

func writeDocument(w http.ResponseWriter, status int, d *models.Document) {
	if d.Checksum != "" {
		w.Header().Set("ETag", `"`+d.Checksum+`"`)
	}
	writeJSON(w, status, d)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary	List vault documents from the index
//	@Tags		documents
//	@Produce	json
//	@Success	200	{object}	DocumentListResponse
//	@Security	BearerAuth
//	@Router		/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

// CreateDocument handles POST /api/documents.
//
//	@Summary	Create a new unsaved document and open it
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		body	body		NameRequest	true	"Document name"
//	@Success	201		{object}	models.Document
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	writeDocument(w, http.StatusCreated, d)
}

// DeleteDocument handles DELETE /api/documents/{name}.
//
//	@Summary	Delete a vault document that is not open
//	@Tags		documents
//	@Param		name	path	string	true	"Document name"
//	@Success	204
//	@Failure	404	{object}	errResponse
//	@Failure	409	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/documents/{name} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDocument(r.Context(), docName(r)); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOpen handles GET /api/open.
func (h *Handler) ListOpen(w http.ResponseWriter, _ *http.Request) {
	st := h.svc.State()
	writeJSON(w, http.StatusOK, OpenListResponse{Documents: h.svc.List(), Selected: st.Selected})
}

// OpenDocument handles POST /api/open.
//
//	@Summary	Open a vault document in the workspace
//	@Tags		workspace
//	@Accept		json
//	@Produce	json
//	@Param		body	body		NameRequest	true	"Document name"
//	@Success	200		{object}	models.Document
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/open [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Open(r.Context(), req.Name)
	if err != nil {
		writeError(w, "open document", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// GetDocument handles GET /api/open/{name}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(docName(r))
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// CloseDocument handles DELETE /api/open/{name}. Unsaved edits are discarded.
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(docName(r)); err != nil {
		writeError(w, "close document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectDocument handles POST /api/open/{name}/select.
func (h *Handler) SelectDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Select(docName(r)); err != nil {
		writeError(w, "select document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameDocument handles POST /api/open/{name}/rename.
//
//	@Summary	Rename an open document, moving its file if saved
//	@Tags		workspace
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string		true	"Document name"
//	@Param		body	body		NameRequest	true	"New name"
//	@Success	200		{object}	models.Document
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/open/{name}/rename [post]
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Rename(r.Context(), docName(r), req.Name)
	if err != nil {
		writeError(w, "rename document", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// SetContent handles PUT /api/open/{name}/content.
//
//	@Summary	Replace the raw text of an open document
//	@Tags		workspace
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string			true	"Document name"
//	@Param		body	body		ContentRequest	true	"Document text"
//	@Success	200		{object}	models.Document
//	@Security	BearerAuth
//	@Router		/open/{name}/content [put]
func (h *Handler) SetContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.SetContent(docName(r), req.Content)
	if err != nil {
		writeError(w, "set content", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// SaveDocument handles POST /api/open/{name}/save.
//
//	@Summary	Save an open document with optimistic concurrency
//	@Tags		workspace
//	@Produce	json
//	@Param		name		path		string	true	"Document name"
//	@Param		If-Match	header		string	false	"SHA-256 checksum of the file on disk"
//	@Success	200			{object}	models.Document
//	@Failure	409			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/open/{name}/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	d, err := h.svc.Save(r.Context(), docName(r), ifMatch)
	if err != nil {
		writeError(w, "save document", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// Tags handles GET /api/open/{name}/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(docName(r))
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// ListSnippets handles GET /api/open/{name}/snippets.
//
//	@Summary	Filter the snippets of an open document
//	@Tags		snippets
//	@Produce	json
//	@Param		name	path		string	true	"Document name"
//	@Param		tag		query		string	false	"Tag (repeatable or comma separated)"
//	@Param		mode	query		string	false	"Tag match mode"	Enums(any, all)
//	@Param		q		query		string	false	"Fuzzy text query"
//	@Success	200		{object}	SnippetListResponse
//	@Failure	503		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/open/{name}/snippets [get]
func (h *Handler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	q, ok := queryFilter(w, r)
	if !ok {
		return
	}
	hits, err := h.svc.Filter(docName(r), q)
	if err != nil {
		writeError(w, "filter snippets", err)
		return
	}
	writeJSON(w, http.StatusOK, SnippetListResponse{Snippets: hits, Total: len(hits)})
}

// AddSnippet handles POST /api/open/{name}/snippets.
func (h *Handler) AddSnippet(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.AddSnippet(docName(r))
	if err != nil {
		writeError(w, "add snippet", err)
		return
	}
	writeDocument(w, http.StatusCreated, d)
}

// CopySnippets handles POST /api/open/{name}/snippets/copy.
func (h *Handler) CopySnippets(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CopySnippets(docName(r), req.Indexes, req.Target)
	if err != nil {
		writeError(w, "copy snippets", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DeleteSnippets handles POST /api/open/{name}/snippets/delete.
func (h *Handler) DeleteSnippets(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.DeleteSnippets(docName(r), req.Indexes...)
	if err != nil {
		writeError(w, "delete snippets", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// EditSnippet handles PATCH /api/open/{name}/snippets/{index}.
//
//	@Summary	Update one snippet field
//	@Tags		snippets
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string		true	"Document name"
//	@Param		index	path		int			true	"Snippet index"
//	@Param		body	body		EditRequest	true	"Field update"
//	@Success	200		{object}	models.Document
//	@Failure	400		{object}	errResponse
//	@Failure	422		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/open/{name}/snippets/{index} [patch]
func (h *Handler) EditSnippet(w http.ResponseWriter, r *http.Request) {
	i, ok := snippetIndex(w, r)
	if !ok {
		return
	}
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	field, _ := editor.ParseField(req.Field)
	d, err := h.svc.EditSnippet(docName(r), i, editor.Edit{Field: field, Value: req.Value, Tags: req.Tags})
	if err != nil {
		writeError(w, "edit snippet", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// DeleteSnippet handles DELETE /api/open/{name}/snippets/{index}.
func (h *Handler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	i, ok := snippetIndex(w, r)
	if !ok {
		return
	}
	d, err := h.svc.DeleteSnippets(docName(r), i)
	if err != nil {
		writeError(w, "delete snippet", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// MoveSnippet handles POST /api/open/{name}/snippets/{index}/move.
func (h *Handler) MoveSnippet(w http.ResponseWriter, r *http.Request) {
	i, ok := snippetIndex(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.MoveSnippet(docName(r), i, *req.To)
	if err != nil {
		writeError(w, "move snippet", err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// GetVariables handles GET /api/open/{name}/snippets/{index}/variables.
func (h *Handler) GetVariables(w http.ResponseWriter, r *http.Request) {
	i, ok := snippetIndex(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Variables(docName(r), i)
	if err != nil {
		writeError(w, "get variables", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetVariables handles PUT /api/open/{name}/snippets/{index}/variables.
//
//	@Summary	Write edited variables back into the snippet command
//	@Tags		variables
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string				true	"Document name"
//	@Param		index	path		int					true	"Snippet index"
//	@Param		body	body		VariablesRequest	true	"Edited variables"
//	@Success	200		{object}	editor.VariableView
//	@Security	BearerAuth
//	@Router		/open/{name}/snippets/{index}/variables [put]
func (h *Handler) SetVariables(w http.ResponseWriter, r *http.Request) {
	i, ok := snippetIndex(w, r)
	if !ok {
		return
	}
	var req VariablesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.SetVariables(docName(r), i, req.Variables)
	if err != nil {
		writeError(w, "set variables", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// EditVariableList handles PATCH /api/open/{name}/snippets/{index}/variables/{var}.
func (h *Handler) EditVariableList(w http.ResponseWriter, r *http.Request) {
	i, ok := snippetIndex(w, r)
	if !ok {
		return
	}
	var req ListOpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op, _ := editor.ParseListOp(req.Op)
	name := chi.URLParam(r, "var")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	v, err := h.svc.EditVariableList(docName(r), i, name, op, req.Index)
	if err != nil {
		writeError(w, "edit variable list", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ParseVariables handles POST /api/variables/parse.
func (h *Handler) ParseVariables(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := h.svc.Parser()
	writeJSON(w, http.StatusOK, ParseResponse{
		Variables: p.Parse(req.Command),
		Positions: p.Positions(req.Command),
	})
}

// FormatVariable handles POST /api/variables/format.
func (h *Handler) FormatVariable(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": vars.Format(req.Variable)})
}

// Interpolate handles POST /api/variables/interpolate.
func (h *Handler) Interpolate(w http.ResponseWriter, r *http.Request) {
	var req InterpolateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	values := req.Values
	if values == nil {
		values = vars.Defaults(h.svc.Parser().Parse(req.Command))
	}
	writeJSON(w, http.StatusOK, CommandResponse{Command: vars.Interpolate(req.Command, values)})
}

// UpdateCommand handles POST /api/commands/update.
func (h *Handler) UpdateCommand(w http.ResponseWriter, r *http.Request) {
	var req UpdateCommandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Command: vars.UpdateCommand(req.Command, req.Variables)})
}

// GetPalette handles GET /api/palette.
func (h *Handler) GetPalette(w http.ResponseWriter, _ *http.Request) {
	if h.palette == nil {
		writeError(w, "get palette", apperr.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, PaletteResponse{Colors: h.palette.Colors()})
}

// SetPalette handles PUT /api/palette.
//
//	@Summary	Replace the variable color palette
//	@Tags		palette
//	@Accept		json
//	@Produce	json
//	@Param		body	body		PaletteRequest	true	"Colors"
//	@Success	200		{object}	PaletteResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/palette [put]
func (h *Handler) SetPalette(w http.ResponseWriter, r *http.Request) {
	if h.palette == nil {
		writeError(w, "set palette", apperr.ErrNotFound)
		return
	}
	var req PaletteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.palette.Set(req.Colors); err != nil {
		writeError(w, "set palette", err)
		return
	}
	colors := h.palette.Colors()
	if h.onPalette != nil {
		h.onPalette(colors)
	}
	writeJSON(w, http.StatusOK, PaletteResponse{Colors: colors})
}

// Search handles GET /api/search.
//
//	@Summary	Filter snippets across the whole vault
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	false	"Fuzzy text query"
//	@Param		tag		query		string	false	"Tag (repeatable or comma separated)"
//	@Param		mode	query		string	false	"Tag match mode"	Enums(any, all)
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	SearchResponse
//	@Failure	503		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q, ok := queryFilter(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = h.searchLimit
	}
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// VaultTags handles GET /api/tags.
//
//	@Summary	Count tags across every indexed snippet
//	@Tags		search
//	@Produce	json
//	@Success	200	{object}	VaultTagsResponse
//	@Security	BearerAuth
//	@Router		/tags [get]
func (h *Handler) VaultTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.VaultTags(r.Context())
	if err != nil {
		writeError(w, "vault tags", err)
		return
	}
	writeJSON(w, http.StatusOK, VaultTagsResponse{Tags: tags})
}

// Session handles GET /api/session.
func (h *Handler) Session(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State())
}
