package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iisdela/pubsearch/internal/pubservice"
	"github.com/iisdela/pubsearch/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc *pubservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pubservice.Service) *Handler {
	return &Handler{svc: svc}
}

// SearchPublications handles GET /api/publications.
//
//	@Summary		Combined publication search
//	@Description	Tag filters are OR-ed together, then q, the year bounds and category narrow the result.
//	@Tags			publications
//	@Produce		json
//	@Param			data_type_tags				query		[]string	false	"Data type tags"
//	@Param			environmental_issue_tags	query		[]string	false	"Environmental issue tags"
//	@Param			lake_tags					query		[]string	false	"Lake tags"
//	@Param			author_tags					query		[]string	false	"Author names"
//	@Param			category					query		string		false	"Relationship category"	Enums(all, authored, supported, students)
//	@Param			year_start					query		string		false	"First year (inclusive)"
//	@Param			year_end					query		string		false	"Last year (inclusive)"
//	@Param			q							query		string		false	"Free-text query"
//	@Success		200							{object}	SearchResponse
//	@Failure		400							{object}	errResponse
//	@Failure		503							{object}	errResponse
//	@Security		BearerAuth
//	@Router			/publications [get]
func (h *Handler) SearchPublications(w http.ResponseWriter, r *http.Request) {
	params, err := search.ParamsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, "search", err)
		return
	}
	res, err := h.svc.Search(r.Context(), params)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AuthorPublications handles GET /api/publications/by-author/{name}.
//
//	@Summary		Publications naming one author
//	@Tags			publications
//	@Produce		json
//	@Param			name	path		string	true	"Author name"
//	@Success		200		{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/publications/by-author/{name} [get]
func (h *Handler) AuthorPublications(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		name = chi.URLParam(r, "name")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("author name is required"))
		return
	}
	res, err := h.svc.AuthorPublications(r.Context(), name)
	if err != nil {
		writeError(w, "author publications", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListAuthors handles GET /api/authors.
//
//	@Summary		Author directory
//	@Tags			publications
//	@Produce		json
//	@Success		200	{object}	AuthorsResponse
//	@Security		BearerAuth
//	@Router			/authors [get]
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.svc.Authors(r.Context())
	if err != nil {
		writeError(w, "list authors", err)
		return
	}
	writeJSON(w, http.StatusOK, AuthorsResponse{Authors: authors, Total: len(authors)})
}

// ListTags handles GET /api/tags.
//
//	@Summary		Distinct tag values
//	@Tags			publications
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.TagOptions(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// GetDataset handles GET /api/dataset.
//
//	@Summary		Current dataset version and load history
//	@Tags			dataset
//	@Produce		json
//	@Success		200	{object}	DatasetResponse
//	@Security		BearerAuth
//	@Router			/dataset [get]
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Dataset(r.Context())
	if err != nil {
		writeError(w, "dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Reload handles POST /api/reload.
//
//	@Summary		Reload the dataset from the source
//	@Tags			dataset
//	@Produce		json
//	@Success		200	{object}	DatasetResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Reload(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody("reload failed: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, info)
}
