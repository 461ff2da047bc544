package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iisdela/pubsearch/internal/pubservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *pubservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/publications", h.SearchPublications)
	r.Get("/publications/by-author/{name}", h.AuthorPublications)
	r.Get("/authors", h.ListAuthors)
	r.Get("/tags", h.ListTags)

	r.Get("/dataset", h.GetDataset)
	r.Post("/reload", h.Reload)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
