// Package web renders the HTML search page and the per-author page that
// is embedded into researcher profiles.
package web

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/iisdela/pubsearch/internal/apperr"
	"github.com/iisdela/pubsearch/internal/catalog"
	"github.com/iisdela/pubsearch/internal/citation"
	"github.com/iisdela/pubsearch/internal/pubservice"
	"github.com/iisdela/pubsearch/internal/search"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// keyAuthor is the form field of the author multi-select. It differs from
// search.KeyAuthorTags, which selects the single-author page.
const keyAuthor = "author"

var funcs = template.FuncMap{
	"selected": func(list []string, v string) bool { return slices.Contains(list, v) },
}

var pages = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.gohtml"))

// Handler serves the HTML pages.
type Handler struct {
	svc    *pubservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *pubservice.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type searchPage struct {
	Options    catalog.TagOptions
	Authors    []string
	Params     search.Params
	Category   string
	Categories []string
	Error      string
	Count      int
	Results    []citation.Entry
}

type authorPage struct {
	Author    string
	YearStart int
	YearEnd   int
	Results   []citation.Entry
}

// Index handles GET /. A non-empty author_tags parameter renders only that
// author's publications.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if author := strings.TrimSpace(q.Get(search.KeyAuthorTags)); author != "" {
		h.author(w, r, author)
		return
	}
	h.search(w, r, q)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, q url.Values) {
	ctx := r.Context()

	opts, err := h.svc.TagOptions(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	authors, err := h.svc.Authors(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}

	page := searchPage{
		Options:    opts,
		Authors:    authors,
		Category:   search.CategoryAll.String(),
		Categories: []string{"all", "authored", "supported", "students"},
	}

	form := url.Values{}
	for k, v := range q {
		form[k] = v
	}
	form[search.KeyAuthorTags] = q[keyAuthor]

	params, err := search.ParamsFromQuery(form)
	if err != nil {
		// Keep the visitor's inputs so the form can be corrected.
		page.Params = search.Params{
			DataTypeTags: q[search.KeyDataTypeTags],
			IssueTags:    q[search.KeyIssueTags],
			LakeTags:     q[search.KeyLakeTags],
			AuthorTags:   q[keyAuthor],
			YearStart:    q.Get(search.KeyYearStart),
			YearEnd:      q.Get(search.KeyYearEnd),
			Query:        q.Get(search.KeyQuery),
		}
		page.Error = userMessage(err)
		h.render(w, http.StatusBadRequest, "search", page)
		return
	}
	page.Params = params
	page.Category = params.Category.String()

	res, err := h.svc.Search(ctx, params)
	if err != nil {
		h.fail(w, err)
		return
	}
	page.Count = res.Count
	page.Results = res.Results
	h.render(w, http.StatusOK, "search", page)
}

func (h *Handler) author(w http.ResponseWriter, r *http.Request, name string) {
	res, err := h.svc.AuthorPublications(r.Context(), name)
	if err != nil {
		h.fail(w, err)
		return
	}
	page := authorPage{Author: name, Results: res.Results}
	for i, e := range res.Results {
		y := e.Publication.Year
		if i == 0 || y < page.YearStart {
			page.YearStart = y
		}
		if y > page.YearEnd {
			page.YearEnd = y
		}
	}
	h.render(w, http.StatusOK, "author", page)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render failed", slog.String("template", name), slog.String("error", err.Error()))
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrNotLoaded) {
		http.Error(w, "Publications are still loading. Please try again shortly.", http.StatusServiceUnavailable)
		return
	}
	h.logger.Error("page failed", slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// userMessage strips the sentinel prefix from validation errors.
func userMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, apperr.ErrInvalidParams.Error()+": "); ok {
		return rest
	}
	return msg
}
