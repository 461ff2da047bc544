package api

import (
	"github.com/iisdela/pubsearch/internal/catalog"
	"github.com/iisdela/pubsearch/internal/pubservice"
)

// SearchResponse is the body of GET /api/publications (aliased from the domain layer).
type SearchResponse = pubservice.Result

// DatasetResponse is the body of GET /api/dataset and POST /api/reload.
type DatasetResponse = pubservice.DatasetInfo

// TagsResponse lists the filter values offered by the dataset.
type TagsResponse = catalog.TagOptions

// AuthorsResponse wraps the author directory.
type AuthorsResponse struct {
	Authors []string `json:"authors"`
	Total   int      `json:"total"`
}
