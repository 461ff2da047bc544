package search

import (
	"net/url"
	"strings"
)

// Query parameter names shared by the JSON API and the web form.
const (
	KeyDataTypeTags = "data_type_tags"
	KeyIssueTags    = "environmental_issue_tags"
	KeyLakeTags     = "lake_tags"
	KeyAuthorTags   = "author_tags"
	KeyCategory     = "category"
	KeyYearStart    = "year_start"
	KeyYearEnd      = "year_end"
	KeyQuery        = "q"
)

// ParamsFromQuery builds Params from URL query values. Tag keys may be
// repeated. The result is validated.
func ParamsFromQuery(q url.Values) (Params, error) {
	cat, err := ParseCategory(q.Get(KeyCategory))
	if err != nil {
		return Params{}, err
	}
	p := Params{
		DataTypeTags: values(q, KeyDataTypeTags),
		IssueTags:    values(q, KeyIssueTags),
		LakeTags:     values(q, KeyLakeTags),
		AuthorTags:   values(q, KeyAuthorTags),
		Category:     cat,
		YearStart:    q.Get(KeyYearStart),
		YearEnd:      q.Get(KeyYearEnd),
		Query:        strings.TrimSpace(q.Get(KeyQuery)),
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func values(q url.Values, key string) []string {
	return nonEmpty(q[key])
}
