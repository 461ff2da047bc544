// Package search implements the combined publication filter.
package search

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/iisdela/pubsearch/internal/apperr"
)

// Category narrows results by the record's tie to IISD-ELA.
type Category int

const (
	CategoryAll Category = iota
	CategoryAuthored
	CategorySupported
	CategoryStudents
)

// ParseCategory accepts the form values "", "all", "authored",
// "supported" and "students" (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return CategoryAll, nil
	case "authored":
		return CategoryAuthored, nil
	case "supported":
		return CategorySupported, nil
	case "students":
		return CategoryStudents, nil
	default:
		return CategoryAll, fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidParams, s)
	}
}

func (c Category) String() string {
	switch c {
	case CategoryAuthored:
		return "authored"
	case CategorySupported:
		return "supported"
	case CategoryStudents:
		return "students"
	default:
		return "all"
	}
}

// Params is one request's filter criteria. The zero value matches the
// whole base set.
type Params struct {
	DataTypeTags []string `json:"data_type_tags,omitempty"`
	IssueTags    []string `json:"environmental_issue_tags,omitempty"`
	LakeTags     []string `json:"lake_tags,omitempty"`
	AuthorTags   []string `json:"author_tags,omitempty"`
	Category     Category `json:"-"`
	YearStart    string   `json:"year_start,omitempty"`
	YearEnd      string   `json:"year_end,omitempty"`
	Query        string   `json:"q,omitempty"`
}

var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Validate checks the year bounds. Errors wrap apperr.ErrInvalidParams.
func (p *Params) Validate() error {
	p.YearStart = strings.TrimSpace(p.YearStart)
	p.YearEnd = strings.TrimSpace(p.YearEnd)

	err := validation.ValidateStruct(p,
		validation.Field(&p.YearStart, validation.Match(yearPattern).Error("must be a 4-digit year")),
		validation.Field(&p.YearEnd, validation.Match(yearPattern).Error("must be a 4-digit year")),
		validation.Field(&p.Category, validation.In(CategoryAll, CategoryAuthored, CategorySupported, CategoryStudents)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidParams, err)
	}

	start, hasStart := atoi(p.YearStart)
	end, hasEnd := atoi(p.YearEnd)
	if hasStart && hasEnd {
		if start > end {
			return fmt.Errorf("%w: year_start %s is after year_end %s", apperr.ErrInvalidParams, p.YearStart, p.YearEnd)
		}
	}
	return nil
}

// IsEmpty reports whether no criterion is set.
func (p Params) IsEmpty() bool {
	return !p.hasTagFilter() &&
		p.Category == CategoryAll &&
		strings.TrimSpace(p.YearStart) == "" &&
		strings.TrimSpace(p.YearEnd) == "" &&
		strings.TrimSpace(p.Query) == ""
}

func (p Params) hasTagFilter() bool {
	return len(nonEmpty(p.DataTypeTags)) > 0 ||
		len(nonEmpty(p.IssueTags)) > 0 ||
		len(nonEmpty(p.LakeTags)) > 0 ||
		len(nonEmpty(p.AuthorTags)) > 0
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
