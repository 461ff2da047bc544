// Package loader turns exported sheet tables into publication records.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iisdela/pubsearch/internal/models"
)

// Column names of the Publications sheet after header normalisation.
const (
	ColType         = "type"
	ColYear         = "year"
	ColAuthors      = "authors"
	ColTitle        = "title"
	ColJournalName  = "journal_name"
	ColJournalVol   = "journal_vol_no"
	ColJournalIssue = "journal_issue_no"
	ColPageRange    = "journal_page_range"
	ColThesisUni    = "thesis_uni"
	ColThesisDB     = "thesis_db"
	ColDOIOrURL     = "doi_or_url"
	ColDataTypes    = "data_type_tags"
	ColIssues       = "environmental_issue_tags"
	ColLakes        = "lake_tags"
	ColRelationship = "relationship_to_iisd_ela"
	ColApproved     = "approved"
)

// RequiredColumns must be present in the Publications header.
var RequiredColumns = []string{ColType, ColYear, ColAuthors, ColTitle, ColApproved}

var knownColumns = map[string]struct{}{
	ColType: {}, ColYear: {}, ColAuthors: {}, ColTitle: {}, ColJournalName: {},
	ColJournalVol: {}, ColJournalIssue: {}, ColPageRange: {}, ColThesisUni: {},
	ColThesisDB: {}, ColDOIOrURL: {}, ColDataTypes: {}, ColIssues: {}, ColLakes: {},
	ColRelationship: {}, ColApproved: {},
}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// RowError describes a problem with one row. Skipped rows are not part of
// the result; the others are kept and only reported.
type RowError struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Reason  string `json:"reason"`
	Skipped bool   `json:"skipped"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result holds the parsed Publications table.
type Result struct {
	Publications []models.Publication
	Errors       []RowError
	Rows         int // data rows read
	Hidden       int // rows excluded by approval state
}

// HasErrors returns true if any row was reported.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// NormalizeHeader maps a sheet header cell onto its column name.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// ParsePublications reads the Publications table. Rows whose approval is
// not "Yes" or "Not applicable" are dropped; rows with a malformed year are
// skipped and reported. A missing required column fails the whole table.
func ParsePublications(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("loader: publications: empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("loader: publications header: %w", err)
	}

	cols := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		names[i] = name
		if _, dup := cols[name]; !dup && name != "" {
			cols[name] = i
		}
	}
	for _, req := range RequiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("loader: publications: %w: %s", ErrMissingColumn, req)
		}
	}

	res := &Result{}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("loader: publications: %w", err)
			}
			line = pe.StartLine
			res.Errors = append(res.Errors, RowError{Line: line, Reason: err.Error(), Skipped: true})
			continue
		}
		line, _ := reader.FieldPos(0)
		if blank(rec) {
			continue
		}
		res.Rows++

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		approval := models.ParseApproval(get(ColApproved))
		if !approval.Visible() {
			res.Hidden++
			continue
		}

		year, err := models.ParseYear(get(ColYear))
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Column: ColYear, Reason: err.Error(), Skipped: true})
			continue
		}

		rawType := get(ColType)
		pub := models.Publication{
			Row:          line,
			Type:         models.ParsePubType(rawType),
			RawType:      rawType,
			Year:         year,
			Authors:      get(ColAuthors),
			Title:        get(ColTitle),
			JournalName:  get(ColJournalName),
			JournalVol:   models.NormalizeNumber(get(ColJournalVol)),
			JournalIssue: models.NormalizeNumber(get(ColJournalIssue)),
			PageRange:    get(ColPageRange),
			ThesisUni:    get(ColThesisUni),
			ThesisDB:     get(ColThesisDB),
			DOIOrURL:     get(ColDOIOrURL),
			DataTypes:    models.ParseTags(get(ColDataTypes)),
			Issues:       models.ParseTags(get(ColIssues)),
			Lakes:        normalizeLakes(get(ColLakes)),
			Relationship: models.ParseRelationship(get(ColRelationship)),
			Approval:     approval,
		}
		if pub.Type == models.TypeUnknown {
			res.Errors = append(res.Errors, RowError{
				Line: line, Column: ColType, Reason: fmt.Sprintf("unrecognized type %q", rawType),
			})
		}

		for i, name := range names {
			if _, known := knownColumns[name]; known || name == "" || i >= len(rec) {
				continue
			}
			if v := strings.TrimSpace(rec[i]); v != "" {
				if pub.Extra == nil {
					pub.Extra = make(map[string]string)
				}
				pub.Extra[name] = v
			}
		}

		res.Publications = append(res.Publications, pub)
	}

	return res, nil
}

// normalizeLakes rewrites numeric lake ids exported as floats ("239.0")
// and rebuilds the raw text from the cleaned elements.
func normalizeLakes(raw string) models.Tags {
	t := models.ParseTags(raw)
	if len(t.Items) == 0 {
		return t
	}
	for i, it := range t.Items {
		t.Items[i] = models.NormalizeNumber(it)
	}
	t.Raw = strings.Join(t.Items, models.TagDelimiter+" ")
	return t
}

var authorColumns = []string{"name", "author", "authors", "current_authors", "author_name"}

// ParseAuthors reads the Current authors table. The name column is picked
// by header, falling back to the first column. Names are de-duplicated
// and sorted.
func ParseAuthors(r io.Reader) ([]models.Author, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []models.Author{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loader: authors header: %w", err)
	}

	col := 0
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		normalized[NormalizeHeader(h)] = i
	}
	for _, c := range authorColumns {
		if i, ok := normalized[c]; ok {
			col = i
			break
		}
	}

	seen := make(map[string]struct{})
	var names []string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loader: authors: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		name := strings.TrimSpace(rec[col])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.Author, len(names))
	for i, n := range names {
		out[i] = models.Author{Name: n}
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
