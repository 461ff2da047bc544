package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/iisdela/pubsearch/internal/models"
)

// Field is one searchable column of a publication.
type Field struct {
	Name  string
	Value func(p *models.Publication) string
}

// SearchableFields lists the columns free-text queries look at. Approval
// and columns outside the documented schema are not searchable.
var SearchableFields = []Field{
	{"type", func(p *models.Publication) string { return p.RawType }},
	{"year", func(p *models.Publication) string { return strconv.Itoa(p.Year) }},
	{"authors", func(p *models.Publication) string { return p.Authors }},
	{"title", func(p *models.Publication) string { return p.Title }},
	{"journal_name", func(p *models.Publication) string { return p.JournalName }},
	{"journal_vol_no", func(p *models.Publication) string { return p.JournalVol }},
	{"journal_issue_no", func(p *models.Publication) string { return p.JournalIssue }},
	{"journal_page_range", func(p *models.Publication) string { return p.PageRange }},
	{"thesis_uni", func(p *models.Publication) string { return p.ThesisUni }},
	{"thesis_db", func(p *models.Publication) string { return p.ThesisDB }},
	{"doi_or_url", func(p *models.Publication) string { return p.DOIOrURL }},
	{"data_type_tags", func(p *models.Publication) string { return p.DataTypes.Raw }},
	{"environmental_issue_tags", func(p *models.Publication) string { return p.Issues.Raw }},
	{"lake_tags", func(p *models.Publication) string { return p.Lakes.Raw }},
	{"relationship_to_iisd_ela", func(p *models.Publication) string { return p.Relationship.String() }},
}

// Combined filters base by p and returns the matches sorted by authors,
// then year. base is not modified.
//
// Tag filters are OR-ed together: a record matching any one supplied tag
// filter is kept. The free-text query, year bounds and category are then
// applied as AND conditions on that set. Callers must Validate p first;
// Combined validates again and returns the error.
func Combined(base []models.Publication, p Params) ([]models.Publication, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dataTypes := nonEmpty(p.DataTypeTags)
	issues := nonEmpty(p.IssueTags)
	lakes := nonEmpty(p.LakeTags)
	authors := nonEmpty(p.AuthorTags)
	anyTag := len(dataTypes)+len(issues)+len(lakes)+len(authors) > 0

	query := strings.ToLower(strings.TrimSpace(p.Query))
	start, hasStart := atoi(p.YearStart)
	end, hasEnd := atoi(p.YearEnd)

	out := make([]models.Publication, 0, len(base))
	for i := range base {
		rec := &base[i]

		if anyTag && !matchesAnyTag(rec, dataTypes, issues, lakes, authors) {
			continue
		}
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		if hasStart && rec.Year < start {
			continue
		}
		if hasEnd && rec.Year > end {
			continue
		}
		if !matchesCategory(rec, p.Category) {
			continue
		}
		out = append(out, *rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Authors != out[j].Authors {
			return out[i].Authors < out[j].Authors
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func matchesAnyTag(rec *models.Publication, dataTypes, issues, lakes, authors []string) bool {
	if rec.DataTypes.HasAny(dataTypes) || rec.Issues.HasAny(issues) || rec.Lakes.HasAny(lakes) {
		return true
	}
	if len(authors) == 0 {
		return false
	}
	for _, name := range models.AuthorList(rec.Authors) {
		for _, a := range authors {
			if strings.EqualFold(name, strings.TrimSpace(a)) {
				return true
			}
		}
	}
	return false
}

func matchesQuery(rec *models.Publication, query string) bool {
	for _, f := range SearchableFields {
		if strings.Contains(strings.ToLower(f.Value(rec)), query) {
			return true
		}
	}
	return false
}

func matchesCategory(rec *models.Publication, c Category) bool {
	switch c {
	case CategoryAuthored:
		return !rec.Type.IsThesis() && rec.Relationship == models.RelAuthored
	case CategorySupported:
		return !rec.Type.IsThesis() && rec.Relationship == models.RelSupported
	case CategoryStudents:
		return rec.Type.IsThesis()
	default:
		return true
	}
}

func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
