// Package citation renders publications as APA-style citation strings.
package citation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/iisdela/pubsearch/internal/apperr"
	"github.com/iisdela/pubsearch/internal/models"
)

// Citation is the rendered form of one publication.
type Citation struct {
	Text       string `json:"citation"`
	TagSummary string `json:"tag_summary"`
}

// Entry pairs a publication with its rendered citation.
type Entry struct {
	Citation
	Publication models.Publication `json:"publication"`
}

// Skip records a publication the formatter could not render.
type Skip struct {
	Row    int    `json:"row"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Format renders p. Records of an unknown type return apperr.ErrUnknownType.
func Format(p models.Publication) (Citation, error) {
	var text string
	switch p.Type {
	case models.TypeJournal:
		text = journal(p)
	case models.TypeMSc, models.TypePhD:
		text = thesis(p)
	default:
		return Citation{}, fmt.Errorf("%w: %q", apperr.ErrUnknownType, p.RawType)
	}
	return Citation{Text: text, TagSummary: TagSummary(p)}, nil
}

// TagSummary lists the record's lake, data-type and issue tags as entered.
func TagSummary(p models.Publication) string {
	return fmt.Sprintf("Lakes: %s | Data Types: %s | Environmental Issues: %s",
		p.Lakes.Raw, p.DataTypes.Raw, p.Issues.Raw)
}

// FormatAll renders pubs in order. Records Format rejects are left out,
// logged and returned as skips.
func FormatAll(pubs []models.Publication, logger *slog.Logger) ([]Entry, []Skip) {
	entries := make([]Entry, 0, len(pubs))
	var skipped []Skip
	for _, p := range pubs {
		c, err := Format(p)
		if err != nil {
			logger.Warn("citation: skipping record",
				slog.Int("row", p.Row),
				slog.String("title", p.Title),
				slog.String("error", err.Error()))
			skipped = append(skipped, Skip{Row: p.Row, Title: p.Title, Reason: err.Error()})
			continue
		}
		entries = append(entries, Entry{Citation: c, Publication: p})
	}
	return entries, skipped
}

// journal: {authors} ({year}). {title}. {journal}, {vol}({issue}), {pages}. {doi}
func journal(p models.Publication) string {
	var b strings.Builder
	lead(&b, p)

	var source []string
	if p.JournalName != "" {
		source = append(source, p.JournalName)
	}
	if vol := volume(p); vol != "" {
		source = append(source, vol)
	}
	if p.PageRange != "" {
		source = append(source, p.PageRange)
	}
	if len(source) > 0 {
		b.WriteString(" ")
		b.WriteString(terminate(strings.Join(source, ", ")))
	}
	if p.DOIOrURL != "" {
		b.WriteString(" ")
		b.WriteString(p.DOIOrURL)
	}
	return b.String()
}

// thesis: {authors} ({year}). {title} [{degree}, {uni}]. {db}. {doi}
func thesis(p models.Publication) string {
	var b strings.Builder
	b.WriteString(authors(p.Authors))
	b.WriteString(" (")
	b.WriteString(strconv.Itoa(p.Year))
	b.WriteString("). ")
	b.WriteString(strings.TrimSpace(p.Title))

	degree := "Master of Science dissertation"
	if p.Type == models.TypePhD {
		degree = "Doctoral dissertation"
	}
	b.WriteString(" [")
	b.WriteString(degree)
	if p.ThesisUni != "" {
		b.WriteString(", ")
		b.WriteString(p.ThesisUni)
	}
	b.WriteString("].")

	if p.ThesisDB != "" {
		b.WriteString(" ")
		b.WriteString(terminate(p.ThesisDB))
	}
	if p.DOIOrURL != "" {
		b.WriteString(" ")
		b.WriteString(p.DOIOrURL)
	}
	return b.String()
}

// lead writes "{authors} ({year}). {title}." shared by journal citations.
func lead(b *strings.Builder, p models.Publication) {
	b.WriteString(authors(p.Authors))
	b.WriteString(" (")
	b.WriteString(strconv.Itoa(p.Year))
	b.WriteString("). ")
	b.WriteString(terminate(strings.TrimSpace(p.Title)))
}

func volume(p models.Publication) string {
	switch {
	case p.JournalVol != "" && p.JournalIssue != "":
		return p.JournalVol + "(" + p.JournalIssue + ")"
	case p.JournalVol != "":
		return p.JournalVol
	case p.JournalIssue != "":
		return "(" + p.JournalIssue + ")"
	default:
		return ""
	}
}

// authors swaps the list delimiter for commas.
func authors(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), models.TagDelimiter, ",")
}

// terminate appends a period unless s already ends a sentence.
func terminate(s string) string {
	if s == "" || strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}
