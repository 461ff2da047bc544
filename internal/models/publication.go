// Package models defines the domain types for pubsearch.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iisdela/pubsearch/internal/apperr"
)

// TagDelimiter separates elements inside a tag field.
const TagDelimiter = ";"

// PubType is the kind of publication a record describes.
type PubType int

const (
	TypeUnknown PubType = iota
	TypeJournal
	TypeMSc
	TypePhD
)

// ParsePubType maps the spreadsheet value onto a PubType.
// Unrecognised values yield TypeUnknown.
func ParsePubType(s string) PubType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "journal":
		return TypeJournal
	case "msc":
		return TypeMSc
	case "phd":
		return TypePhD
	default:
		return TypeUnknown
	}
}

// String returns the canonical spreadsheet spelling.
func (t PubType) String() string {
	switch t {
	case TypeJournal:
		return "journal"
	case TypeMSc:
		return "msc"
	case TypePhD:
		return "phd"
	default:
		return "unknown"
	}
}

// IsThesis reports whether t is a student thesis (msc or phd).
func (t PubType) IsThesis() bool {
	return t == TypeMSc || t == TypePhD
}

// MarshalJSON encodes the type as its canonical string.
func (t PubType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the canonical string form.
func (t *PubType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParsePubType(s)
	return nil
}

// Relationship is a record's authorship tie to IISD-ELA.
type Relationship int

const (
	RelNone Relationship = iota
	RelAuthored
	RelSupported
)

// ParseRelationship maps the spreadsheet value onto a Relationship.
func ParseRelationship(s string) Relationship {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authored":
		return RelAuthored
	case "supported":
		return RelSupported
	default:
		return RelNone
	}
}

func (r Relationship) String() string {
	switch r {
	case RelAuthored:
		return "authored"
	case RelSupported:
		return "supported"
	default:
		return ""
	}
}

// MarshalJSON encodes the relationship as its canonical string.
func (r Relationship) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes the canonical string form.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRelationship(s)
	return nil
}

// Approval is the editorial state of a row in the source sheet.
type Approval int

const (
	ApprovalUnknown Approval = iota
	ApprovalYes
	ApprovalNo
	ApprovalNotApplicable
)

// ParseApproval maps the spreadsheet value onto an Approval.
func ParseApproval(s string) Approval {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return ApprovalYes
	case "no":
		return ApprovalNo
	case "not applicable":
		return ApprovalNotApplicable
	default:
		return ApprovalUnknown
	}
}

// Visible reports whether rows with this approval belong to the base set.
func (a Approval) Visible() bool {
	return a == ApprovalYes || a == ApprovalNotApplicable
}

// Tags is a delimited tag field. Raw keeps the cell text verbatim.
type Tags struct {
	Raw   string
	Items []string
}

// ParseTags splits raw on TagDelimiter, trimming elements and dropping empties.
func ParseTags(raw string) Tags {
	t := Tags{Raw: strings.TrimSpace(raw)}
	for _, part := range strings.Split(t.Raw, TagDelimiter) {
		if p := strings.TrimSpace(part); p != "" {
			t.Items = append(t.Items, p)
		}
	}
	return t
}

// Has reports whether tag is one of the elements. Comparison is exact
// after trimming, so "Fish" does not match "Fishery".
func (t Tags) Has(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, it := range t.Items {
		if it == tag {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of tags is an element.
func (t Tags) HasAny(tags []string) bool {
	for _, tag := range tags {
		if t.Has(tag) {
			return true
		}
	}
	return false
}

// String returns the verbatim cell text.
func (t Tags) String() string { return t.Raw }

// MarshalJSON encodes the parsed elements.
func (t Tags) MarshalJSON() ([]byte, error) {
	items := t.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an element array, rebuilding Raw.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*t = ParseTags(strings.Join(items, TagDelimiter+" "))
	return nil
}

// AuthorList splits authors on TagDelimiter into trimmed names. A leading
// "& " before the last name is dropped.
func AuthorList(authors string) []string {
	var names []string
	for _, part := range strings.Split(authors, TagDelimiter) {
		name := strings.TrimSpace(part)
		name = strings.TrimSpace(strings.TrimPrefix(name, "&"))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Publication is one approved row of the Publications sheet.
type Publication struct {
	Row          int          `json:"row"`
	Type         PubType      `json:"type"`
	RawType      string       `json:"-"`
	Year         int          `json:"year"`
	Authors      string       `json:"authors"`
	Title        string       `json:"title"`
	JournalName  string       `json:"journal_name,omitempty"`
	JournalVol   string       `json:"journal_vol_no,omitempty"`
	JournalIssue string       `json:"journal_issue_no,omitempty"`
	PageRange    string       `json:"journal_page_range,omitempty"`
	ThesisUni    string       `json:"thesis_uni,omitempty"`
	ThesisDB     string       `json:"thesis_db,omitempty"`
	DOIOrURL     string       `json:"doi_or_url,omitempty"`
	DataTypes    Tags         `json:"data_type_tags"`
	Issues       Tags         `json:"environmental_issue_tags"`
	Lakes        Tags         `json:"lake_tags"`
	Relationship Relationship `json:"relationship_to_iisd_ela"`
	Approval     Approval     `json:"-"`

	// Extra holds columns outside the documented schema (submitter,
	// timestamps, notes). Never searched or rendered.
	Extra map[string]string `json:"-"`
}

// Author is one entry of the Current authors sheet.
type Author struct {
	Name string `json:"name"`
}

// ParseYear parses a 4-digit year. Spreadsheet exports sometimes render
// integers as floats ("2015.0"), which are accepted when integral.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, ok := parseIntegral(s)
	if !ok || n < 1000 || n > 9999 {
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidYear, s)
	}
	return int(n), nil
}

// NormalizeNumber renders integral numeric text without a fractional
// part ("12.0" -> "12"). Anything else is returned trimmed and unchanged.
func NormalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if n, ok := parseIntegral(s); ok {
		return strconv.FormatInt(n, 10)
	}
	return s
}

func parseIntegral(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
