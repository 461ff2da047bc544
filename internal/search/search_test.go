package search

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/iisdela/pubsearch/internal/apperr"
	"github.com/iisdela/pubsearch/internal/models"
)

func pub(title string, typ models.PubType, year int, authors, dataTypes, issues, lakes string, rel models.Relationship) models.Publication {
	return models.Publication{
		Type:         typ,
		RawType:      typ.String(),
		Year:         year,
		Authors:      authors,
		Title:        title,
		DataTypes:    models.ParseTags(dataTypes),
		Issues:       models.ParseTags(issues),
		Lakes:        models.ParseTags(lakes),
		Relationship: rel,
		Approval:     models.ApprovalYes,
	}
}

// base is a small five-record set.
func base() []models.Publication {
	return []models.Publication{
		pub("Mercury in trout", models.TypeJournal, 2015, "Smith, J.; Doe, A.", "Fish; Chemistry", "Mercury", "239; 240", models.RelAuthored),
		pub("Fishery dynamics", models.TypePhD, 2021, "Garcia, R.", "Fishery", "Fisheries", "239", models.RelAuthored),
		pub("Algal blooms", models.TypeJournal, 2020, "Brown, K.", "Water quality; Algae", "Eutrophication", "227", models.RelSupported),
		pub("Zooplankton warming", models.TypeMSc, 2018, "Lee, M.", "Zooplankton", "Climate change", "Other", models.RelNone),
		pub("Acid rain", models.TypeJournal, 2019, "Adams, P.", "Chemistry", "Acidification", "223", models.RelAuthored),
	}
}

func titles(pubs []models.Publication) []string {
	out := make([]string, len(pubs))
	for i, p := range pubs {
		out[i] = p.Title
	}
	return out
}

func run(t *testing.T, p Params) []string {
	t.Helper()
	got, err := Combined(base(), p)
	if err != nil {
		t.Fatalf("Combined: %v", err)
	}
	return titles(got)
}

func TestCombined_NoFiltersReturnsSortedBase(t *testing.T) {
	want := []string{"Acid rain", "Algal blooms", "Fishery dynamics", "Zooplankton warming", "Mercury in trout"}
	if diff := cmp.Diff(want, run(t, Params{})); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_TagElementMatch(t *testing.T) {
	got := run(t, Params{DataTypeTags: []string{"Fish"}})
	if diff := cmp.Diff([]string{"Mercury in trout"}, got); diff != "" {
		t.Errorf("Fish must not match Fishery (-want +got):\n%s", diff)
	}
}

func TestCombined_AnyWithinFilter(t *testing.T) {
	got := run(t, Params{LakeTags: []string{"227", "Other"}})
	want := []string{"Algal blooms", "Zooplankton warming"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_SingleFilterIffProperty(t *testing.T) {
	for _, tag := range []string{"Fish", "Chemistry", "Fishery", "Algae", "Zooplankton", "Missing"} {
		got, err := Combined(base(), Params{DataTypeTags: []string{tag}})
		if err != nil {
			t.Fatal(err)
		}
		in := map[string]bool{}
		for _, p := range got {
			in[p.Title] = true
		}
		for _, p := range base() {
			if p.DataTypes.Has(tag) != in[p.Title] {
				t.Errorf("tag %q: record %q has=%v in-result=%v", tag, p.Title, p.DataTypes.Has(tag), in[p.Title])
			}
		}
	}
}

func TestCombined_UnionAcrossFilters(t *testing.T) {
	a := run(t, Params{DataTypeTags: []string{"Zooplankton"}})
	b := run(t, Params{IssueTags: []string{"Acidification"}})
	both := run(t, Params{DataTypeTags: []string{"Zooplankton"}, IssueTags: []string{"Acidification"}})

	if len(both) != len(a)+len(b) {
		t.Fatalf("union size = %d, want %d", len(both), len(a)+len(b))
	}
	want := []string{"Acid rain", "Zooplankton warming"}
	if diff := cmp.Diff(want, both); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_UnionDeduplicates(t *testing.T) {
	got := run(t, Params{DataTypeTags: []string{"Fish"}, LakeTags: []string{"240"}, IssueTags: []string{"Mercury"}})
	if diff := cmp.Diff([]string{"Mercury in trout"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_AuthorTags(t *testing.T) {
	got := run(t, Params{AuthorTags: []string{"doe, a."}})
	if diff := cmp.Diff([]string{"Mercury in trout"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_AuthorTagsWholeNames(t *testing.T) {
	recs := []models.Publication{
		pub("By Lee", models.TypeJournal, 2010, "Lee, M.", "", "", "", models.RelAuthored),
		pub("By Leeson", models.TypeJournal, 2011, "Leeson, M.; Smith, J.", "", "", "", models.RelAuthored),
		pub("By Kleen", models.TypeJournal, 2012, "Kleeman, M.", "", "", "", models.RelAuthored),
		pub("By Ortiz", models.TypeJournal, 2013, "Park, S.; & Ortiz, L.", "", "", "", models.RelAuthored),
	}

	got, err := Combined(recs, Params{AuthorTags: []string{"Lee"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("partial name matched %v", titles(got))
	}

	got, err = Combined(recs, Params{AuthorTags: []string{"Lee, M.", "Ortiz, L."}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"By Lee", "By Ortiz"}, titles(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_QueryAfterUnion(t *testing.T) {
	// The query narrows the union; it does not pull in records on its own.
	got := run(t, Params{LakeTags: []string{"239"}, Query: "FISHERY"})
	if diff := cmp.Diff([]string{"Fishery dynamics"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	got = run(t, Params{LakeTags: []string{"227"}, Query: "trout"})
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestCombined_QueryCaseInsensitive(t *testing.T) {
	got := run(t, Params{Query: "ALGAL"})
	if diff := cmp.Diff([]string{"Algal blooms"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_QuerySkipsExcludedColumns(t *testing.T) {
	recs := base()
	recs[0].Extra = map[string]string{"submitted_by": "secret-reviewer"}
	recs[0].Approval = models.ApprovalNotApplicable

	for _, q := range []string{"secret-reviewer", "not applicable", "yes"} {
		got, err := Combined(recs, Params{Query: q})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("query %q matched %v", q, titles(got))
		}
	}
}

func TestCombined_YearBoundsInclusive(t *testing.T) {
	got := run(t, Params{YearStart: "2015", YearEnd: "2020"})
	want := []string{"Acid rain", "Algal blooms", "Zooplankton warming", "Mercury in trout"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	got = run(t, Params{YearStart: "2021"})
	if diff := cmp.Diff([]string{"Fishery dynamics"}, got); diff != "" {
		t.Errorf("start only (-want +got):\n%s", diff)
	}
}

func TestCombined_Category(t *testing.T) {
	tests := []struct {
		cat  Category
		want []string
	}{
		{CategoryAuthored, []string{"Acid rain", "Mercury in trout"}},
		{CategorySupported, []string{"Algal blooms"}},
		{CategoryStudents, []string{"Fishery dynamics", "Zooplankton warming"}},
		{CategoryAll, []string{"Acid rain", "Algal blooms", "Fishery dynamics", "Zooplankton warming", "Mercury in trout"}},
	}
	for _, tt := range tests {
		t.Run(tt.cat.String(), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, run(t, Params{Category: tt.cat})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCombined_StudentsIgnoresRelationship(t *testing.T) {
	recs := base()
	recs[1].Relationship = models.RelSupported // phd
	got, err := Combined(recs, Params{Category: CategoryStudents})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range got {
		if !p.Type.IsThesis() {
			t.Errorf("non-thesis %q in students result", p.Title)
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want 2", len(got))
	}
}

func TestCombined_SortByAuthorsThenYear(t *testing.T) {
	recs := []models.Publication{
		pub("later", models.TypeJournal, 2020, "Same, A.", "", "", "", models.RelAuthored),
		pub("earlier", models.TypeJournal, 2010, "Same, A.", "", "", "", models.RelAuthored),
		pub("first", models.TypeJournal, 2030, "Aardvark, Z.", "", "", "", models.RelAuthored),
	}
	got, err := Combined(recs, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"first", "earlier", "later"}, titles(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCombined_DoesNotModifyBase(t *testing.T) {
	recs := base()
	before := titles(recs)
	if _, err := Combined(recs, Params{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, titles(recs)); diff != "" {
		t.Errorf("base reordered (-want +got):\n%s", diff)
	}
}

func TestCombined_InvalidYears(t *testing.T) {
	for _, p := range []Params{
		{YearStart: "20x5"},
		{YearEnd: "15"},
		{YearStart: "2021", YearEnd: "2015"},
	} {
		if _, err := Combined(base(), p); !errors.Is(err, apperr.ErrInvalidParams) {
			t.Errorf("%+v: err = %v, want ErrInvalidParams", p, err)
		}
	}
}

func TestParams_ValidateYearOrder(t *testing.T) {
	for _, p := range []Params{
		{YearStart: " 2020 ", YearEnd: "2020"},
		{YearStart: "2015", YearEnd: "2020"},
		{YearEnd: "2020"},
	} {
		if err := p.Validate(); err != nil {
			t.Errorf("%+v: unexpected error %v", p, err)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"":          CategoryAll,
		"all":       CategoryAll,
		"Authored":  CategoryAuthored,
		"supported": CategorySupported,
		"STUDENTS":  CategoryStudents,
	} {
		got, err := ParseCategory(in)
		if err != nil || got != want {
			t.Errorf("ParseCategory(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCategory("alumni"); !errors.Is(err, apperr.ErrInvalidParams) {
		t.Errorf("err = %v, want ErrInvalidParams", err)
	}
}

func TestParams_IsEmpty(t *testing.T) {
	if !(Params{}).IsEmpty() {
		t.Error("zero Params should be empty")
	}
	if !(Params{DataTypeTags: []string{" "}, Query: "  "}).IsEmpty() {
		t.Error("blank values should count as empty")
	}
	if (Params{YearEnd: "2020"}).IsEmpty() {
		t.Error("year bound should not be empty")
	}
	if (Params{Category: CategoryStudents}).IsEmpty() {
		t.Error("category should not be empty")
	}
}

func TestParamsFromQuery(t *testing.T) {
	q := url.Values{
		"data_type_tags": {"Fish", " "},
		"lake_tags":      {"239", "Other"},
		"author_tags":    {"Smith, J."},
		"category":       {"students"},
		"year_start":     {" 2015 "},
		"year_end":       {"2020"},
		"q":              {"  trout "},
	}
	p, err := ParamsFromQuery(q)
	if err != nil {
		t.Fatalf("ParamsFromQuery: %v", err)
	}
	want := Params{
		DataTypeTags: []string{"Fish"},
		LakeTags:     []string{"239", "Other"},
		AuthorTags:   []string{"Smith, J."},
		Category:     CategoryStudents,
		YearStart:    "2015",
		YearEnd:      "2020",
		Query:        "trout",
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	for _, bad := range []url.Values{
		{"category": {"alumni"}},
		{"year_start": {"twenty"}},
	} {
		if _, err := ParamsFromQuery(bad); !errors.Is(err, apperr.ErrInvalidParams) {
			t.Errorf("%v: err = %v, want ErrInvalidParams", bad, err)
		}
	}
}
