package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/iisdela/pubsearch/internal/apperr"
)

func TestParseTags(t *testing.T) {
	tags := ParseTags(" Fish; Chemistry ;; ")
	if len(tags.Items) != 2 || tags.Items[0] != "Fish" || tags.Items[1] != "Chemistry" {
		t.Fatalf("items = %v", tags.Items)
	}
	if tags.Raw != "Fish; Chemistry ;;" {
		t.Errorf("raw = %q", tags.Raw)
	}
}

func TestTagsHasIsElementwise(t *testing.T) {
	tags := ParseTags("Fish; Chemistry")
	if !tags.Has("Fish") {
		t.Error("Fish should match")
	}
	if ParseTags("Fishery").Has("Fish") {
		t.Error("Fish should not match Fishery")
	}
	if !tags.HasAny([]string{"Algae", "Chemistry"}) {
		t.Error("HasAny should match Chemistry")
	}
	if tags.HasAny(nil) {
		t.Error("HasAny(nil) should be false")
	}
}

func TestAuthorList(t *testing.T) {
	got := AuthorList(" Smith, J.; Doe, A. ;; & Lee, M.")
	want := []string{"Smith, J.", "Doe, A.", "Lee, M."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got := AuthorList(""); len(got) != 0 {
		t.Errorf("AuthorList(\"\") = %v", got)
	}
}

func TestTagsJSON(t *testing.T) {
	b, _ := json.Marshal(ParseTags(""))
	if string(b) != "[]" {
		t.Errorf("empty tags json = %s", b)
	}
	b, _ = json.Marshal(ParseTags("239; Other"))
	if string(b) != `["239","Other"]` {
		t.Errorf("tags json = %s", b)
	}

	var back Tags
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Raw != "239; Other" || !back.Has("Other") {
		t.Errorf("decoded tags = %+v", back)
	}
}

func TestPublicationJSONEnums(t *testing.T) {
	in := Publication{Type: TypePhD, Relationship: RelSupported, Year: 2021}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Publication
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Type != TypePhD || out.Relationship != RelSupported {
		t.Errorf("decoded = %v %v", out.Type, out.Relationship)
	}
}

func TestParseYear(t *testing.T) {
	for in, want := range map[string]int{"2015": 2015, " 2020 ": 2020, "2019.0": 2019} {
		got, err := ParseYear(in)
		if err != nil || got != want {
			t.Errorf("ParseYear(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "20x9", "2019.5", "15", "12345", "NaN"} {
		if _, err := ParseYear(in); !errors.Is(err, apperr.ErrInvalidYear) {
			t.Errorf("ParseYear(%q) err = %v, want ErrInvalidYear", in, err)
		}
	}
}

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{"12": "12", "12.0": "12", " 4 ": "4", "S1": "S1", "": "", "3.5": "3.5"}
	for in, want := range cases {
		if got := NormalizeNumber(in); got != want {
			t.Errorf("NormalizeNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnums(t *testing.T) {
	if ParsePubType("PhD") != TypePhD || !TypePhD.IsThesis() || TypeJournal.IsThesis() {
		t.Error("pub type parsing")
	}
	if ParsePubType("book") != TypeUnknown {
		t.Error("book should be unknown")
	}
	if ParseRelationship(" Supported ") != RelSupported {
		t.Error("relationship parsing")
	}
	if !ParseApproval("Not applicable").Visible() || ParseApproval("No").Visible() || ParseApproval("").Visible() {
		t.Error("approval visibility")
	}
}
