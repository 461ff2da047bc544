// Package testutil provides shared fixtures for publication tables and snapshot databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iisdela/pubsearch/internal/snapshot"
	"github.com/iisdela/pubsearch/internal/source"
)

// Table names used by the fixtures.
const (
	PublicationsTable = "Publications"
	AuthorsTable      = "Current authors"
)

// PublicationsCSV is a small Publications sheet export. Rows:
//
//	line 2  journal 2015 Smith/Doe        Fish; Chemistry   lakes 239; 240  authored   Yes
//	line 3  journal 2020 Brown            Water quality     lake 227        supported  Yes
//	line 4  msc     2018 Lee              Zooplankton       Other           -          Not applicable
//	line 5  phd     2021 Garcia           Fishery           239             authored   Yes
//	line 6  journal 2016 Doe              Fish              239             authored   No (hidden)
//	line 7  journal 2019 Adams            Chemistry         223             authored   Yes (float cells)
//	line 8  journal 20x9 Bad              -                 -               -          Yes (bad year)
//	line 9  book    2017 Zed              Fish              Other           supported  Yes (unknown type)
const PublicationsCSV = `type,year,authors,title,journal_name,journal_vol_no,journal_issue_no,journal_page_range,thesis_uni,thesis_db,doi_or_url,data_type_tags,environmental_issue_tags,lake_tags,relationship_to_iisd_ela,approved,Submitted By
journal,2015,"Smith, J.; Doe, A.",Mercury in lake trout,Canadian Journal of Fisheries and Aquatic Sciences,72,3,345-356,,,https://doi.org/10.1139/cjfas-2014-0001,Fish; Chemistry,Mercury,239; 240,authored,Yes,alice@example.org
journal,2020,"Brown, K.",Phosphorus loading and algal blooms,Limnology and Oceanography,65,,,,,,Water quality; Algae,Eutrophication,227,supported,Yes,bob@example.org
msc,2018,"Lee, M.",Zooplankton responses to warming,,,,,University of Manitoba,MSpace,,Zooplankton,Climate change,Other,,Not applicable,carol@example.org
phd,2021,"Garcia, R.",Fishery dynamics in boreal lakes,,,,,University of Toronto,ProQuest Dissertations,https://hdl.handle.net/1807/1,Fishery,Fisheries,239,authored,Yes,dave@example.org
journal,2016,"Doe, A.",Hidden draft,Journal X,1,1,,,,,Fish,Mercury,239,authored,No,erin@example.org
journal,2019.0,"Adams, P.",Acid rain recovery,Ecosystems,22.0,4.0,1-10,,,,Chemistry,Acidification,223.0,authored,Yes,frank@example.org
journal,20x9,"Bad, Y.",Bad year,Journal Y,1,1,,,,,,,,,Yes,gail@example.org
book,2017,"Zed, Q.",A book chapter,,,,,,,,Fish,Mercury,Other,supported,Yes,hank@example.org
`

// AuthorsCSV is a small Current authors sheet export.
const AuthorsCSV = `Name
"Smith, J."
"Brown, K."

"Adams, P."
"Smith, J."
`

// SourceDir writes the fixture tables into a temp directory and returns
// a Dir provider over it.
func SourceDir(t *testing.T) (string, *source.Dir) {
	t.Helper()
	dir := t.TempDir()
	WriteTable(t, dir, PublicationsTable, PublicationsCSV)
	WriteTable(t, dir, AuthorsTable, AuthorsCSV)
	src, err := source.NewDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, src
}

// WriteTable writes content as <dir>/<table>.csv.
func WriteTable(t *testing.T, dir, table, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, table+".csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestDB creates a temporary snapshot database that is automatically cleaned up.
func TestDB(t *testing.T) *snapshot.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pubsearch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := snapshot.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
