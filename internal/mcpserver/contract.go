package mcpserver

// SearchSemantics documents how search_publications combines its filters.
const SearchSemantics = `# Publication Search Semantics

## Filters

| argument | matches |
|---|---|
| data_type_tags | records whose data_type_tags field has one of the values as a ";"-separated element |
| environmental_issue_tags | same, on environmental_issue_tags |
| lake_tags | same, on lake_tags (lake numbers such as "239", or "Other") |
| author_tags | records listing one of the names as a ";"-separated author (case-insensitive) |
| query | case-insensitive substring over the bibliographic and tag fields |
| year_start, year_end | inclusive 4-digit year bounds |
| category | authored, supported (non-thesis records with that relationship) or students (msc and phd theses) |

## Combination rule

1. The tag filters (data type, issue, lake, author) are combined with **OR**:
   a record is kept when it matches *any one* of the supplied tag filters.
   If no tag filter is supplied, every record is kept.
2. query, the year bounds and category then narrow that set (**AND**).
3. Results are sorted by the authors field, then by year.

Element matching is exact: "Fish" matches "Fish; Chemistry" but not "Fishery".

## Output

Each result is an APA-style citation followed by a tag summary line:

    Lakes: 239; 240 | Data Types: Fish; Chemistry | Environmental Issues: Mercury

Records with an unrecognised publication type are skipped and reported
in the "skipped" list.
`
