package schema

// GlossaryDictionaryTable represents the 'glossary.dictionary' table
type GlossaryDictionaryTable struct {
	Table      string
	ID         string
	SeriesID   string
	SourceLang string
	TargetLang string
	CreatedAt  string
	UpdatedAt  string
}

// GlossaryDictionary is the schema definition for glossary.dictionary
var GlossaryDictionary = GlossaryDictionaryTable{
	Table:      "glossary.dictionary",
	ID:         "id",
	SeriesID:   "seriesid",
	SourceLang: "sourcelang",
	TargetLang: "targetlang",
	CreatedAt:  "createdat",
	UpdatedAt:  "updatedat",
}

func (t GlossaryDictionaryTable) Columns() []string {
	return []string{t.ID, t.SeriesID, t.SourceLang, t.TargetLang, t.CreatedAt, t.UpdatedAt}
}
