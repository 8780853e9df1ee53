package schema

// GlossaryEntryTable represents the 'glossary.entry' table
type GlossaryEntryTable struct {
	Table        string
	ID           string
	DictionaryID string
	Original     string
	OriginalFold string
	Translation  string
	IsProperNoun string
	UsageCount   string
	LastUsedAt   string
	CreatedAt    string
}

// GlossaryEntry is the schema definition for glossary.entry
//
// OriginalFold stores the case-folded original and carries the per-dictionary
// uniqueness constraint, making lookups case-insensitive by index.
var GlossaryEntry = GlossaryEntryTable{
	Table:        "glossary.entry",
	ID:           "id",
	DictionaryID: "dictionaryid",
	Original:     "original",
	OriginalFold: "originalfold",
	Translation:  "translation",
	IsProperNoun: "ispropernoun",
	UsageCount:   "usagecount",
	LastUsedAt:   "lastusedat",
	CreatedAt:    "createdat",
}

func (t GlossaryEntryTable) Columns() []string {
	return []string{
		t.ID, t.DictionaryID, t.Original, t.OriginalFold, t.Translation,
		t.IsProperNoun, t.UsageCount, t.LastUsedAt, t.CreatedAt,
	}
}
