package schema

// CatalogTranslationTable represents the 'catalog.translation' table
type CatalogTranslationTable struct {
	Table       string
	ID          string
	ChapterID   string
	SourceLang  string
	TargetLang  string
	Backend     string
	StoragePath string
	PageCount   string
	PublishedAt string
	CreatedAt   string
	UpdatedAt   string
}

// CatalogTranslation is the schema definition for catalog.translation
var CatalogTranslation = CatalogTranslationTable{
	Table:       "catalog.translation",
	ID:          "id",
	ChapterID:   "chapterid",
	SourceLang:  "sourcelang",
	TargetLang:  "targetlang",
	Backend:     "backend",
	StoragePath: "storagepath",
	PageCount:   "pagecount",
	PublishedAt: "publishedat",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

func (t CatalogTranslationTable) Columns() []string {
	return []string{
		t.ID, t.ChapterID, t.SourceLang, t.TargetLang, t.Backend, t.StoragePath,
		t.PageCount, t.PublishedAt, t.CreatedAt, t.UpdatedAt,
	}
}
