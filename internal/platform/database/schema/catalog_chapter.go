package schema

// CatalogChapterTable represents the 'catalog.chapter' table
type CatalogChapterTable struct {
	Table         string
	ID            string
	SeriesID      string
	ChapterNumber string
	Title         string
	PageCount     string
	SourceURL     string
	CreatedAt     string
	UpdatedAt     string
}

// CatalogChapter is the schema definition for catalog.chapter
var CatalogChapter = CatalogChapterTable{
	Table:         "catalog.chapter",
	ID:            "id",
	SeriesID:      "seriesid",
	ChapterNumber: "chapternumber",
	Title:         "title",
	PageCount:     "pagecount",
	SourceURL:     "sourceurl",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

func (t CatalogChapterTable) Columns() []string {
	return []string{
		t.ID, t.SeriesID, t.ChapterNumber, t.Title, t.PageCount, t.SourceURL,
		t.CreatedAt, t.UpdatedAt,
	}
}
