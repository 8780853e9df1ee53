package schema

// CatalogSeriesTable represents the 'catalog.series' table
type CatalogSeriesTable struct {
	Table           string
	ID              string
	Title           string
	NormalizedTitle string
	Slug            string
	Description     string
	CoverURL        string
	SourceSite      string
	CreatedAt       string
	UpdatedAt       string
}

// CatalogSeries is the schema definition for catalog.series
var CatalogSeries = CatalogSeriesTable{
	Table:           "catalog.series",
	ID:              "id",
	Title:           "title",
	NormalizedTitle: "normalizedtitle",
	Slug:            "slug",
	Description:     "description",
	CoverURL:        "coverurl",
	SourceSite:      "sourcesite",
	CreatedAt:       "createdat",
	UpdatedAt:       "updatedat",
}

func (t CatalogSeriesTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.NormalizedTitle, t.Slug, t.Description, t.CoverURL, t.SourceSite,
		t.CreatedAt, t.UpdatedAt,
	}
}
