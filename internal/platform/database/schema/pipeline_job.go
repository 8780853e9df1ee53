package schema

// PipelineJobTable represents the 'pipeline.job' table
type PipelineJobTable struct {
	Table      string
	ID         string
	UserID     string
	URL        string
	SourceLang string
	TargetLang string
	Backend    string
	Mode       string
	Status     string
	Progress   string
	Error      string
	ResultPath string
	CreatedAt  string
	UpdatedAt  string
}

// PipelineJob is the schema definition for pipeline.job
var PipelineJob = PipelineJobTable{
	Table:      "pipeline.job",
	ID:         "id",
	UserID:     "userid",
	URL:        "url",
	SourceLang: "sourcelang",
	TargetLang: "targetlang",
	Backend:    "backend",
	Mode:       "mode",
	Status:     "status",
	Progress:   "progress",
	Error:      "error",
	ResultPath: "resultpath",
	CreatedAt:  "createdat",
	UpdatedAt:  "updatedat",
}

func (t PipelineJobTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.URL, t.SourceLang, t.TargetLang, t.Backend,
		t.Mode, t.Status, t.Progress, t.Error, t.ResultPath,
		t.CreatedAt, t.UpdatedAt,
	}
}
