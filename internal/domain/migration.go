package domain

type MigrationReport struct {
	ProjectsFound    int  `json:"projects_found"`
	ProjectsSkipped  int  `json:"projects_skipped"`
	ProjectsMigrated int  `json:"projects_migrated"`
	NotesMigrated    int  `json:"notes_migrated"`
	LocalCleared     bool `json:"local_cleared"`
}
