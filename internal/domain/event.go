package domain

// EventType names a view refresh pushed to connected clients.
type EventType string

const (
	EventProjectsChanged   EventType = "projects_changed"
	EventNotesChanged      EventType = "notes_changed"
	EventSessionChanged    EventType = "session_changed"
	EventProjectReset      EventType = "project_reset"
	EventMigrationStarted  EventType = "migration_started"
	EventMigrationFinished EventType = "migration_finished"
	EventMigrationFailed   EventType = "migration_failed"
)

type Event struct {
	Type      EventType `json:"type"`
	ProjectID string    `json:"project_id,omitempty"`
	Message   string    `json:"message,omitempty"`
}
