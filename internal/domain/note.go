package domain

import "time"

// Note is a saved selection and its translation. ID and CreatedAt are only
// set by the remote store; guest notes carry neither.
type Note struct {
	ID        string     `json:"id,omitempty"`
	En        string     `json:"en"`
	Bn        string     `json:"bn"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Ref identifies the note for deletion.
func (n *Note) Ref() string {
	if n.ID != "" {
		return n.ID
	}
	return n.En
}

type AddNoteRequest struct {
	En string `json:"en" validate:"required"`
	Bn string `json:"bn"`
}

type NoteStatusResponse struct {
	En    string `json:"en"`
	Added bool   `json:"added"`
}
