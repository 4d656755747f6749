package repository

import (
	"context"
	"errors"

	"smart-reader/internal/domain"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrNoteNotFound     = errors.New("note not found")
	ErrLocalStoreLocked = errors.New("local store is in use by another process")
	ErrSettingNotFound  = errors.New("setting not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrResetNotFound    = errors.New("password reset not found")
	ErrInvalidProjectID = errors.New("project id is required")
	ErrProjectLimit     = errors.New("project limit reached")
)

// ProjectStore is the storage contract shared by the guest and the remote
// backends. Notes belong to a project and are keyed by Note.Ref.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	SaveProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, id string) error

	ListNotes(ctx context.Context, projectID string) ([]*domain.Note, error)
	FindNote(ctx context.Context, projectID, en string) (*domain.Note, error)
	// AddNote stores a note unless one with the same normalized term
	// exists, in which case added is false and nothing is written.
	AddNote(ctx context.Context, projectID, en, bn string) (note *domain.Note, added bool, err error)
	DeleteNote(ctx context.Context, projectID, ref string) error
}

// GuestProjectStore is the device-local store used before sign-in.
type GuestProjectStore interface {
	ProjectStore
	// CreateProject stores a project with a new id, failing with
	// ErrProjectLimit when limit projects are already stored.
	CreateProject(ctx context.Context, project *domain.Project, limit int) error
	Clear(ctx context.Context) error
}

// SettingsStore holds small device-scoped values such as the theme blob.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// RemoteProjectStore is a ProjectStore scoped to one account.
type RemoteProjectStore interface {
	ProjectStore
	ProjectIDs(ctx context.Context) (map[string]struct{}, error)
	// BulkSaveProjects writes all projects in one request, without notes.
	BulkSaveProjects(ctx context.Context, projects []*domain.Project) error
}

type RemoteProjectRepository interface {
	ForUser(userID string) RemoteProjectStore
}
