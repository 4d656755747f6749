package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
	"smart-reader/internal/reader"
	"smart-reader/internal/repository"
	"smart-reader/internal/session"
)

// ProjectService is the single entry point for project and note storage.
// Each call names its session; guests use the device store and accounts use
// the remote store.
type ProjectService struct {
	local      repository.GuestProjectStore
	remote     repository.RemoteProjectRepository
	notifier   session.Notifier
	ids        *domain.ProjectIDGenerator
	guestLimit int
	liveRemote bool
	now        func() time.Time
	logger     *log.Logger
}

type ProjectServiceOptions struct {
	GuestLimit int
	// LiveRemote is set when the remote change feed already notifies
	// clients of account writes.
	LiveRemote bool
	Now        func() time.Time
}

func NewProjectService(
	local repository.GuestProjectStore,
	remote repository.RemoteProjectRepository,
	notifier session.Notifier,
	logger *log.Logger,
	opts ProjectServiceOptions,
) *ProjectService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GuestLimit <= 0 {
		opts.GuestLimit = 3
	}
	return &ProjectService{
		local:      local,
		remote:     remote,
		notifier:   notifier,
		ids:        domain.NewProjectIDGenerator(opts.Now),
		guestLimit: opts.GuestLimit,
		liveRemote: opts.LiveRemote,
		now:        opts.Now,
		logger:     logger,
	}
}

func (s *ProjectService) store(sess session.Session) repository.ProjectStore {
	if sess.IsGuest() {
		return s.local
	}
	return s.remote.ForUser(sess.UserID)
}

func (s *ProjectService) notify(sess session.Session, event domain.Event) {
	if !sess.IsGuest() && s.liveRemote {
		return
	}
	s.notifier.Notify(sess.Key(), event)
}

// ListProjects returns every project of the session, pinned ones first.
func (s *ProjectService) ListProjects(ctx context.Context, sess session.Session) ([]*domain.Project, error) {
	projects, err := s.store(sess).ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].Pinned && !projects[j].Pinned
	})
	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, sess session.Session, id string) (*domain.Project, error) {
	return s.store(sess).GetProject(ctx, id)
}

// SaveProject upserts a project by id. Creating a new guest project counts
// against the guest limit.
func (s *ProjectService) SaveProject(ctx context.Context, sess session.Session, project *domain.Project) error {
	if project.ID == "" {
		return repository.ErrInvalidProjectID
	}

	store := s.store(sess)
	existing, err := store.GetProject(ctx, project.ID)
	created := false
	switch {
	case err == nil:
		if project.CreatedAt.IsZero() {
			project.CreatedAt = existing.CreatedAt
		}
	case errors.Is(err, repository.ErrProjectNotFound):
		created = true
	default:
		return err
	}

	now := s.now()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	if created {
		err = s.create(ctx, sess, project)
	} else {
		err = store.SaveProject(ctx, project)
	}
	if err != nil {
		return err
	}
	s.notify(sess, domain.Event{Type: domain.EventProjectsChanged, ProjectID: project.ID})
	return nil
}

// CommitContent stores the editor text when the reader enters read mode.
// With an empty id, or an id that is not stored yet, a project is created
// and named after the first characters of the content.
func (s *ProjectService) CommitContent(ctx context.Context, sess session.Session, id, content string) (*domain.Project, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	store := s.store(sess)
	if id != "" {
		existing, err := store.GetProject(ctx, id)
		switch {
		case err == nil:
			existing.Content = content
			existing.UpdatedAt = s.now()
			existing.Notes = nil
			if err := store.SaveProject(ctx, existing); err != nil {
				return nil, err
			}
			s.notify(sess, domain.Event{Type: domain.EventProjectsChanged, ProjectID: id})
			return existing, nil
		case !errors.Is(err, repository.ErrProjectNotFound):
			return nil, err
		}
	}

	if id == "" {
		id = s.ids.Next()
	}
	now := s.now()
	project := &domain.Project{
		ID:        id,
		Name:      reader.ProjectName(content),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.create(ctx, sess, project); err != nil {
		return nil, err
	}

	s.logger.Debug("project created", "id", id, "session", sess.Kind)
	s.notify(sess, domain.Event{Type: domain.EventProjectsChanged, ProjectID: id})
	return project, nil
}

// RenameProject sets a new name. A blank name leaves the project untouched.
func (s *ProjectService) RenameProject(ctx context.Context, sess session.Session, id, name string) (*domain.Project, error) {
	store := s.store(sess)
	project, err := store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || name == project.Name {
		return project, nil
	}

	project.Name = name
	project.UpdatedAt = s.now()
	project.Notes = nil
	if err := store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	s.notify(sess, domain.Event{Type: domain.EventProjectsChanged, ProjectID: id})
	return project, nil
}

func (s *ProjectService) TogglePin(ctx context.Context, sess session.Session, id string) (*domain.Project, error) {
	store := s.store(sess)
	project, err := store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Pinned = !project.Pinned
	project.UpdatedAt = s.now()
	project.Notes = nil
	if err := store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	s.notify(sess, domain.Event{Type: domain.EventProjectsChanged, ProjectID: id})
	return project, nil
}

// ShareProject returns the text to put on the clipboard.
func (s *ProjectService) ShareProject(ctx context.Context, sess session.Session, id string) (string, error) {
	project, err := s.store(sess).GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(project.Content) == "" {
		return "", ErrNothingToShare
	}
	return project.Content, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, sess session.Session, id string) error {
	if err := s.store(sess).DeleteProject(ctx, id); err != nil {
		return err
	}
	s.notify(sess, domain.Event{Type: domain.EventProjectsChanged, ProjectID: id})
	return nil
}

func (s *ProjectService) ListNotes(ctx context.Context, sess session.Session, projectID string) ([]*domain.Note, error) {
	return s.store(sess).ListNotes(ctx, projectID)
}

func (s *ProjectService) IsNoteAdded(ctx context.Context, sess session.Session, projectID, en string) (bool, error) {
	_, err := s.store(sess).FindNote(ctx, projectID, en)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNoteNotFound):
		return false, nil
	default:
		return false, err
	}
}

// AddNote saves a selection and its translation. A term already in the
// project is reported with added false and nothing is written.
func (s *ProjectService) AddNote(ctx context.Context, sess session.Session, projectID, en, bn string) (*domain.Note, bool, error) {
	en = strings.TrimSpace(en)
	if en == "" {
		return nil, false, ErrEmptyNote
	}

	note, added, err := s.store(sess).AddNote(ctx, projectID, en, bn)
	if err != nil {
		return nil, false, err
	}
	if added {
		s.notify(sess, domain.Event{Type: domain.EventNotesChanged, ProjectID: projectID})
	}
	return note, added, nil
}

func (s *ProjectService) DeleteNote(ctx context.Context, sess session.Session, projectID, ref string) error {
	if err := s.store(sess).DeleteNote(ctx, projectID, ref); err != nil {
		return err
	}
	s.notify(sess, domain.Event{Type: domain.EventNotesChanged, ProjectID: projectID})
	return nil
}

// create stores a project with a new id. Guest creation counts and inserts
// in one store call so concurrent requests cannot pass the limit together.
func (s *ProjectService) create(ctx context.Context, sess session.Session, project *domain.Project) error {
	if !sess.IsGuest() {
		return s.store(sess).SaveProject(ctx, project)
	}
	err := s.local.CreateProject(ctx, project, s.guestLimit)
	if errors.Is(err, repository.ErrProjectLimit) {
		return ErrGuestProjectLimit
	}
	return err
}
