package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
	"smart-reader/internal/reader"
	"smart-reader/internal/repository"
)

var testLogger = log.New(io.Discard)

// memStore is an in-memory project store. Guest stores embed notes newest
// first; remote stores keep notes apart with ids and timestamps.
type memStore struct {
	mu       sync.Mutex
	remote   bool
	projects map[string]*domain.Project
	notes    map[string][]*domain.Note
	seq      int
	base     time.Time

	writes      int
	bulkCalls   int
	failBulk    error
	failClear   error
	failAddNote error
	addNoteLeft int
}

func newGuestStore() *memStore {
	return &memStore{projects: map[string]*domain.Project{}, notes: map[string][]*domain.Note{}}
}

func newRemoteStore() *memStore {
	return &memStore{
		remote:      true,
		projects:    map[string]*domain.Project{},
		notes:       map[string][]*domain.Note{},
		base:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		addNoteLeft: -1,
	}
}

func (m *memStore) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.projects))
	for id := range m.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})

	out := make([]*domain.Project, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.projects[id].Clone())
	}
	return out, nil
}

func (m *memStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	return p.Clone(), nil
}

func (m *memStore) SaveProject(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(project)
}

func (m *memStore) save(project *domain.Project) error {
	if project.ID == "" {
		return repository.ErrInvalidProjectID
	}

	c := project.Clone()
	if m.remote {
		c.Notes = nil
	} else if c.Notes == nil {
		if old, ok := m.projects[c.ID]; ok {
			c.Notes = old.Notes
		} else {
			c.Notes = []*domain.Note{}
		}
	}
	m.projects[c.ID] = c
	m.writes++
	return nil
}

func (m *memStore) CreateProject(ctx context.Context, project *domain.Project, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.projects[project.ID]; !exists && limit > 0 && len(m.projects) >= limit {
		return repository.ErrProjectLimit
	}
	return m.save(project)
}

func (m *memStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok && m.remote {
		return repository.ErrProjectNotFound
	}
	delete(m.projects, id)
	delete(m.notes, id)
	m.writes++
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClear != nil {
		return m.failClear
	}
	m.projects = map[string]*domain.Project{}
	m.writes++
	return nil
}

func (m *memStore) ListNotes(ctx context.Context, projectID string) ([]*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	if !m.remote {
		return p.Clone().Notes, nil
	}

	notes := append([]*domain.Note(nil), m.notes[projectID]...)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(*notes[j].CreatedAt)
	})
	return notes, nil
}

func (m *memStore) FindNote(ctx context.Context, projectID, en string) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.noteList(projectID) {
		if reader.SameTerm(n.En, en) {
			return n, nil
		}
	}
	return nil, repository.ErrNoteNotFound
}

func (m *memStore) AddNote(ctx context.Context, projectID, en, bn string) (*domain.Note, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAddNote != nil {
		if m.addNoteLeft == 0 {
			return nil, false, m.failAddNote
		}
		m.addNoteLeft--
	}

	p, ok := m.projects[projectID]
	if !ok && !m.remote {
		return nil, false, repository.ErrProjectNotFound
	}
	for _, n := range m.noteList(projectID) {
		if reader.SameTerm(n.En, en) {
			return n, false, nil
		}
	}

	note := &domain.Note{En: en, Bn: bn}
	if m.remote {
		m.seq++
		created := m.base.Add(time.Duration(m.seq) * time.Second)
		note.ID = fmt.Sprintf("n%d", m.seq)
		note.CreatedAt = &created
		m.notes[projectID] = append(m.notes[projectID], note)
	} else {
		p.Notes = append([]*domain.Note{note}, p.Notes...)
	}
	m.writes++
	return note, true, nil
}

func (m *memStore) DeleteNote(ctx context.Context, projectID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.noteList(projectID)
	kept := list[:0:0]
	removed := false
	for _, n := range list {
		if n.Ref() == ref {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	if !removed {
		return repository.ErrNoteNotFound
	}
	if m.remote {
		m.notes[projectID] = kept
	} else {
		m.projects[projectID].Notes = kept
	}
	m.writes++
	return nil
}

func (m *memStore) ProjectIDs(ctx context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{}, len(m.projects))
	for id := range m.projects {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (m *memStore) BulkSaveProjects(ctx context.Context, projects []*domain.Project) error {
	m.mu.Lock()
	m.bulkCalls++
	if m.failBulk != nil {
		m.mu.Unlock()
		return m.failBulk
	}
	m.mu.Unlock()

	for _, p := range projects {
		if len(p.Notes) > 0 {
			return errors.New("bulk save must not carry notes")
		}
		if err := m.SaveProject(context.Background(), p); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) noteList(projectID string) []*domain.Note {
	if m.remote {
		return m.notes[projectID]
	}
	if p, ok := m.projects[projectID]; ok {
		return p.Notes
	}
	return nil
}

func (m *memStore) noteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	if m.remote {
		for _, notes := range m.notes {
			total += len(notes)
		}
		return total
	}
	for _, p := range m.projects {
		total += len(p.Notes)
	}
	return total
}

type memRemote struct {
	mu    sync.Mutex
	users map[string]*memStore
}

func newMemRemote() *memRemote {
	return &memRemote{users: map[string]*memStore{}}
}

func (r *memRemote) ForUser(userID string) repository.RemoteProjectStore {
	return r.user(userID)
}

func (r *memRemote) user(userID string) *memStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.users[userID]
	if !ok {
		s = newRemoteStore()
		r.users[userID] = s
	}
	return s
}

type recordedEvent struct {
	key   string
	event domain.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(key string, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{key: key, event: event})
}

func (n *recordingNotifier) NotifyAll(event domain.Event) {
	n.Notify("*", event)
}

func (n *recordingNotifier) types() []domain.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.event.Type)
	}
	return out
}
