package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-kivik/kivik/v4"
	"github.com/google/uuid"

	"smart-reader/internal/domain"
	"smart-reader/internal/reader"
)

const (
	docTypeProject = "project"
	docTypeNote    = "note"
)

type projectDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	Deleted   bool   `json:"_deleted,omitempty"`
	DocType   string `json:"doc_type"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	Pinned    bool   `json:"pinned"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type noteDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	Deleted   bool   `json:"_deleted,omitempty"`
	DocType   string `json:"doc_type"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	NoteID    string `json:"note_id"`
	En        string `json:"en"`
	EnKey     string `json:"en_key"`
	Bn        string `json:"bn"`
	CreatedAt string `json:"created_at"`
}

// remotePageSize bounds each _all_docs request.
const remotePageSize = 200

// noteIDSpace namespaces note ids derived from their term, so two writers
// adding the same term target the same document and CouchDB rejects the
// second with a conflict.
var noteIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("smart-reader/note"))

func projectDocID(userID, projectID string) string {
	return fmt.Sprintf("project:%s:%s", userID, projectID)
}

func noteDocID(userID, projectID, noteID string) string {
	return fmt.Sprintf("note:%s:%s:%s", userID, projectID, noteID)
}

func termNoteID(key string) string {
	return uuid.NewSHA1(noteIDSpace, []byte(key)).String()
}

// CouchDBProjectRepository stores every account's projects in one CouchDB
// database, namespaced by user id in the document ids.
type CouchDBProjectRepository struct {
	db       *kivik.DB
	logger   *log.Logger
	now      func() time.Time
	pageSize int
}

func NewRemoteProjectRepository(client *kivik.Client, dbName string, logger *log.Logger) *CouchDBProjectRepository {
	return &CouchDBProjectRepository{
		db:       client.DB(dbName),
		logger:   logger,
		now:      time.Now,
		pageSize: remotePageSize,
	}
}

func (r *CouchDBProjectRepository) ForUser(userID string) RemoteProjectStore {
	return &userProjectStore{repo: r, userID: userID}
}

// scanRange visits every document whose id starts with prefix, in id order,
// one page at a time. Each page resumes after the last id of the previous one.
func (r *CouchDBProjectRepository) scanRange(ctx context.Context, prefix string, visit func(rows *kivik.ResultSet) error) error {
	startKey, skip := prefix, 0
	for {
		rows := r.db.AllDocs(ctx, kivik.Params(map[string]interface{}{
			"include_docs": true,
			"startkey":     startKey,
			"endkey":       prefix + "\ufff0",
			"limit":        r.pageSize,
			"skip":         skip,
		}))

		n, last, err := scanPage(rows, visit)
		if err != nil {
			return err
		}
		if n < r.pageSize {
			return nil
		}
		startKey, skip = last, 1
	}
}

func scanPage(rows *kivik.ResultSet, visit func(rows *kivik.ResultSet) error) (int, string, error) {
	defer rows.Close()

	n, last := 0, ""
	for rows.Next() {
		id, err := rows.ID()
		if err != nil {
			return 0, "", err
		}
		if err := visit(rows); err != nil {
			return 0, "", err
		}
		n++
		last = id
	}
	if err := rows.Err(); err != nil {
		return 0, "", err
	}
	return n, last, nil
}

type userProjectStore struct {
	repo   *CouchDBProjectRepository
	userID string
}

func (s *userProjectStore) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	docs, err := s.findProjects(ctx)
	if err != nil {
		return nil, err
	}

	projects := make([]*domain.Project, 0, len(docs))
	for _, doc := range docs {
		p, err := docToProject(doc)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projectIDLess(projects[i].ID, projects[j].ID)
	})
	return projects, nil
}

func (s *userProjectStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	doc, err := s.getProjectDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return docToProject(doc)
}

func (s *userProjectStore) SaveProject(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		return ErrInvalidProjectID
	}

	doc := projectToDoc(s.userID, project)
	existing, err := s.getProjectDoc(ctx, project.ID)
	switch {
	case err == nil:
		doc.Rev = existing.Rev
	case !errors.Is(err, ErrProjectNotFound):
		return err
	}

	if _, err := s.repo.db.Put(ctx, doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// DeleteProject removes every note of the project and then the project
// itself. When a note cannot be removed the project is kept, so a retry
// finds the remaining notes again.
func (s *userProjectStore) DeleteProject(ctx context.Context, id string) error {
	doc, err := s.getProjectDoc(ctx, id)
	if err != nil {
		return err
	}

	notes, err := s.findNotes(ctx, id)
	if err != nil {
		return err
	}

	for start := 0; start < len(notes); start += s.repo.pageSize {
		end := min(start+s.repo.pageSize, len(notes))
		tombstones := make([]interface{}, 0, end-start)
		for _, n := range notes[start:end] {
			tombstones = append(tombstones, map[string]interface{}{
				"_id":      n.ID,
				"_rev":     n.Rev,
				"_deleted": true,
			})
		}

		results, err := s.repo.db.BulkDocs(ctx, tombstones)
		if err != nil {
			return fmt.Errorf("failed to delete project notes: %w", err)
		}
		if err := bulkErrors(results); err != nil {
			return fmt.Errorf("failed to delete project notes: %w", err)
		}
	}

	if _, err := s.repo.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (s *userProjectStore) ProjectIDs(ctx context.Context) (map[string]struct{}, error) {
	docs, err := s.findProjects(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		p, err := docToProject(doc)
		if err != nil {
			return nil, err
		}
		ids[p.ID] = struct{}{}
	}
	return ids, nil
}

func (s *userProjectStore) BulkSaveProjects(ctx context.Context, projects []*domain.Project) error {
	if len(projects) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(projects))
	for _, p := range projects {
		if p.ID == "" {
			return ErrInvalidProjectID
		}
		docs = append(docs, projectToDoc(s.userID, p))
	}

	results, err := s.repo.db.BulkDocs(ctx, docs)
	if err != nil {
		return fmt.Errorf("failed to bulk save projects: %w", err)
	}
	if err := bulkErrors(results); err != nil {
		return fmt.Errorf("failed to bulk save projects: %w", err)
	}
	return nil
}

func (s *userProjectStore) ListNotes(ctx context.Context, projectID string) ([]*domain.Note, error) {
	docs, err := s.findNotes(ctx, projectID)
	if err != nil {
		return nil, err
	}

	notes := make([]*domain.Note, 0, len(docs))
	for _, doc := range docs {
		n, err := docToNote(doc)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	sortNotesNewestFirst(notes)
	return notes, nil
}

func (s *userProjectStore) FindNote(ctx context.Context, projectID, en string) (*domain.Note, error) {
	doc, err := s.getNoteDoc(ctx, projectID, termNoteID(reader.NoteKey(en)))
	if err != nil {
		return nil, err
	}
	return docToNote(doc)
}

// AddNote writes the note under an id derived from its term. A conflict
// means another writer stored the same term first.
func (s *userProjectStore) AddNote(ctx context.Context, projectID, en, bn string) (*domain.Note, bool, error) {
	existing, err := s.FindNote(ctx, projectID, en)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNoteNotFound) {
		return nil, false, err
	}

	key := reader.NoteKey(en)
	noteID := termNoteID(key)
	createdAt := s.repo.now().UTC()
	doc := noteDoc{
		ID:        noteDocID(s.userID, projectID, noteID),
		DocType:   docTypeNote,
		UserID:    s.userID,
		ProjectID: projectID,
		NoteID:    noteID,
		En:        en,
		EnKey:     key,
		Bn:        bn,
		CreatedAt: createdAt.Format(time.RFC3339Nano),
	}

	if _, err := s.repo.db.Put(ctx, doc.ID, doc); err != nil {
		if kivik.HTTPStatus(err) == 409 {
			existing, err := s.FindNote(ctx, projectID, en)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to add note: %w", err)
	}

	return &domain.Note{ID: noteID, En: en, Bn: bn, CreatedAt: &createdAt}, true, nil
}

func (s *userProjectStore) DeleteNote(ctx context.Context, projectID, ref string) error {
	doc, err := s.getNoteDoc(ctx, projectID, ref)
	if err != nil {
		return err
	}

	if _, err := s.repo.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (s *userProjectStore) getProjectDoc(ctx context.Context, id string) (*projectDoc, error) {
	var doc projectDoc
	if err := s.repo.db.Get(ctx, projectDocID(s.userID, id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &doc, nil
}

func (s *userProjectStore) getNoteDoc(ctx context.Context, projectID, noteID string) (*noteDoc, error) {
	var doc noteDoc
	if err := s.repo.db.Get(ctx, noteDocID(s.userID, projectID, noteID)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &doc, nil
}

func (s *userProjectStore) findProjects(ctx context.Context) ([]*projectDoc, error) {
	var docs []*projectDoc
	err := s.repo.scanRange(ctx, projectDocID(s.userID, ""), func(rows *kivik.ResultSet) error {
		var doc projectDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return fmt.Errorf("failed to scan project: %w", err)
		}
		docs = append(docs, &doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return docs, nil
}

func (s *userProjectStore) findNotes(ctx context.Context, projectID string) ([]*noteDoc, error) {
	var docs []*noteDoc
	err := s.repo.scanRange(ctx, noteDocID(s.userID, projectID, ""), func(rows *kivik.ResultSet) error {
		var doc noteDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return fmt.Errorf("failed to scan note: %w", err)
		}
		docs = append(docs, &doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return docs, nil
}

// bulkErrors joins the per-document failures of a bulk request.
func bulkErrors(results []kivik.BulkResult) error {
	var failed []error
	for _, res := range results {
		if res.Error != nil {
			failed = append(failed, fmt.Errorf("%s: %w", res.ID, res.Error))
		}
	}
	return errors.Join(failed...)
}

// projectToDoc never carries notes; they live in their own documents.
func projectToDoc(userID string, p *domain.Project) *projectDoc {
	return &projectDoc{
		ID:        projectDocID(userID, p.ID),
		DocType:   docTypeProject,
		UserID:    userID,
		ProjectID: p.ID,
		Name:      p.Name,
		Content:   p.Content,
		Pinned:    p.Pinned,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func docToProject(doc *projectDoc) (*domain.Project, error) {
	createdAt, err := parseOptionalTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	updatedAt, err := parseOptionalTime(doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	id := doc.ProjectID
	if id == "" {
		id = doc.ID[strings.LastIndex(doc.ID, ":")+1:]
	}

	return &domain.Project{
		ID:        id,
		Name:      doc.Name,
		Content:   doc.Content,
		Pinned:    doc.Pinned,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func docToNote(doc *noteDoc) (*domain.Note, error) {
	note := &domain.Note{ID: doc.NoteID, En: doc.En, Bn: doc.Bn}
	if doc.CreatedAt != "" {
		t, err := parseTime(doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse note created_at: %w", err)
		}
		note.CreatedAt = &t
	}
	return note, nil
}

// sortNotesNewestFirst orders by creation time; notes without a timestamp
// sort last.
func sortNotesNewestFirst(notes []*domain.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i].CreatedAt, notes[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// projectIDLess compares millisecond ids numerically.
func projectIDLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTime(s)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
