package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"smart-reader/internal/domain"
	"smart-reader/internal/reader"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS projects (
    id  TEXT PRIMARY KEY,
    doc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

// LocalProjectRepository keeps guest projects in a SQLite file owned by a
// single process. Notes are embedded in the project record, newest first.
type LocalProjectRepository struct {
	db   *sql.DB
	lock *flock.Flock
	path string

	// serializes read-modify-write of project records
	mu sync.Mutex
}

// localProjectDoc is the stored record. Pinned is a pointer so records
// written before pinning existed read back as unpinned.
type localProjectDoc struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Content   string         `json:"content"`
	Pinned    *bool          `json:"pinned,omitempty"`
	Notes     []*domain.Note `json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// OpenLocalProjectRepository opens (creating if needed) the guest database
// at path. It fails with ErrLocalStoreLocked when another process holds it.
func OpenLocalProjectRepository(path string) (*LocalProjectRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local store dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire local store lock: %w", err)
	}
	if !ok {
		return nil, ErrLocalStoreLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(localSchema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("apply local schema: %w", err)
	}

	return &LocalProjectRepository{db: db, lock: lock, path: path}, nil
}

// Close releases the database and the process lock.
func (r *LocalProjectRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	dbErr := r.db.Close()
	lockErr := r.lock.Unlock()
	return errors.Join(dbErr, lockErr)
}

func (r *LocalProjectRepository) Path() string {
	return r.path
}

func (r *LocalProjectRepository) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc FROM projects ORDER BY length(id), id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		project, err := decodeLocalProject(raw)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

func (r *LocalProjectRepository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM projects WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return decodeLocalProject(raw)
}

// SaveProject upserts the project. When project carries no notes the stored
// notes are kept; notes change through AddNote and DeleteNote.
func (r *LocalProjectRepository) SaveProject(ctx context.Context, project *domain.Project) error {
	if project.ID == "" {
		return ErrInvalidProjectID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	toSave := project.Clone()
	if toSave.Notes == nil {
		existing, err := r.GetProject(ctx, project.ID)
		switch {
		case err == nil:
			toSave.Notes = existing.Notes
		case !errors.Is(err, ErrProjectNotFound):
			return err
		}
	}

	return r.put(ctx, toSave)
}

// CreateProject counts and inserts under the write lock, so concurrent
// creators cannot overshoot limit. An id that is already stored is updated
// in place and does not count as a creation.
func (r *LocalProjectRepository) CreateProject(ctx context.Context, project *domain.Project, limit int) error {
	if project.ID == "" {
		return ErrInvalidProjectID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	toSave := project.Clone()
	existing, err := r.GetProject(ctx, project.ID)
	switch {
	case err == nil:
		if toSave.Notes == nil {
			toSave.Notes = existing.Notes
		}
		return r.put(ctx, toSave)
	case !errors.Is(err, ErrProjectNotFound):
		return err
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if limit > 0 && count >= limit {
		return ErrProjectLimit
	}
	return r.put(ctx, toSave)
}

func (r *LocalProjectRepository) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// Clear removes every guest project. Settings are device preferences and
// survive.
func (r *LocalProjectRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("failed to clear local projects: %w", err)
	}
	return nil
}

func (r *LocalProjectRepository) ListNotes(ctx context.Context, projectID string) ([]*domain.Note, error) {
	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Notes == nil {
		return []*domain.Note{}, nil
	}
	return project.Notes, nil
}

func (r *LocalProjectRepository) FindNote(ctx context.Context, projectID, en string) (*domain.Note, error) {
	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, note := range project.Notes {
		if reader.SameTerm(note.En, en) {
			return note, nil
		}
	}
	return nil, ErrNoteNotFound
}

func (r *LocalProjectRepository) AddNote(ctx context.Context, projectID, en, bn string) (*domain.Note, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return nil, false, err
	}

	for _, note := range project.Notes {
		if reader.SameTerm(note.En, en) {
			return note, false, nil
		}
	}

	note := &domain.Note{En: en, Bn: bn}
	project.Notes = append([]*domain.Note{note}, project.Notes...)

	if err := r.put(ctx, project); err != nil {
		return nil, false, err
	}
	return note, true, nil
}

func (r *LocalProjectRepository) DeleteNote(ctx context.Context, projectID, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	kept := make([]*domain.Note, 0, len(project.Notes))
	removed := false
	for _, note := range project.Notes {
		if note.Ref() == ref || (note.ID == "" && reader.SameTerm(note.En, ref)) {
			removed = true
			continue
		}
		kept = append(kept, note)
	}
	if !removed {
		return ErrNoteNotFound
	}

	project.Notes = kept
	return r.put(ctx, project)
}

func (r *LocalProjectRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *LocalProjectRepository) PutSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to put setting %s: %w", key, err)
	}
	return nil
}

func (r *LocalProjectRepository) put(ctx context.Context, project *domain.Project) error {
	pinned := project.Pinned
	doc := localProjectDoc{
		ID:        project.ID,
		Name:      project.Name,
		Content:   project.Content,
		Pinned:    &pinned,
		Notes:     project.Notes,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
	}
	if doc.Notes == nil {
		doc.Notes = []*domain.Note{}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO projects (id, doc) VALUES (?, ?)
         ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`,
		project.ID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func decodeLocalProject(raw string) (*domain.Project, error) {
	var doc localProjectDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}

	project := &domain.Project{
		ID:        doc.ID,
		Name:      doc.Name,
		Content:   doc.Content,
		Notes:     doc.Notes,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.Pinned != nil {
		project.Pinned = *doc.Pinned
	}
	if project.Notes == nil {
		project.Notes = []*domain.Note{}
	}
	return project, nil
}
