package domain

import (
	"strconv"
	"sync"
	"time"
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Pinned    bool      `json:"pinned"`
	Notes     []*Note   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of p with its own notes slice.
func (p *Project) Clone() *Project {
	c := *p
	if p.Notes != nil {
		c.Notes = make([]*Note, len(p.Notes))
		for i, n := range p.Notes {
			nc := *n
			c.Notes[i] = &nc
		}
	}
	return &c
}

type CommitContentRequest struct {
	ID      string `json:"id"`
	Content string `json:"content" validate:"required"`
}

type SaveProjectRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

type RenameProjectRequest struct {
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) ToResponse() *ProjectResponse {
	return &ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Content:   p.Content,
		Pinned:    p.Pinned,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ProjectIDGenerator hands out millisecond-timestamp ids. Two calls in the
// same millisecond never return the same id.
type ProjectIDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewProjectIDGenerator(now func() time.Time) *ProjectIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &ProjectIDGenerator{now: now}
}

func (g *ProjectIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
