package session

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
)

// Migrator moves guest data into an account.
type Migrator interface {
	MigrateGuestProjects(ctx context.Context, userID string) (*domain.MigrationReport, error)
}

// Notifier pushes re-render events to the clients of a session key.
type Notifier interface {
	Notify(key string, event domain.Event)
	NotifyAll(event domain.Event)
}

// Controller owns the device session. A guest to account transition runs
// the migration under the write lock; Await blocks readers until it ends.
type Controller struct {
	mu          sync.RWMutex
	current     Session
	openProject string

	migrator Migrator
	notifier Notifier
	logger   *log.Logger
}

func NewController(migrator Migrator, notifier Notifier, logger *log.Logger) *Controller {
	return &Controller{
		current:  NewGuest(),
		migrator: migrator,
		notifier: notifier,
		logger:   logger,
	}
}

// Await returns once no session transition is in progress.
func (c *Controller) Await() {
	// waits for a writer holding the lock during migration
	c.mu.RLock()
	c.mu.RUnlock()
}

func (c *Controller) Current() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SignIn moves the device to the given account. Leaving guest mode migrates
// the guest projects first; the report is nil when no migration ran. A
// migration error is returned but the device stays signed in.
func (c *Controller) SignIn(ctx context.Context, user *domain.User) (*domain.MigrationReport, error) {
	c.mu.Lock()

	prev := c.current
	next := NewAuthenticated(user.ID, user.Email)
	if !prev.IsGuest() && prev.UserID == next.UserID {
		c.mu.Unlock()
		return nil, nil
	}

	var (
		report *domain.MigrationReport
		err    error
	)
	if prev.IsGuest() {
		report, err = c.migrator.MigrateGuestProjects(ctx, user.ID)
		if err != nil {
			c.logger.Error("guest migration failed", "user", user.ID, "err", err)
		}
	} else {
		c.logger.Info("switching account", "from", prev.UserID, "to", next.UserID)
		c.openProject = ""
	}

	c.current = next
	c.mu.Unlock()

	c.notifier.NotifyAll(domain.Event{Type: domain.EventSessionChanged})
	return report, err
}

// SignOut returns the device to guest mode. An open project is dropped and
// its clients reset to the blank project.
func (c *Controller) SignOut() {
	c.mu.Lock()
	if c.current.IsGuest() {
		c.mu.Unlock()
		return
	}

	prev := c.current
	openProject := c.openProject
	c.current = NewGuest()
	c.openProject = ""
	c.mu.Unlock()

	if openProject != "" {
		c.notifier.Notify(prev.Key(), domain.Event{Type: domain.EventProjectReset, ProjectID: openProject})
	}
	c.notifier.NotifyAll(domain.Event{Type: domain.EventSessionChanged})
}

func (c *Controller) OpenProject(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openProject = id
}

// CloseProject clears the open project when it is id, or unconditionally
// when id is empty.
func (c *Controller) CloseProject(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || c.openProject == id {
		c.openProject = ""
	}
}

func (c *Controller) CurrentProject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.openProject
}
