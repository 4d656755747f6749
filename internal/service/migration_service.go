package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"smart-reader/internal/domain"
	"smart-reader/internal/repository"
	"smart-reader/internal/session"
)

// MigrationService moves guest projects into an account after sign-in.
type MigrationService struct {
	local    repository.GuestProjectStore
	remote   repository.RemoteProjectRepository
	notifier session.Notifier
	logger   *log.Logger

	running atomic.Bool
}

func NewMigrationService(
	local repository.GuestProjectStore,
	remote repository.RemoteProjectRepository,
	notifier session.Notifier,
	logger *log.Logger,
) *MigrationService {
	return &MigrationService{
		local:    local,
		remote:   remote,
		notifier: notifier,
		logger:   logger,
	}
}

// MigrateGuestProjects copies every guest project whose id the account does
// not already have, then its notes, then empties the device store. Any
// failure stops the remaining steps; nothing already written is undone.
func (s *MigrationService) MigrateGuestProjects(ctx context.Context, userID string) (*domain.MigrationReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrMigrationInProgress
	}
	defer s.running.Store(false)

	s.notifier.NotifyAll(domain.Event{Type: domain.EventMigrationStarted})
	defer s.notifier.NotifyAll(domain.Event{Type: domain.EventMigrationFinished})

	report, err := s.migrate(ctx, userID)
	if err != nil {
		s.logger.Error("guest migration failed", "user", userID, "err", err)
		s.notifier.NotifyAll(domain.Event{Type: domain.EventMigrationFailed, Message: MigrationFailedMessage})
		return report, err
	}

	s.logger.Info("guest migration finished",
		"user", userID,
		"found", report.ProjectsFound,
		"skipped", report.ProjectsSkipped,
		"migrated", report.ProjectsMigrated,
		"notes", report.NotesMigrated,
	)
	return report, nil
}

func (s *MigrationService) migrate(ctx context.Context, userID string) (*domain.MigrationReport, error) {
	report := &domain.MigrationReport{}

	projects, err := s.local.ListProjects(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read guest projects: %w", err)
	}
	report.ProjectsFound = len(projects)
	if len(projects) == 0 {
		return report, nil
	}

	store := s.remote.ForUser(userID)
	existing, err := store.ProjectIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read account projects: %w", err)
	}

	var toMigrate []*domain.Project
	for _, p := range projects {
		if _, ok := existing[p.ID]; ok {
			report.ProjectsSkipped++
			continue
		}
		toMigrate = append(toMigrate, p)
	}

	withoutNotes := make([]*domain.Project, 0, len(toMigrate))
	for _, p := range toMigrate {
		c := p.Clone()
		c.Notes = nil
		withoutNotes = append(withoutNotes, c)
	}
	if err := store.BulkSaveProjects(ctx, withoutNotes); err != nil {
		return report, fmt.Errorf("failed to copy guest projects: %w", err)
	}
	report.ProjectsMigrated = len(toMigrate)

	// guest notes are stored newest first
	for _, p := range toMigrate {
		for i := len(p.Notes) - 1; i >= 0; i-- {
			note := p.Notes[i]
			_, added, err := store.AddNote(ctx, p.ID, note.En, note.Bn)
			if err != nil {
				return report, fmt.Errorf("failed to copy note %q of project %s: %w", note.En, p.ID, err)
			}
			if added {
				report.NotesMigrated++
			}
		}
	}

	if err := s.local.Clear(ctx); err != nil {
		return report, fmt.Errorf("failed to clear guest projects: %w", err)
	}
	report.LocalCleared = true
	return report, nil
}
