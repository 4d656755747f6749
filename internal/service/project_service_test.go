package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smart-reader/internal/domain"
	"smart-reader/internal/repository"
	"smart-reader/internal/session"
)

type projectFixture struct {
	svc      *ProjectService
	local    *memStore
	remote   *memRemote
	notifier *recordingNotifier
	guest    session.Session
	user     session.Session
}

func newProjectFixture(t *testing.T, live bool) *projectFixture {
	t.Helper()
	clock := time.UnixMilli(1700000000000)
	f := &projectFixture{
		local:    newGuestStore(),
		remote:   newMemRemote(),
		notifier: &recordingNotifier{},
		guest:    session.NewGuest(),
		user:     session.NewAuthenticated("u1", "reader@example.com"),
	}
	f.svc = NewProjectService(f.local, f.remote, f.notifier, testLogger, ProjectServiceOptions{
		GuestLimit: 3,
		LiveRemote: live,
		Now:        func() time.Time { return clock },
	})
	return f
}

func TestProjectService_SaveThenList(t *testing.T) {
	ctx := context.Background()

	for _, mode := range []string{"guest", "authenticated"} {
		t.Run(mode, func(t *testing.T) {
			f := newProjectFixture(t, false)
			sess := f.guest
			if mode == "authenticated" {
				sess = f.user
			}

			p := &domain.Project{ID: "1700000000000", Name: "Hello world", Content: "Hello world"}
			if err := f.svc.SaveProject(ctx, sess, p); err != nil {
				t.Fatalf("SaveProject() error = %v", err)
			}

			projects, err := f.svc.ListProjects(ctx, sess)
			if err != nil {
				t.Fatalf("ListProjects() error = %v", err)
			}
			if len(projects) != 1 {
				t.Fatalf("len(projects) = %d, want 1", len(projects))
			}
			got := projects[0]
			if got.ID != p.ID || got.Name != p.Name || got.Content != p.Content || got.Pinned {
				t.Errorf("ListProjects()[0] = %+v", got)
			}
			if mode == "authenticated" && got.Notes != nil {
				t.Error("remote list must not return notes")
			}
		})
	}
}

func TestProjectService_SaveRejectsEmptyID(t *testing.T) {
	f := newProjectFixture(t, false)
	err := f.svc.SaveProject(context.Background(), f.guest, &domain.Project{Name: "x"})
	if !errors.Is(err, repository.ErrInvalidProjectID) {
		t.Errorf("SaveProject() error = %v, want ErrInvalidProjectID", err)
	}
}

func TestProjectService_ListPinnedFirst(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)

	for _, id := range []string{"1", "2", "3"} {
		f.svc.SaveProject(ctx, f.user, &domain.Project{ID: id, Name: id, Content: id})
	}
	if _, err := f.svc.TogglePin(ctx, f.user, "2"); err != nil {
		t.Fatalf("TogglePin() error = %v", err)
	}

	projects, _ := f.svc.ListProjects(ctx, f.user)
	want := []string{"2", "1", "3"}
	for i, id := range want {
		if projects[i].ID != id {
			t.Errorf("projects[%d] = %s, want %s", i, projects[i].ID, id)
		}
	}
}

func TestProjectService_GuestLimit(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.CommitContent(ctx, f.guest, "", "text"); err != nil {
			t.Fatalf("CommitContent() #%d error = %v", i+1, err)
		}
	}
	writes := f.local.writes

	_, err := f.svc.CommitContent(ctx, f.guest, "", "fourth")
	if !errors.Is(err, ErrGuestProjectLimit) {
		t.Fatalf("4th CommitContent() error = %v, want ErrGuestProjectLimit", err)
	}
	if f.local.writes != writes {
		t.Error("rejected creation must not touch storage")
	}

	projects, _ := f.svc.ListProjects(ctx, f.guest)
	if len(projects) != 3 {
		t.Errorf("len(projects) = %d, want 3", len(projects))
	}

	// editing an existing project is not a creation
	if _, err := f.svc.CommitContent(ctx, f.guest, projects[0].ID, "edited"); err != nil {
		t.Errorf("editing existing project error = %v", err)
	}

	// accounts have no limit
	for i := 0; i < 5; i++ {
		if _, err := f.svc.CommitContent(ctx, f.user, "", "remote"); err != nil {
			t.Fatalf("authenticated CommitContent() error = %v", err)
		}
	}
}

func TestProjectService_GuestLimitUnderConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)

	const workers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CommitContent(ctx, f.guest, "", "some text")
			if errors.Is(err, ErrGuestProjectLimit) {
				mu.Lock()
				rejected++
				mu.Unlock()
			} else if err != nil {
				t.Errorf("CommitContent() error = %v", err)
			}
		}()
	}
	wg.Wait()

	projects, _ := f.svc.ListProjects(ctx, f.guest)
	if len(projects) != 3 {
		t.Errorf("len(projects) = %d, want 3", len(projects))
	}
	if rejected != workers-3 {
		t.Errorf("rejected = %d, want %d", rejected, workers-3)
	}
}

func TestProjectService_CommitContent(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)

	if _, err := f.svc.CommitContent(ctx, f.guest, "", "   "); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("blank content error = %v, want ErrEmptyContent", err)
	}

	p, err := f.svc.CommitContent(ctx, f.guest, "", "  The quick brown fox jumps over the lazy dog")
	if err != nil {
		t.Fatalf("CommitContent() error = %v", err)
	}
	if p.ID != "1700000000000" {
		t.Errorf("ID = %s, want 1700000000000", p.ID)
	}
	if p.Name != "The quick brown fox " {
		t.Errorf("Name = %q", p.Name)
	}

	second, _ := f.svc.CommitContent(ctx, f.guest, "", "another")
	if second.ID == p.ID {
		t.Error("ids must be unique within one millisecond")
	}

	updated, err := f.svc.CommitContent(ctx, f.guest, p.ID, "new body")
	if err != nil {
		t.Fatalf("CommitContent(existing) error = %v", err)
	}
	if updated.Name != p.Name || updated.Content != "new body" {
		t.Errorf("existing project = %+v, name must be kept", updated)
	}
}

func TestProjectService_RenameEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)
	f.svc.SaveProject(ctx, f.guest, &domain.Project{ID: "1", Name: "Original", Content: "c"})
	writes := f.local.writes

	p, err := f.svc.RenameProject(ctx, f.guest, "1", "   ")
	if err != nil {
		t.Fatalf("RenameProject() error = %v", err)
	}
	if p.Name != "Original" {
		t.Errorf("Name = %s, want Original", p.Name)
	}
	if f.local.writes != writes {
		t.Error("empty rename must not write")
	}

	p, _ = f.svc.RenameProject(ctx, f.guest, "1", " Renamed ")
	if p.Name != "Renamed" {
		t.Errorf("Name = %s, want Renamed", p.Name)
	}
}

func TestProjectService_Share(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)
	f.svc.SaveProject(ctx, f.guest, &domain.Project{ID: "1", Name: "n", Content: "share me"})
	f.svc.SaveProject(ctx, f.guest, &domain.Project{ID: "2", Name: "n", Content: ""})

	text, err := f.svc.ShareProject(ctx, f.guest, "1")
	if err != nil || text != "share me" {
		t.Errorf("ShareProject() = (%q, %v)", text, err)
	}
	if _, err := f.svc.ShareProject(ctx, f.guest, "2"); !errors.Is(err, ErrNothingToShare) {
		t.Errorf("ShareProject(empty) error = %v", err)
	}
}

func TestProjectService_GuestNoteUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)
	f.svc.SaveProject(ctx, f.guest, &domain.Project{ID: "1", Name: "n", Content: "c"})

	_, added, err := f.svc.AddNote(ctx, f.guest, "1", "hello", "হ্যালো")
	if err != nil || !added {
		t.Fatalf("first AddNote() = (%v, %v)", added, err)
	}
	_, added, err = f.svc.AddNote(ctx, f.guest, "1", "hello", "other")
	if err != nil || added {
		t.Fatalf("duplicate AddNote() = (%v, %v), want (false, nil)", added, err)
	}

	notes, _ := f.svc.ListNotes(ctx, f.guest, "1")
	count := 0
	for _, n := range notes {
		if n.En == "hello" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("notes with en=hello = %d, want 1", count)
	}

	ok, _ := f.svc.IsNoteAdded(ctx, f.guest, "1", "Hello")
	if !ok {
		t.Error("IsNoteAdded() should match case-insensitively")
	}
	ok, _ = f.svc.IsNoteAdded(ctx, f.guest, "1", "world")
	if ok {
		t.Error("IsNoteAdded(world) = true")
	}

	if _, _, err := f.svc.AddNote(ctx, f.guest, "1", "  ", "x"); !errors.Is(err, ErrEmptyNote) {
		t.Errorf("blank AddNote() error = %v", err)
	}
}

func TestProjectService_DeleteNoteByRef(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)
	f.svc.SaveProject(ctx, f.user, &domain.Project{ID: "1", Name: "n", Content: "c"})

	note, _, err := f.svc.AddNote(ctx, f.user, "1", "hello", "হ্যালো")
	if err != nil {
		t.Fatal(err)
	}
	if note.Ref() != note.ID {
		t.Error("remote note ref must be its id")
	}
	if err := f.svc.DeleteNote(ctx, f.user, "1", note.Ref()); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	notes, _ := f.svc.ListNotes(ctx, f.user, "1")
	if len(notes) != 0 {
		t.Errorf("len(notes) = %d, want 0", len(notes))
	}
}

func TestProjectService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, false)
	f.svc.SaveProject(ctx, f.user, &domain.Project{ID: "1", Name: "n", Content: "c"})
	f.svc.AddNote(ctx, f.user, "1", "a", "ক")
	f.svc.AddNote(ctx, f.user, "1", "b", "খ")

	if err := f.svc.DeleteProject(ctx, f.user, "1"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if _, err := f.svc.GetProject(ctx, f.user, "1"); !errors.Is(err, repository.ErrProjectNotFound) {
		t.Errorf("GetProject() after delete error = %v", err)
	}
	if n := f.remote.user("u1").noteCount(); n != 0 {
		t.Errorf("notes left after cascade = %d", n)
	}
}

func TestProjectService_Notifications(t *testing.T) {
	ctx := context.Background()

	t.Run("writes notify the session", func(t *testing.T) {
		f := newProjectFixture(t, false)
		f.svc.CommitContent(ctx, f.guest, "", "hello")
		f.svc.CommitContent(ctx, f.user, "", "hello")

		if len(f.notifier.events) != 2 {
			t.Fatalf("events = %d, want 2", len(f.notifier.events))
		}
		if f.notifier.events[0].key != "guest" || f.notifier.events[1].key != "u1" {
			t.Errorf("keys = %s, %s", f.notifier.events[0].key, f.notifier.events[1].key)
		}
	})

	t.Run("live feed handles account writes", func(t *testing.T) {
		f := newProjectFixture(t, true)
		f.svc.CommitContent(ctx, f.guest, "", "hello")
		f.svc.CommitContent(ctx, f.user, "", "hello")

		if len(f.notifier.events) != 1 || f.notifier.events[0].key != "guest" {
			t.Errorf("events = %+v, want only the guest write", f.notifier.events)
		}
	})
}
