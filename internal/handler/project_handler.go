package handler

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"smart-reader/internal/domain"
	"smart-reader/internal/service"
	"smart-reader/internal/session"
	"smart-reader/pkg/response"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	sessions       SessionController
	notifier       session.Notifier
	validator      *validator.Validate
	logger         *log.Logger
}

func NewProjectHandler(projectService *service.ProjectService, sessions SessionController, notifier session.Notifier, logger *log.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		sessions:       sessions,
		notifier:       notifier,
		validator:      newValidator(),
		logger:         logger,
	}
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	projects, err := h.projectService.ListProjects(r.Context(), sess)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]*domain.ProjectResponse, len(projects))
	for i, p := range projects {
		resp[i] = p.ToResponse()
	}
	response.Success(w, resp)
}

// CommitContent stores the editor text and makes the project the open one.
func (h *ProjectHandler) CommitContent(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var req domain.CommitContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	project, err := h.projectService.CommitContent(r.Context(), sess, req.ID, req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.sessions.OpenProject(project.ID)
	response.Success(w, project.ToResponse())
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	project, err := h.projectService.GetProject(r.Context(), sess, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.sessions.OpenProject(project.ID)
	response.Success(w, project.ToResponse())
}

func (h *ProjectHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req domain.SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	project := &domain.Project{
		ID:      id,
		Name:    req.Name,
		Content: req.Content,
		Pinned:  req.Pinned,
	}
	if err := h.projectService.SaveProject(r.Context(), sess, project); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, project.ToResponse())
}

// DeleteProject removes the project and its notes. Clients showing it are
// reset to a blank project.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.projectService.DeleteProject(r.Context(), sess, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.sessions.CurrentProject() == id {
		h.sessions.CloseProject(id)
		h.notifier.Notify(sess.Key(), domain.Event{Type: domain.EventProjectReset, ProjectID: id})
	}
	response.Message(w, "Project deleted successfully")
}

func (h *ProjectHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req domain.RenameProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	project, err := h.projectService.RenameProject(r.Context(), sess, id, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, project.ToResponse())
}

func (h *ProjectHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	project, err := h.projectService.TogglePin(r.Context(), sess, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, project.ToResponse())
}

func (h *ProjectHandler) ShareProject(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	text, err := h.projectService.ShareProject(r.Context(), sess, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, map[string]string{"text": text})
}

func (h *ProjectHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	notes, err := h.projectService.ListNotes(r.Context(), sess, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if notes == nil {
		notes = []*domain.Note{}
	}

	response.Success(w, notes)
}

func (h *ProjectHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req domain.AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validate(h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	note, added, err := h.projectService.AddNote(r.Context(), sess, id, req.En, req.Bn)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if !added {
		response.Success(w, note)
		return
	}
	response.Created(w, note)
}

func (h *ProjectHandler) CheckNote(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id := mux.Vars(r)["id"]
	en := r.URL.Query().Get("en")

	added, err := h.projectService.IsNoteAdded(r.Context(), sess, id, en)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, &domain.NoteStatusResponse{En: en, Added: added})
}

func (h *ProjectHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	vars := mux.Vars(r)

	if err := h.projectService.DeleteNote(r.Context(), sess, vars["id"], vars["ref"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Message(w, "Note deleted successfully")
}
