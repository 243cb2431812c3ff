package handlers

import (
	"net/http"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
	tasks    *services.TaskService
}

func NewProjectHandler(projects *services.ProjectService, tasks *services.TaskService) *ProjectHandler {
	return &ProjectHandler{projects: projects, tasks: tasks}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	clientID, err := queryUint(r, "clientId")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	q := r.URL.Query()
	projects, err := h.projects.List(r.Context(), uid, services.ProjectFilter{
		Search:          q.Get("search"),
		Status:          q.Get("status"),
		Priority:        q.Get("priority"),
		ClientID:        clientID,
		Tag:             q.Get("tag"),
		IncludeArchived: queryBool(r, "includeArchived"),
		SortBy:          q.Get("sortBy"),
		SortOrder:       q.Get("sortOrder"),
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, projects, map[string]any{"count": len(projects)})
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in services.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	p, err := h.projects.Create(r.Context(), uid, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p, nil)
}

// Get returns the project with client, tasks and history; progress is recomputed first.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	p, err := h.projects.Get(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, nil)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in services.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	p, err := h.projects.Update(r.Context(), uid, id, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, p, nil)
}

// Archive is the DELETE verb: the project and its open tasks are archived, never removed.
func (h *ProjectHandler) Archive(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	n, err := h.projects.ArchiveProject(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, map[string]any{
		"message":       "Project archived",
		"tasksArchived": n,
	})
}

func (h *ProjectHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in noteRequest
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	p, err := h.projects.AddNote(r.Context(), uid, id, in.Content)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p, nil)
}

func (h *ProjectHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	tasks, err := h.tasks.ListByProject(r.Context(), uid, id, queryBool(r, "includeArchived"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, tasks, map[string]any{"count": len(tasks)})
}

func (h *ProjectHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in services.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	t, err := h.tasks.Create(r.Context(), uid, id, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, t, nil)
}
