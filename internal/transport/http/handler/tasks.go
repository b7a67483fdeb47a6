package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-tasks-api/internal/application/task"
	"github.com/go-tasks-api/internal/domain"
	"github.com/go-tasks-api/internal/transport/http/middleware"
)

// TaskHandler handles the owner-scoped task endpoints. Every route sits
// behind the auth middleware.
type TaskHandler struct {
	svc task.Service
}

func NewTaskHandler(svc task.Service) *TaskHandler { return &TaskHandler{svc: svc} }

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	tasks, err := h.svc.List(r.Context(), owner)
	if err != nil {
		httpError(w, err, "Failed to fetch tasks")
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, TaskListEnvelope{Success: true, Count: len(tasks), Tasks: tasks})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req domain.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Create(r.Context(), owner, req)
	if err != nil {
		httpError(w, err, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, TaskEnvelope{Success: true, Message: "Task created", Task: t})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Update(r.Context(), owner, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, TaskEnvelope{Success: true, Message: "Task updated", Task: t})
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.ToggleComplete(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, TaskEnvelope{Success: true, Task: t})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		httpError(w, err, "Failed to delete task")
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted")
}

func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, no token")
		return "", false
	}
	return account.ID, true
}
