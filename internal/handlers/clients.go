package handlers

import (
	"net/http"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/services"
)

type ClientHandler struct {
	svc *services.ClientService
}

func NewClientHandler(svc *services.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	q := r.URL.Query()
	clients, err := h.svc.List(r.Context(), uid, services.ClientFilter{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		Type:      q.Get("type"),
		Tag:       q.Get("tag"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, clients, map[string]any{"count": len(clients)})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in services.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	c, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, c, nil)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.svc.Get(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, nil)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var in services.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	c, err := h.svc.Update(r.Context(), uid, id, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, nil)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.Delete(r.Context(), uid, id); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, map[string]any{"message": "Client deleted"})
}

func (h *ClientHandler) AddNote(w http.ResponseWriter, r *http.Request) {
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
	c, err := h.svc.AddNote(r.Context(), uid, id, in.Content)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, c, nil)
}
