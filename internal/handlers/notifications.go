package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/services"
	"github.com/diewo77/solodesk/validation"
)

const defaultNotificationLimit = 20

type NotificationHandler struct {
	svc *services.NotificationService
}

func NewNotificationHandler(svc *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	f := services.NotificationFilter{
		UnreadOnly: queryBool(r, "unreadOnly"),
		Type:       r.URL.Query().Get("type"),
		Limit:      queryInt(r, "limit", defaultNotificationLimit),
		Offset:     queryInt(r, "offset", 0),
	}
	items, total, err := h.svc.List(r.Context(), uid, f)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	unread, err := h.svc.UnreadCount(r.Context(), uid)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, items, map[string]any{
		"total":       total,
		"unreadCount": unread,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), uid)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"count": n}, nil)
}

// markReadRequest accepts either a bare array of ids or {"ids": [...]}.
type markReadRequest struct {
	IDs []uint `json:"ids"`
}

func (m *markReadRequest) UnmarshalJSON(b []byte) error {
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &m.IDs)
	}
	type object markReadRequest
	return json.Unmarshal(b, (*object)(m))
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in markReadRequest
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	if len(in.IDs) == 0 {
		httpx.Error(w, apperr.Invalid("No notification ids given", validation.Violations{"ids": "required"}))
		return
	}
	n, err := h.svc.MarkRead(r.Context(), uid, in.IDs)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"updated": n}, nil)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), uid)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"updated": n}, nil)
}
