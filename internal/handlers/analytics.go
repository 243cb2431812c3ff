package handlers

import (
	"fmt"
	"net/http"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/analytics"
	"github.com/diewo77/solodesk/internal/services"
)

const dashboardDeadlineDays = 7

type AnalyticsHandler struct {
	engine        *analytics.Engine
	notifications *services.NotificationService
}

func NewAnalyticsHandler(engine *analytics.Engine, notifications *services.NotificationService) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, notifications: notifications}
}

// request resolves the caller and the period query parameter.
func (h *AnalyticsHandler) request(r *http.Request) (uint, analytics.Period, error) {
	uid, err := currentUser(r)
	if err != nil {
		return 0, analytics.Period{}, err
	}
	p, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return 0, analytics.Period{}, err
	}
	return uid, p, nil
}

// Overview returns the full snapshot for the period.
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	uid, p, err := h.request(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	snap, err := h.engine.Snapshot(r.Context(), uid, p)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, snap, nil)
}

func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	uid, p, err := h.request(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	stats, err := h.engine.RevenueStats(r.Context(), uid, p)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, nil)
}

func (h *AnalyticsHandler) Clients(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	stats, err := h.engine.ClientStats(r.Context(), uid)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, nil)
}

func (h *AnalyticsHandler) Projects(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	stats, err := h.engine.ProjectStats(r.Context(), uid)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, nil)
}

func (h *AnalyticsHandler) Time(w http.ResponseWriter, r *http.Request) {
	uid, p, err := h.request(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	stats, err := h.engine.TimeStats(r.Context(), uid, p)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats, nil)
}

// Report returns the snapshot; with download=1 it is served as a JSON attachment.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	uid, p, err := h.request(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	snap, err := h.engine.Snapshot(r.Context(), uid, p)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if queryBool(r, "download") {
		name := fmt.Sprintf("solodesk-report-%s-%s.json", snap.Period, snap.GeneratedAt.Format("20060102"))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	httpx.OK(w, http.StatusOK, snap, nil)
}

type dashboard struct {
	*analytics.Snapshot
	Deadlines   *analytics.Deadlines `json:"upcomingDeadlines"`
	UnreadCount int64                `json:"unreadNotifications"`
}

// Dashboard combines the snapshot with the next week's deadlines and the unread count.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	uid, p, err := h.request(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	snap, err := h.engine.Snapshot(r.Context(), uid, p)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	deadlines, err := h.engine.UpcomingDeadlines(r.Context(), uid, dashboardDeadlineDays)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	out := dashboard{Snapshot: snap, Deadlines: deadlines}
	if h.notifications != nil {
		if out.UnreadCount, err = h.notifications.UnreadCount(r.Context(), uid); err != nil {
			httpx.Error(w, err)
			return
		}
	}
	httpx.OK(w, http.StatusOK, out, nil)
}
