package handlers

import (
	"net/http"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/services"
)

type InvoiceHandler struct {
	svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	projectID, err := queryUint(r, "projectId")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	q := r.URL.Query()
	invoices, err := h.svc.List(r.Context(), uid, services.InvoiceFilter{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		ProjectID: projectID,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, invoices, map[string]any{"count": len(invoices)})
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in services.InvoiceInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	inv, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, inv, nil)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	inv, err := h.svc.Get(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, nil)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var in services.InvoiceInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	inv, err := h.svc.Update(r.Context(), uid, id, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, nil)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	httpx.OK(w, http.StatusOK, nil, map[string]any{"message": "Invoice deleted"})
}
