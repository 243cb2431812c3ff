package handlers

import (
	"net/http"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/services"
)

type ReceiptHandler struct {
	svc *services.ReceiptService
}

func NewReceiptHandler(svc *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{svc: svc}
}

// List accepts invoiceId, clientId and a from/to payment date range.
func (h *ReceiptHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var f services.ReceiptFilter
	if f.InvoiceID, err = queryUint(r, "invoiceId"); err != nil {
		httpx.Error(w, err)
		return
	}
	if f.ClientID, err = queryUint(r, "clientId"); err != nil {
		httpx.Error(w, err)
		return
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		httpx.Error(w, err)
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		httpx.Error(w, err)
		return
	}
	receipts, err := h.svc.List(r.Context(), uid, f)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, receipts, map[string]any{"count": len(receipts)})
}

func (h *ReceiptHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var in services.ReceiptInput
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, err)
		return
	}
	rc, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, rc, nil)
}

func (h *ReceiptHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	rc, err := h.svc.Get(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, rc, nil)
}

// Send e-mails the receipt to the client and stamps sentAt.
func (h *ReceiptHandler) Send(w http.ResponseWriter, r *http.Request) {
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
	rc, err := h.svc.Send(r.Context(), uid, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, rc, map[string]any{"message": "Receipt sent"})
}
