package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diewo77/solodesk/internal/apperr"
)

// ErrorResponse is the failure envelope consumed by the SPA.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"success":false,"message":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

// OK writes {"success":true,"data":...} merged with any extra top-level fields.
func OK(w http.ResponseWriter, status int, data any, extra map[string]any) {
	payload := map[string]any{"success": true, "data": data}
	for k, v := range extra {
		payload[k] = v
	}
	JSON(w, status, payload)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Success: false, Message: msg, Error: msg, Details: details})
}

// Error writes the failure envelope for err, choosing the status from its apperr code.
// The underlying cause is attached in "error" for diagnostics.
func Error(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Success: false, Message: err.Error(), Error: err.Error()}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Code = string(ae.Code)
		resp.Details = ae.Details
		if ae.Err != nil {
			resp.Error = ae.Err.Error()
		} else {
			resp.Error = ae.Message
		}
	} else {
		resp.Code = string(apperr.CodeInternal)
	}
	JSON(w, apperr.HTTPStatus(err), resp)
}
