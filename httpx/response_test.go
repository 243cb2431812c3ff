package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestOKMergesExtra(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, http.StatusCreated, map[string]int{"id": 1}, map[string]any{"count": 3})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(1), body["data"].(map[string]any)["id"])
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		cause   string
	}{
		{"not found", apperr.NotFound("Client not found"), http.StatusNotFound, "NOT_FOUND", "Client not found", "Client not found"},
		{"conflict", apperr.Conflict("dup"), http.StatusBadRequest, "ALREADY_EXISTS", "dup", "dup"},
		{"dependency", apperr.Dependency("failed to load", errors.New("conn reset")), http.StatusInternalServerError, "DATABASE_ERROR", "failed to load", "conn reset"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "boom", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, tt.cause, body["error"])
		})
	}
}

func TestJSONNilPayload(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, nil)
	assert.Equal(t, "null", w.Body.String())
}

func TestJSONEncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]any{"bad": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
