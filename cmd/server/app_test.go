package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/solodesk/auth"
	"github.com/diewo77/solodesk/internal/db/dbtest"
	"github.com/diewo77/solodesk/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	return withRecover(NewApp(Deps{
		DB:        dbtest.New(t),
		Tokens:    auth.NewTokens("test-secret", time.Hour),
		Storage:   store,
		UploadDir: store.Dir,
	}))
}

func do(t *testing.T, h http.Handler, method, target, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/health", "/healthz"} {
		w, body := do(t, app, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "ok", body["status"])
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t)
	w, body := do(t, app, http.MethodGet, "/api/clients", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.ReasonNoToken, body["details"])

	w, body = do(t, app, http.MethodGet, "/api/clients", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.ReasonInvalidToken, body["details"])
}

func TestRegisterLoginAndUseAPI(t *testing.T) {
	app := newTestApp(t)

	w, body := do(t, app, http.MethodPost, "/api/auth/register", "", `{"name":"Sam","email":"Sam@Example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	user := data["user"].(map[string]any)
	assert.Equal(t, "sam@example.com", user["email"])
	assert.NotContains(t, user, "password")

	w, _ = do(t, app, http.MethodPost, "/api/auth/register", "", `{"email":"sam@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, app, http.MethodPost, "/api/auth/register", "", `{"email":"short@example.com","password":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, app, http.MethodPost, "/api/auth/login", "", `{"email":"sam@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = do(t, app, http.MethodPost, "/api/auth/login", "", `{"email":"sam@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := body["data"].(map[string]any)["token"].(string)

	w, body = do(t, app, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sam", body["data"].(map[string]any)["name"])

	// welcome notification from registration
	w, body = do(t, app, http.MethodGet, "/api/notifications/unread-count", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	w, body = do(t, app, http.MethodPost, "/api/clients", token, `{"name":"Acme Co","email":"hello@acme.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clientID := body["data"].(map[string]any)["id"].(float64)

	w, body = do(t, app, http.MethodPost, "/api/projects", token, `{"name":"Website","clientId":`+jsonNumber(clientID)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	projectID := jsonNumber(body["data"].(map[string]any)["id"].(float64))

	w, _ = do(t, app, http.MethodPost, "/api/projects/"+projectID+"/tasks", token, `{"name":"Design"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body = do(t, app, http.MethodDelete, "/api/projects/"+projectID, token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), body["tasksArchived"])

	w, _ = do(t, app, http.MethodGet, "/api/dashboard?period=year", token, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestTokensAreUserScoped(t *testing.T) {
	app := newTestApp(t)
	_, a := do(t, app, http.MethodPost, "/api/auth/register", "", `{"email":"a@example.com","password":"secret1"}`)
	_, b := do(t, app, http.MethodPost, "/api/auth/register", "", `{"email":"b@example.com","password":"secret1"}`)
	tokenA := a["data"].(map[string]any)["token"].(string)
	tokenB := b["data"].(map[string]any)["token"].(string)

	w, body := do(t, app, http.MethodPost, "/api/clients", tokenA, `{"name":"Acme Co","email":"hello@acme.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := jsonNumber(body["data"].(map[string]any)["id"].(float64))

	w, _ = do(t, app, http.MethodGet, "/api/clients/"+id, tokenB, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, app, http.MethodGet, "/api/clients/"+id, tokenA, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	h := withRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w, body := do(t, h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := withLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w, _ := do(t, h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
