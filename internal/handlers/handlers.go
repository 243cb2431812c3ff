// Package handlers translates the JSON REST API into service calls.
// Every handler expects auth.RequireAuth to have put the caller's id in the request context.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/solodesk/auth"
	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func currentUser(r *http.Request) (uint, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		return 0, apperr.Unauthorized("No token, authorization denied", auth.ReasonNoToken)
	}
	return uid, nil
}

// pathID parses a numeric path value such as {id}.
func pathID(r *http.Request, name string) (uint, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("Invalid "+name, validation.Violations{name: "invalid_id"})
	}
	return uint(id), nil
}

// decodeJSON reads a single JSON object into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("Request body is required", nil)
		}
		return apperr.Invalid("Invalid JSON body", err.Error())
	}
	return nil
}

func queryUint(r *http.Request, key string) (uint, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Invalid("Invalid "+key, validation.Violations{key: "invalid_id"})
	}
	return uint(v), nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// queryTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Invalid("Invalid "+key, validation.Violations{key: "invalid_date"})
}

type noteRequest struct {
	Content string `json:"content"`
}
