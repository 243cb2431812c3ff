package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	raw, exp, err := tk.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	uid, err := tk.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
}

func TestParseRejections(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	other := NewTokens("other", time.Hour)
	foreign, _, err := other.Issue(1)
	require.NoError(t, err)

	expired := NewTokens("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Issue(1)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"garbage", "not-a-token", ReasonInvalidToken},
		{"wrong secret", foreign, ReasonInvalidToken},
		{"expired", old, ReasonExpired},
		{"alg none", none, ReasonInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tk.Parse(tt.raw)
			require.Error(t, err)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.CodeUnauthorized, ae.Code)
			assert.Equal(t, tt.reason, ae.Details)
		})
	}
}

func TestDefaultTTL(t *testing.T) {
	tk := NewTokens("s3cret", 0)
	_, exp, err := tk.Issue(1)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 5*time.Second)
}

func TestRequireAuth(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	tk.SetUserVerifier(func(_ context.Context, uid uint) bool { return uid == 7 })
	var seen uint
	h := tk.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	good, _, _ := tk.Issue(7)
	gone, _, _ := tk.Issue(8)

	tests := []struct {
		name   string
		header string
		status int
		reason string
	}{
		{"no header", "", http.StatusUnauthorized, ReasonNoToken},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ReasonNoToken},
		{"unknown user", "Bearer " + gone, http.StatusUnauthorized, ReasonInvalidToken},
		{"valid", "bearer " + good, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.reason != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.reason, body["details"])
			}
		})
	}
	assert.Equal(t, uint(7), seen)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)
	uid, ok := UserIDFromContext(WithUserID(context.Background(), 3))
	assert.True(t, ok)
	assert.Equal(t, uint(3), uid)
}
