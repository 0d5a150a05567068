package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/learning-platform/internal/auth/jwt"
)

func protectedHandler(t *testing.T, verifier Verifier) http.Handler {
	t.Helper()
	return RequireBearer(verifier, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Subject(r.Context())))
	}))
}

func TestRequireBearer(t *testing.T) {
	manager, err := jwt.NewManager(jwt.TokenConfig{Secret: []byte("s3cret"), TTL: time.Minute})
	require.NoError(t, err)
	token, err := manager.Issue("instructor-1", "instructor")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantBody string
	}{
		{"header", "Bearer " + token, "", http.StatusOK, "instructor-1"},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK, "instructor-1"},
		{"query param", "", "?token=" + token, http.StatusOK, "instructor-1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/jobs/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protectedHandler(t, manager).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireBearerDisabledWithoutVerifier(t *testing.T) {
	rec := httptest.NewRecorder()
	protectedHandler(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
