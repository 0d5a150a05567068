package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
	"github.com/gokatarajesh/learning-platform/internal/retry"
)

func TestGenerateWithStaticKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "prompt text", req.Prompt)
		assert.EqualValues(t, 256, req.MaxOutputTokens)

		_ = json.NewEncoder(w).Encode(generateResponse{Text: "Question 1: hi"})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{BaseURL: srv.URL + "/", APIKey: "secret"}, zerolog.Nop())
	require.NoError(t, err)

	got, err := c.Generate(context.Background(), "prompt text", assessment.GenerationParams{MaxOutputTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, "Question 1: hi", got)
}

func TestGenerateWithClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"minted","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer minted", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(generateResponse{Text: "ok"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{
		BaseURL:      srv.URL,
		APIKey:       "ignored",
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	}, zerolog.Nop())
	require.NoError(t, err)

	got, err := c.Generate(context.Background(), "p", assessment.GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestGenerateStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c, err := NewClient(context.Background(), Config{BaseURL: srv.URL}, zerolog.Nop())
			require.NoError(t, err)

			_, err = c.Generate(context.Background(), "p", assessment.GenerationParams{})

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode())
			assert.Equal(t, "nope", se.Body)
			assert.Equal(t, tt.retryable, retry.IsRetryable(err))
		})
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, zerolog.Nop())
	assert.Error(t, err)
}
