package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		key    string
		path   string
		header string
		query  string
		want   int
	}{
		{"disabled without key", "", "/api/parking", "", "", http.StatusOK},
		{"health is open", "secret", "/health", "", "", http.StatusOK},
		{"api health is open", "secret", "/api/health", "", "", http.StatusOK},
		{"other paths are open", "secret", "/favicon.ico", "", "", http.StatusOK},
		{"missing key", "secret", "/api/parking", "", "", http.StatusUnauthorized},
		{"wrong key", "secret", "/api/parking", "nope", "", http.StatusUnauthorized},
		{"correct key", "secret", "/api/parking", "secret", "", http.StatusOK},
		{"correct key in query", "secret", "/api/parking", "", "secret", http.StatusOK},
		{"socket without key", "secret", "/ws", "", "", http.StatusUnauthorized},
		{"socket with wrong query key", "secret", "/ws", "", "nope", http.StatusUnauthorized},
		{"socket with query key", "secret", "/ws", "", "secret", http.StatusOK},
		{"socket with header key", "secret", "/ws", "secret", "", http.StatusOK},
		{"api prefix lookalike is open", "secret", "/apiary", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(tt.key, "X-API-Key")(ok)
			target := tt.path
			if tt.query != "" {
				target += "?" + APIKeyQueryParam + "=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
