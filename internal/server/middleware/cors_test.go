package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/internal/matcher"
)

func TestCORS(t *testing.T) {
	origins, err := matcher.Origins([]string{"https://portal.example", "https://*.crm.example"})
	require.NoError(t, err)
	restricted := DefaultCORSConfig()
	restricted.Origins = origins

	tests := []struct {
		name       string
		config     CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allow all", CORSConfig{AllowAll: true}, http.MethodGet, "https://x.example", "*", http.StatusOK},
		{"allowed origin", restricted, http.MethodGet, "https://portal.example", "https://portal.example", http.StatusOK},
		{"origin pattern", restricted, http.MethodGet, "https://eu.crm.example", "https://eu.crm.example", http.StatusOK},
		{"other origin", restricted, http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"preflight", restricted, http.MethodOptions, "https://portal.example", "https://portal.example", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/sessions", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.config)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	t.Run("default headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CORS(restricted)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), RequestIDHeader)
		assert.Equal(t, RequestIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	})
}
