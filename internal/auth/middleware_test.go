package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(m *TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAuth(m), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserIDFromContext(c), "username": UsernameFromContext(c)})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	m := NewTokenManager("secret", "trello-clone", time.Minute, time.Hour)
	pair, err := m.Issue(5, "carol")
	require.NoError(t, err)
	r := newProtectedRouter(m)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + pair.RefreshToken, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				require.JSONEq(t, `{"id":5,"username":"carol"}`, w.Body.String())
			} else {
				require.Contains(t, w.Body.String(), `"code":"unauthorized"`)
			}
		})
	}
}
