package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/admin/ping", APIKeyAuth(apiKey), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		provided   string
		want       int
	}{
		{"valid key", "s3cret", "s3cret", http.StatusOK},
		{"wrong key", "s3cret", "guess", http.StatusUnauthorized},
		{"missing key", "s3cret", "", http.StatusUnauthorized},
		{"not configured", "", "anything", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/admin/ping", nil)
			if tc.provided != "" {
				req.Header.Set("X-API-Key", tc.provided)
			}
			w := httptest.NewRecorder()

			setupRouter(tc.configured).ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}
