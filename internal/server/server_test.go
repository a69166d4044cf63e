package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"bookmarket/internal/config"
)

type stubRoutes struct{}

func (stubRoutes) Register(router *gin.RouterGroup) {
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	router.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })
}

func newTestServer(trustedProxies ...string) *HTTPServer {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{Host: "127.0.0.1", Port: 0, TrustedProxies: trustedProxies},
		Upload:      config.UploadConfig{MaxBytes: 1024, MaxBatchSize: 2},
	}
	return NewHTTPServer(cfg, zerolog.Nop(), stubRoutes{})
}

func TestServerMiddlewareChain(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":"INTERNAL_ERROR"}`, rec.Body.String())
}

func TestServerUnknownRoute(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"route not found","code":"NOT_FOUND"}`, rec.Body.String())
}

func clientIP(srv *HTTPServer, remoteAddr, forwardedFor string) string {
	req := httptest.NewRequest(http.MethodGet, "/api/ip", nil)
	req.RemoteAddr = remoteAddr
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestForwardedForOnlyFromTrustedProxies(t *testing.T) {
	assert.Equal(t, "198.51.100.4", clientIP(newTestServer(), "198.51.100.4:5555", "203.0.113.9"))

	srv := newTestServer("10.0.0.0/8")
	assert.Equal(t, "203.0.113.9", clientIP(srv, "10.1.2.3:5555", "203.0.113.9"))
	assert.Equal(t, "198.51.100.4", clientIP(srv, "198.51.100.4:5555", "203.0.113.9"))

	assert.Equal(t, "198.51.100.4", clientIP(newTestServer("not-a-cidr"), "198.51.100.4:5555", "203.0.113.9"))
}
