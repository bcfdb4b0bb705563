package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sports-academy-api/internal/models"
	"github.com/noah-isme/sports-academy-api/internal/service"
	appErrors "github.com/noah-isme/sports-academy-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/items/:id", handlers...)
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleParent}}
	r := newRouter(JWT(validator))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "bearer good", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, serve(r, tc.header).Code)
		})
	}
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	var seen bool
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u-1"}}
	r := newRouter(OptionalJWT(validator), func(c *gin.Context) {
		_, seen = c.Get(ContextUserKey)
	})

	assert.Equal(t, http.StatusOK, serve(r, "Bearer bad").Code)
	assert.False(t, seen)
	assert.Equal(t, http.StatusOK, serve(r, "Bearer good").Code)
	assert.True(t, seen)
}

func TestRequireRoles(t *testing.T) {
	admin := stubValidator{claims: &models.JWTClaims{UserID: "a-1", Role: models.RoleAdmin}}
	school := stubValidator{claims: &models.JWTClaims{UserID: "s-1", Role: models.RoleSchool}}

	assert.Equal(t, http.StatusOK, serve(newRouter(JWT(admin), RequireRoles(models.RoleAdmin)), "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(newRouter(JWT(school), RequireRoles(models.RoleAdmin)), "Bearer good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RequireRoles(models.RoleAdmin)), "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { metrics.Handler().ServeHTTP(c.Writer, c.Request) })

	serve(r, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere/at/all", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/items/:id",status="200"} 1`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.False(t, strings.Contains(body, `path="/metrics"`))
	assert.False(t, strings.Contains(body, "/nowhere"))
}

func TestAuditLogsActor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleSchool}}
	r := newRouter(JWT(validator), Audit(zap.New(core), "checkout.cancel"))

	serve(r, "Bearer good")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request completed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "checkout.cancel", fields["action"])
	assert.Equal(t, "42", fields["resource_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "SCHOOL", fields["role"])
}
