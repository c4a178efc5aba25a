package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace/internal/domain/user/model"
	"marketplace/internal/pkg/config"
	"marketplace/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.GlobalConfig.JWT.Secret = strings.Repeat("m", 32)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": CurrentUserID(c), "admin": IsAdmin(c)})
	})
	r.GET("/payouts", AuthMiddleware(), RequireRole(model.RoleSeller, model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", AuthMiddleware(), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func request(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID, role string) string {
	token, _, err := utils.GenerateToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter()

	t.Run("Valid token", func(t *testing.T) {
		w := request(r, "/me", bearer(t, "user-1", model.RoleCustomer))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userId":"user-1","admin":false}`, w.Body.String())
	})

	t.Run("Missing header", func(t *testing.T) {
		w := request(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Wrong scheme", func(t *testing.T) {
		w := request(r, "/me", "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Garbage token", func(t *testing.T) {
		w := request(r, "/me", "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter()

	assert.Equal(t, http.StatusNoContent, request(r, "/payouts", bearer(t, "s1", model.RoleSeller)).Code)
	assert.Equal(t, http.StatusNoContent, request(r, "/payouts", bearer(t, "a1", model.RoleAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, request(r, "/payouts", bearer(t, "c1", model.RoleCustomer)).Code)

	assert.Equal(t, http.StatusNoContent, request(r, "/admin", bearer(t, "a1", model.RoleAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, request(r, "/admin", bearer(t, "s1", model.RoleSeller)).Code)
}
