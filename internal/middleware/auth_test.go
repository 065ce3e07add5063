package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bondebut/tripchat/internal/domain"
	"github.com/Bondebut/tripchat/internal/middleware"
	"github.com/Bondebut/tripchat/internal/repository/mocks"
	"github.com/Bondebut/tripchat/internal/service"
)

// issueToken 通过真实的 Login 流程签发测试 Token。
func issueToken(t *testing.T, authService *service.AuthService, repo *mocks.UserRepository) string {
	t.Helper()
	ctx := context.Background()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.DefaultCost)
	user := &domain.User{ID: "u-1", Username: "alice", Email: "alice@test.com", Password: string(hashed)}
	repo.On("FindByEmail", ctx, "alice@test.com").Return(user, nil).Once()

	token, err := authService.Login(ctx, "alice@test.com", "pw")
	require.NoError(t, err)
	return token
}

func newProtectedRouter(authService *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", middleware.Auth(authService), func(c *gin.Context) {
		identity, ok := middleware.IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "username": identity.Username})
	})
	return router
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(mockUserRepo, "mw-secret", 1)
	require.NoError(t, err)
	router := newProtectedRouter(authService)
	token := issueToken(t, authService, mockUserRepo)

	// Act
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Assert: 身份被注入下游处理器
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-1")
	assert.Contains(t, w.Body.String(), "alice")
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "mw-secret", 1)
	router := newProtectedRouter(authService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "mw-secret", 1)
	router := newProtectedRouter(authService)

	cases := []string{
		"bogus-token-without-scheme",
		"Basic dXNlcjpwYXNz",
		"Bearer",
	}
	for _, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "头格式 %q 应被拒绝", header)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "mw-secret", 1)
	router := newProtectedRouter(authService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.real.jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
