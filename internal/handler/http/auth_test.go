package http_test

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bondebut/tripchat/internal/domain"
	httphandler "github.com/Bondebut/tripchat/internal/handler/http"
	"github.com/Bondebut/tripchat/internal/repository"
	"github.com/Bondebut/tripchat/internal/repository/mocks"
	"github.com/Bondebut/tripchat/internal/service"
)

// newAuthRouter 组装带认证路由的测试 Router。
func newAuthRouter(t *testing.T, userRepo *mocks.UserRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService, err := service.NewAuthService(userRepo, "test-secret", 1)
	require.NoError(t, err)
	handler := httphandler.NewAuthHandler(authService)

	router := gin.New()
	router.POST("/api/auth/register", handler.Register)
	router.POST("/api/auth/login", handler.Login)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	router := newAuthRouter(t, mockUserRepo)
	mockUserRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil).Once()

	// Act
	w := doJSON(router, nethttp.MethodPost, "/api/auth/register", gin.H{
		"username": "traveler",
		"email":    "traveler@test.com",
		"password": "secret123",
	})

	// Assert
	assert.Equal(t, nethttp.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "User registered successfully", resp["message"])
	user, ok := resp["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "traveler", user["username"])
	assert.NotContains(t, user, "password", "响应中不得出现密码字段")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	router := newAuthRouter(t, mockUserRepo)

	w := doJSON(router, nethttp.MethodPost, "/api/auth/register", gin.H{
		"username": "x", // 太短
		"email":    "not-an-email",
		"password": "123",
	})

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	router := newAuthRouter(t, mockUserRepo)
	mockUserRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).Once()

	w := doJSON(router, nethttp.MethodPost, "/api/auth/register", gin.H{
		"username": "traveler",
		"email":    "taken@test.com",
		"password": "secret123",
	})

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	router := newAuthRouter(t, mockUserRepo)
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: "u-1", Username: "traveler", Email: "traveler@test.com", Password: string(hashed)}
	mockUserRepo.On("FindByEmail", mock.Anything, "traveler@test.com").Return(userInDb, nil).Once()

	// Act
	w := doJSON(router, nethttp.MethodPost, "/api/auth/login", gin.H{
		"email":    "traveler@test.com",
		"password": "secret123",
	})

	// Assert
	assert.Equal(t, nethttp.StatusOK, w.Code)
	var resp httphandler.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	router := newAuthRouter(t, mockUserRepo)
	mockUserRepo.On("FindByEmail", mock.Anything, "nobody@test.com").
		Return(nil, repository.ErrUserNotFound).Once()

	w := doJSON(router, nethttp.MethodPost, "/api/auth/login", gin.H{
		"email":    "nobody@test.com",
		"password": "whatever",
	})

	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	mockUserRepo.AssertExpectations(t)
}
