package handler

import (
	"bytes"
	"context"
	"errors"
	"marketplace/internal/domain/user/model"
	"marketplace/internal/domain/user/service"
	"marketplace/internal/pkg/otp"
	baseModel "marketplace/pkg/model"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) LoginOrRegister(ctx context.Context, mobile, code string) (*service.LoginResult, error) {
	args := m.Called(ctx, mobile, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockUserService) SendOTP(ctx context.Context, mobile string) error {
	args := m.Called(ctx, mobile)
	return args.Error(0)
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func setupRouter(svc service.UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewUserHandler(svc)
	r := gin.New()
	r.POST("/auth/otp", h.SendOTP)
	r.POST("/auth/login", h.Login)
	r.GET("/users/me", func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	}, h.Me)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendOTPHandler(t *testing.T) {
	t.Run("Sent", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("SendOTP", mock.Anything, "13800000001").Return(nil)
		w := post(setupRouter(svc), "/auth/otp", `{"mobile":"13800000001"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Too frequent", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("SendOTP", mock.Anything, "13800000001").Return(otp.ErrTooFrequent)
		w := post(setupRouter(svc), "/auth/otp", `{"mobile":"13800000001"}`)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("Invalid mobile", func(t *testing.T) {
		svc := new(MockUserService)
		w := post(setupRouter(svc), "/auth/otp", `{"mobile":"123"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"Wrong code", service.ErrInvalidCode, http.StatusUnauthorized},
		{"Banned", service.ErrAccountBanned, http.StatusForbidden},
		{"Deleted", service.ErrAccountDeleted, http.StatusForbidden},
		{"Database down", errors.New("dial tcp"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockUserService)
			svc.On("LoginOrRegister", mock.Anything, "13800000001", "123456").Return(nil, tc.err)
			w := post(setupRouter(svc), "/auth/login", `{"mobile":"13800000001","code":"123456"}`)
			assert.Equal(t, tc.code, w.Code)
		})
	}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("LoginOrRegister", mock.Anything, "13800000001", "123456").Return(&service.LoginResult{
			Token: "jwt-token",
			User:  &model.User{BaseModel: baseModel.BaseModel{ID: "u1"}, Role: model.RoleCustomer},
		}, nil)
		w := post(setupRouter(svc), "/auth/login", `{"mobile":"13800000001","code":"123456"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token":"jwt-token"`)
	})
}

func TestMeHandler(t *testing.T) {
	svc := new(MockUserService)
	svc.On("GetUser", mock.Anything, "u1").Return(nil, service.ErrUserNotFound)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
