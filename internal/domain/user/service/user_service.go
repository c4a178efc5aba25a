package service

import (
	"context"
	"errors"
	"marketplace/internal/domain/user/model"
	"marketplace/internal/domain/user/repository"
	"marketplace/internal/pkg/otp"
	"marketplace/pkg/utils"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidCode    = errors.New("invalid verification code")
	ErrAccountBanned  = errors.New("account is banned")
	ErrAccountDeleted = errors.New("account has been deleted")
	ErrUserNotFound   = errors.New("user not found")
)

// LoginResult 登录结果
type LoginResult struct {
	Token    string      `json:"token"`
	ExpireAt *time.Time  `json:"expireAt"`
	User     *model.User `json:"user"`
}

// UserService 用户服务接口
type UserService interface {
	LoginOrRegister(ctx context.Context, mobile, code string) (*LoginResult, error)
	SendOTP(ctx context.Context, mobile string) error
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// userService 实现
type userService struct {
	repo repository.UserRepository
	otp  otp.OTPService
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, otp otp.OTPService) UserService {
	return &userService{repo: repo, otp: otp}
}

// LoginOrRegister 登录或注册，新用户默认为买家
func (s *userService) LoginOrRegister(ctx context.Context, mobile, code string) (*LoginResult, error) {
	// 1. 验证验证码
	if !s.otp.Verify(ctx, mobile, code) {
		return nil, ErrInvalidCode
	}

	// 2. 查询用户是否存在
	user, err := s.repo.GetByMobile(ctx, mobile)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// 3. 不存在则注册
		name := mobile
		if len(mobile) > 4 {
			name = "User_" + mobile[len(mobile)-4:]
		}
		user = &model.User{
			Mobile: mobile,
			Name:   name,
			Role:   model.RoleCustomer,
			Status: model.StatusNormal,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	// 4. 检查用户状态
	if user.Status == model.StatusBanned {
		if user.BannedUntil == nil || time.Now().Before(*user.BannedUntil) {
			return nil, ErrAccountBanned
		}
		user.Status = model.StatusNormal
		user.BannedUntil = nil
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	if user.Status == model.StatusDeleted {
		return nil, ErrAccountDeleted
	}

	// 5. 生成 Token
	token, expireAt, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpireAt: expireAt, User: user}, nil
}

func (s *userService) SendOTP(ctx context.Context, mobile string) error {
	_, err := s.otp.Send(ctx, mobile)
	return err
}

// GetUser 获取单个用户
func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
