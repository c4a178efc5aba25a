package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"marketplace/pkg/logger"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	codeTTL        = 5 * time.Minute
	resendInterval = time.Minute
)

var ErrTooFrequent = errors.New("please wait before sending again")

type OTPService interface {
	Send(ctx context.Context, mobile string) (string, error)
	Verify(ctx context.Context, mobile, code string) bool
}

type otpService struct {
	rdb       *redis.Client
	fixedCode string // 非生产环境的固定验证码，为空则随机生成
}

func NewOTPService(rdb *redis.Client, fixedCode string) OTPService {
	return &otpService{rdb: rdb, fixedCode: fixedCode}
}

func key(mobile string) string {
	return fmt.Sprintf("otp:%s", mobile)
}

// Send 生成并发送验证码
// 短信通道未接入，验证码写入 Redis 并记录日志
func (s *otpService) Send(ctx context.Context, mobile string) (string, error) {
	// 1. 频率限制：有效期 5 分钟，剩余 > 4 分钟说明 1 分钟内刚发过
	ttl, err := s.rdb.TTL(ctx, key(mobile)).Result()
	if err == nil && ttl > codeTTL-resendInterval {
		return "", ErrTooFrequent
	}

	// 2. 生成验证码
	code := s.fixedCode
	if code == "" {
		n, err := rand.Int(rand.Reader, big.NewInt(1000000))
		if err != nil {
			return "", err
		}
		code = fmt.Sprintf("%06d", n.Int64())
	}

	// 3. 存入 Redis
	if err := s.rdb.Set(ctx, key(mobile), code, codeTTL).Err(); err != nil {
		return "", err
	}

	logger.Log.Info("otp issued", zap.String("mobile", mobile))
	return code, nil
}

// Verify 验证验证码，成功后立即删除防止重放
func (s *otpService) Verify(ctx context.Context, mobile, code string) bool {
	val, err := s.rdb.Get(ctx, key(mobile)).Result()
	if err != nil {
		return false
	}

	if val == code {
		s.rdb.Del(ctx, key(mobile))
		return true
	}
	return false
}
