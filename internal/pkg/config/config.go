package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	App         AppConfig         `mapstructure:"app"`
	Commission  CommissionConfig  `mapstructure:"commission"`
	Shipping    ShippingConfig    `mapstructure:"shipping"`
	Pix         PixConfig         `mapstructure:"pix"`
	MercadoPago MercadoPagoConfig `mapstructure:"mercadopago"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Events      EventsConfig      `mapstructure:"events"`
	Push        PushConfig        `mapstructure:"push"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// DSN gorm/pgx 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone)
}

// URL golang-migrate 使用的 URL 形式
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	Debug       bool   `mapstructure:"debug"`
	TestOTPCode string `mapstructure:"test_otp_code"`
}

// IsProduction 是否生产环境
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// CommissionConfig 平台佣金
type CommissionConfig struct {
	DefaultRate float64 `mapstructure:"default_rate"` // 0.05 = 5%
}

// ShippingConfig 运费配置 (金额单位与订单一致)
type ShippingConfig struct {
	DefaultCost string            `mapstructure:"default_cost"`
	PerItemCost string            `mapstructure:"per_item_cost"`
	FreeAbove   string            `mapstructure:"free_above"` // 为空表示不包邮
	Regions     map[string]string `mapstructure:"regions"`    // 州/地区 -> 基础运费
}

// PixConfig PIX 支付
type PixConfig struct {
	DefaultProvider string        `mapstructure:"default_provider"` // mercadopago / stripe / simulated
	Expiration      time.Duration `mapstructure:"expiration"`
}

type MercadoPagoConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	AccessToken   string  `mapstructure:"access_token"`
	WebhookSecret string  `mapstructure:"webhook_secret"`
	NotifyURL     string  `mapstructure:"notify_url"`
	RPS           float64 `mapstructure:"rps"` // 出站请求限速
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// RateLimitConfig 敏感接口限流（固定窗口）
type RateLimitConfig struct {
	Backend string        `mapstructure:"backend"` // memory / redis
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

// EventsConfig 领域事件投递
type EventsConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Workers    int      `mapstructure:"workers"`
	BufferSize int      `mapstructure:"buffer_size"`
}

type PushConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	AppKey          int64  `mapstructure:"app_key"`
	RegionID        string `mapstructure:"region_id"` // e.g., "cn-hangzhou"
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"` // OTLP HTTP endpoint, 为空则关闭
	ServiceName string `mapstructure:"service_name"`
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 数据库配置验证
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	// Redis 配置验证
	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Commission.DefaultRate < 0 || c.Commission.DefaultRate >= 1 {
		return fmt.Errorf("commission.default_rate must be in [0, 1), got %v", c.Commission.DefaultRate)
	}

	switch c.Pix.DefaultProvider {
	case "mercadopago", "stripe", "simulated":
	default:
		return fmt.Errorf("unknown pix.default_provider %q", c.Pix.DefaultProvider)
	}
	if c.Pix.Expiration <= 0 {
		return errors.New("pix.expiration must be positive")
	}

	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}

	return nil
}

// setDefaults 默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("jwt.expire", 24*30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)
	v.SetDefault("commission.default_rate", 0.05)
	v.SetDefault("shipping.default_cost", "15.00")
	v.SetDefault("shipping.per_item_cost", "2.00")
	v.SetDefault("pix.default_provider", "simulated")
	v.SetDefault("pix.expiration", 30*time.Minute)
	v.SetDefault("mercadopago.base_url", "https://api.mercadopago.com")
	v.SetDefault("mercadopago.rps", 10)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.limit", 5)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("events.topic", "marketplace.events")
	v.SetDefault("events.workers", 4)
	v.SetDefault("events.buffer_size", 1000)
	v.SetDefault("tracing.service_name", "marketplace")
}

// LoadConfig 加载配置
func LoadConfig() {
	// .env 仅用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量: DATABASE_HOST -> database.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 兼容常用的简写环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		GlobalConfig.JWT.Secret = jwtSecret
	}
	if os.Getenv("APP_ENV") != "" {
		GlobalConfig.App.Env = env
	}

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
