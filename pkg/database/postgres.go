package database

import (
	"database/sql"
	"marketplace/internal/pkg/config"
	"marketplace/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库连接
// 表结构由 cmd/migrate 管理，这里不做 AutoMigrate
func InitDatabase(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := gormLogger.Warn
	if debug {
		logLevel = gormLogger.Info
	}

	gormConfig := &gorm.Config{
		Logger:                                   gormLogger.Default.LogMode(logLevel),
		PrepareStmt:                              true, // 预编译 SQL 缓存
		TranslateError:                           true, // 唯一键冲突转换为 gorm.ErrDuplicatedKey
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, err
	}

	// 获取底层 SQL DB 对象以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	configureConnectionPool(sqlDB)

	return db, nil
}

// configureConnectionPool 配置数据库连接池
func configureConnectionPool(sqlDB *sql.DB) {
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(10) // 推荐 SetMaxOpenConns 的 10%
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	logger.Log.Info("database connection pool configured",
		zap.Int("max_open", 100),
		zap.Int("max_idle", 10),
	)
}
