package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/SlpAus/item-status-backend/internal/platform/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是全局的gorm数据库句柄，供项目其他部分使用
// 只有在storage.driver为sqlite或postgres时才会被初始化
var DB *gorm.DB

// InitDB 根据配置初始化关系型数据库连接
func InitDB(cfg config.StorageConfig) error {
	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 在生产环境中可以设为Silent
			Colorful:      true,
		},
	)

	// 根据配置选择方言
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSqlite:
		dialector = sqlite.Open(cfg.Sqlite.Path)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN)
	default:
		return fmt.Errorf("存储驱动 '%s' 不是关系型数据库", cfg.Driver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 限制连接池规模，请求结束后连接归还池中复用
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("获取底层连接池失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	fmt.Println("数据库连接成功！")
	return nil
}
