package item

import (
	"fmt"

	"github.com/SlpAus/item-status-backend/internal/platform/config"
	"github.com/SlpAus/item-status-backend/internal/platform/database"
)

// Setup 初始化item模块：接线存储后端、迁移表结构、按需预热缓存。
// 必要配置缺失时不会失败，而是接线一个对每个请求返回配置错误的存储，
// 与托管函数时代"缺环境变量=每个请求500"的行为保持一致。
func Setup(cfg *config.Config) error {
	storageTimeout = cfg.Storage.Timeout()

	switch cfg.Storage.Driver {
	case config.DriverSqlite, config.DriverPostgres:
		if cfg.Storage.Driver == config.DriverPostgres && cfg.Storage.Postgres.DSN == "" {
			repo = NewUnavailableRepository(fmt.Errorf("missing storage.postgres.dsn in configuration"))
			fmt.Println("警告: storage.postgres.dsn 未配置，所有请求将返回配置错误。")
			return nil
		}
		if err := database.InitDB(cfg.Storage); err != nil {
			return err
		}
		if err := migrateDB(); err != nil {
			return err
		}
		repo = NewGormRepository(database.DB)

	case config.DriverSupabase:
		supabaseRepo, err := NewSupabaseRepository(
			cfg.Storage.Supabase.URL,
			cfg.Storage.Supabase.ServiceKey,
			cfg.Storage.Timeout(),
		)
		if err != nil {
			repo = NewUnavailableRepository(err)
			fmt.Printf("警告: Supabase后端配置不完整，所有请求将返回配置错误: %v\n", err)
			return nil
		}
		repo = supabaseRepo

	default:
		return fmt.Errorf("未知的存储驱动: '%s'", cfg.Storage.Driver)
	}

	baseRepo = repo

	// 按需接线Redis读缓存
	if cfg.Cache.Enabled {
		if err := database.InitRedis(cfg.Cache.Redis); err != nil {
			return err
		}
		if err := WarmupCache(); err != nil {
			return err
		}
		repo = NewCachedRepository(baseRepo)
	}

	return nil
}

// migrateDB 负责自动迁移数据库表结构
func migrateDB() error {
	if err := database.DB.AutoMigrate(&ItemState{}); err != nil {
		return fmt.Errorf("无法迁移item_states表: %w", err)
	}
	fmt.Println("item_states数据库表迁移成功。")
	return nil
}
