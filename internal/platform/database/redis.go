package database

import (
	"context"
	"fmt"

	"github.com/SlpAus/item-status-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// RDB 是一个全局的Redis客户端实例，仅在启用缓存时初始化
var RDB *redis.Client

// Ctx 是一个全局的上下文，用于Redis操作
var Ctx = context.Background()

// InitRedis 初始化与Redis的连接
func InitRedis(cfg config.RedisConfig) error {
	// 使用从配置文件加载的参数创建客户端
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用Ping命令来测试连接是否成功
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		return fmt.Errorf("无法连接到Redis: %w", err)
	}

	fmt.Println("Redis 连接成功！")
	return nil
}
