package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SlpAus/item-status-backend/api"
	"github.com/SlpAus/item-status-backend/internal/item"
	"github.com/SlpAus/item-status-backend/internal/platform/config"
	"github.com/SlpAus/item-status-backend/internal/platform/health"
	"github.com/SlpAus/item-status-backend/internal/platform/shutdown"
	"github.com/SlpAus/item-status-backend/pkg/lifecycle"
	"github.com/joho/godotenv"
)

func main() {
	// 1. 加载.env文件（本地开发时使用；不存在则忽略）
	_ = godotenv.Load()

	// 2. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("配置加载失败，无法启动: %v", err))
	}

	// 3. 初始化item模块（存储后端、表迁移、缓存预热）
	if err := item.Setup(cfg); err != nil {
		panic(fmt.Sprintf("item模块初始化失败，无法启动: %v", err))
	}

	// 4. 启用缓存时，阻塞式获取初始Run ID，并异步启动健康检查器
	manager := lifecycle.NewManager()
	if cfg.Cache.Enabled {
		if err := health.InitializeRunID(); err != nil {
			panic(fmt.Sprintf("%v，请检查Redis服务", err))
		}
		manager.Go("redis-health-checker", health.RunChecker)
	}

	// 5. 创建gin引擎并注册路由
	r := api.NewRouter(cfg)

	// 6. 启动服务器，并等待停机信号
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic("Failed to start server: " + err.Error())
		}
	}()

	fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
	shutdown.ListenForSignalsAndShutdown(server, manager)
}
