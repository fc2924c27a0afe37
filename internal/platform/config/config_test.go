package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	// 测试目录下没有config.yaml，应完全落到默认值
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("期望默认监听:8080，得到 %q", cfg.Server.Address)
	}
	if cfg.Storage.Driver != DriverSqlite {
		t.Errorf("期望默认驱动sqlite，得到 %q", cfg.Storage.Driver)
	}
	if cfg.Storage.TimeoutSeconds != 5 {
		t.Errorf("期望默认超时5秒，得到 %d", cfg.Storage.TimeoutSeconds)
	}
	if cfg.Cache.Enabled {
		t.Error("缓存默认应关闭")
	}
	if len(cfg.Server.Cors.AllowedOrigins) != 1 || cfg.Server.Cors.AllowedOrigins[0] != "*" {
		t.Errorf("期望默认允许任意来源，得到 %v", cfg.Server.Cors.AllowedOrigins)
	}
}
