package serverconfig

import (
	"os"
	"sync/atomic"

	"Vikings/internal/shared/config"
)

var current atomic.Pointer[Config]

// Conf 返回当前配置快照，热更新后自动切换。
func Conf() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	return &Config{}
}

// Load 读取 configs/conf.yml；path 非空时优先使用。
func Load(path string) *Config {
	var raw Config
	config.Load(path, &raw, func() {
		snapshot := raw
		current.Store(&snapshot)
	})
	snapshot := raw
	current.Store(&snapshot)

	// 环境变量优先，未设置时回填配置里的 jwt_secret。
	if os.Getenv("JWT_SECRET") == "" && raw.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", raw.JWTSecret)
	}
	return &snapshot
}
