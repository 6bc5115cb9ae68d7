package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"flashpoint/pkg/ai"
	"flashpoint/pkg/core"
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Proto string `yaml:"proto"`

	// Scenario 场景文件路径，为空时使用默认场景
	Scenario string `yaml:"scenario"`

	// AutoStep 自动推进间隔，0 表示只在收到 step 请求时推进
	AutoStep time.Duration `yaml:"auto_step"`

	// 每个连接的 step/steps 请求限速
	StepRate  float64 `yaml:"step_rate"`
	StepBurst int     `yaml:"step_burst"`

	NATSURL    string `yaml:"nats_url"`
	SQLitePath string `yaml:"sqlite_path"`

	Policy ai.Config `yaml:"policy"`
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8080",
		Proto:     "tcp",
		StepRate:  20,
		StepBurst: 5,
		Policy:    ai.DefaultConfig,
	}
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// LoadServer 读取服务器配置，文件中缺省的字段保留默认值
func LoadServer(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, fmt.Errorf("读取服务器配置 %s: %w", path, err)
	}
	if cfg.Proto != "tcp" && cfg.Proto != "kcp" {
		return cfg, fmt.Errorf("不支持的协议: %s", cfg.Proto)
	}
	if cfg.StepRate <= 0 || cfg.StepBurst <= 0 {
		return cfg, fmt.Errorf("step_rate/step_burst 必须为正数")
	}
	return cfg, nil
}

// LoadScenario 读取场景配置，覆盖在 core.DefaultConfig 之上
// path 为空时直接返回默认场景
func LoadScenario(path string) (core.Config, error) {
	cfg := core.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, fmt.Errorf("读取场景配置 %s: %w", path, err)
	}
	return cfg, nil
}
