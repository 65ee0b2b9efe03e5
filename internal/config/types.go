package config

import (
	"strings"
	"time"
)

// Config 是 chartmentor 的主配置载体。
type Config struct {
	App   AppConfig   `toml:"app"`
	Chat  ChatConfig  `toml:"chat"`
	Model ModelConfig `toml:"model"`
	Audit AuditConfig `toml:"audit"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// ChatConfig 控制知识库来源与会话生命周期。
type ChatConfig struct {
	KnowledgePath string        `toml:"knowledge_path"` // 为空时使用内置知识库
	SessionTTL    time.Duration `toml:"session_ttl"`    // 0 表示会话常驻
	SweepInterval time.Duration `toml:"sweep_interval"`
	MaxMessageLen int           `toml:"max_message_len"`
}

// ModelConfig 描述 Unknown 分支可选的模型兜底。
type ModelConfig struct {
	Enabled          bool              `toml:"enabled"`
	ID               string            `toml:"id"`
	Provider         string            `toml:"provider"`
	APIURL           string            `toml:"api_url"`
	APIKey           string            `toml:"api_key"`
	Model            string            `toml:"model"`
	Headers          map[string]string `toml:"headers"`
	TimeoutSeconds   int               `toml:"timeout_seconds"`
	Temperature      float64           `toml:"temperature"`
	MaxRetries       int               `toml:"max_retries"`
	BreakerThreshold int               `toml:"breaker_threshold"`
	BreakerCooldown  time.Duration     `toml:"breaker_cooldown"`
	LogPath          string            `toml:"log_path"`
	DumpPayload      bool              `toml:"dump_payload"`
}

// Timeout 返回单次调用的超时。
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// AuditConfig 为空 path 时不落库。
type AuditConfig struct {
	Path string `toml:"path"`
}

func (a AuditConfig) Enabled() bool {
	return strings.TrimSpace(a.Path) != ""
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 只在配置文件未显式给出该 key 时生效。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
