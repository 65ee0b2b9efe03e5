package config

import (
	"strings"
	"time"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9991"
	defaultSessionTTL       = 30 * time.Minute
	defaultSweepInterval    = time.Minute
	defaultMaxMessageLen    = 2000
	defaultModelProvider    = "openai"
	defaultModelTimeout     = 20
	defaultModelTemperature = 0.4
	defaultModelRetries     = 2
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = time.Minute
)

// Default 返回只含默认值的配置，用于未提供配置文件的场景。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(nil)
	return &cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Chat.applyDefaults(keys)
	c.Model.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (c *ChatConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		durationFieldDefault("chat.session_ttl", &c.SessionTTL, defaultSessionTTL),
		durationFieldDefault("chat.sweep_interval", &c.SweepInterval, defaultSweepInterval),
		fieldDefault{
			key:   "chat.max_message_len",
			need:  func() bool { return c.MaxMessageLen <= 0 },
			apply: func() { c.MaxMessageLen = defaultMaxMessageLen },
		},
	)
	c.KnowledgePath = strings.TrimSpace(c.KnowledgePath)
}

func (m *ModelConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("model.provider", &m.Provider, defaultModelProvider),
		fieldDefault{
			key:   "model.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultModelTimeout },
		},
		fieldDefault{
			key:   "model.temperature",
			need:  func() bool { return m.Temperature == 0 },
			apply: func() { m.Temperature = defaultModelTemperature },
		},
		fieldDefault{
			key:   "model.max_retries",
			need:  func() bool { return m.MaxRetries == 0 },
			apply: func() { m.MaxRetries = defaultModelRetries },
		},
		fieldDefault{
			key:   "model.breaker_threshold",
			need:  func() bool { return m.BreakerThreshold <= 0 },
			apply: func() { m.BreakerThreshold = defaultBreakerThreshold },
		},
		durationFieldDefault("model.breaker_cooldown", &m.BreakerCooldown, defaultBreakerCooldown),
	)
	if m.MaxRetries < 0 {
		m.MaxRetries = 0
	}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func durationFieldDefault(key string, target *time.Duration, def time.Duration) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
