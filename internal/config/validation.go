package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	switch strings.ToLower(strings.TrimSpace(c.App.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level %q is invalid (debug|info|warn|error)", c.App.LogLevel)
	}
	if err := c.Chat.validate(); err != nil {
		return err
	}
	if err := c.Model.validate(); err != nil {
		return err
	}
	return nil
}

func (c *ChatConfig) validate() error {
	if c.SessionTTL < 0 {
		return fmt.Errorf("chat.session_ttl must be >= 0")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("chat.sweep_interval must be >= 0")
	}
	if c.MaxMessageLen < 0 {
		return fmt.Errorf("chat.max_message_len must be >= 0")
	}
	return nil
}

func (m *ModelConfig) validate() error {
	if !m.Enabled {
		return nil
	}
	if strings.TrimSpace(m.Model) == "" {
		return fmt.Errorf("model.model cannot be empty when model.enabled")
	}
	if strings.TrimSpace(m.APIURL) == "" {
		return fmt.Errorf("model.api_url cannot be empty when model.enabled")
	}
	if strings.ToLower(strings.TrimSpace(m.Provider)) != "openai" {
		return fmt.Errorf("model.provider %q is not supported (only openai-compatible)", m.Provider)
	}
	if m.Temperature < 0 || m.Temperature > 2 {
		return fmt.Errorf("model.temperature must be within [0,2]")
	}
	return nil
}
