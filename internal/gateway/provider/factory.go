package provider

import (
	"fmt"
	"strings"
	"time"

	"chartmentor/internal/logger"
)

// ModelCfg is the subset of configuration needed to build a provider. Its
// values are already resolved by the config layer, zeros included.
type ModelCfg struct {
	ID, Provider, APIURL, APIKey, Model string
	Enabled                             bool
	Headers                             map[string]string
	Temperature                         float64
	MaxRetries                          int
}

// BuildProvider returns nil when the model is disabled.
func BuildProvider(m ModelCfg, timeout time.Duration) ModelProvider {
	if !m.Enabled {
		return nil
	}
	id := strings.TrimSpace(m.ID)
	if id == "" {
		base := strings.TrimSpace(m.Provider)
		if base == "" {
			base = "provider"
		}
		if model := strings.TrimSpace(m.Model); model != "" {
			id = fmt.Sprintf("%s:%s", base, model)
		} else {
			id = base
		}
		logger.Warnf("model.id 未配置，已为 %q 生成 ID: %s", m.Provider, id)
	}
	temperature, retries := m.Temperature, m.MaxRetries
	client := &OpenAIChatClient{
		BaseURL:      m.APIURL,
		APIKey:       m.APIKey,
		Model:        m.Model,
		Temperature:  &temperature,
		MaxRetries:   &retries,
		ExtraHeaders: m.Headers,
		Timeout:      timeout,
	}
	return NewOpenAIModelProvider(id, client)
}
