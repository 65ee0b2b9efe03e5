package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvConfigPath 指定配置文件路径。
	EnvConfigPath = "CHARTMENTOR_CONFIG"
	// EnvModelAPIKey 覆盖 model.api_key，密钥不应写入配置文件。
	EnvModelAPIKey = "CHARTMENTOR_MODEL_API_KEY"

	DefaultPath = "configs/config.yaml"
)

// Resolve 按环境变量或默认路径加载配置。默认路径不存在时退回内置默认值，
// 显式指定的路径不存在则报错。
func Resolve() (*Config, string, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigPath))
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if key := strings.TrimSpace(os.Getenv(EnvModelAPIKey)); key != "" {
				cfg.Model.APIKey = key
			}
			return cfg, "", nil
		}
		return nil, path, fmt.Errorf("config %s: %w", path, err)
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Load 读取 path 及其 include 链，应用默认值并校验。
func Load(path string) (*Config, error) {
	layers, err := resolveIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	for _, l := range layers {
		if err := v.MergeConfigMap(l.settings); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", l.path, err)
		}
	}
	if err := v.BindEnv("model.api_key", EnvModelAPIKey); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(explicitKeys(v))
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// explicitKeys 记录配置文件里出现过的 key，显式写出的零值不会被默认值覆盖。
func explicitKeys(v *viper.Viper) keySet {
	keys := make(keySet)
	for _, k := range v.AllKeys() {
		keys.mark(k)
	}
	return keys
}
