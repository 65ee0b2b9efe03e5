package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// layer 是 include 链中的一个文件及其内容。
type layer struct {
	path     string
	settings map[string]any
}

// includeResolver 深度优先展开 include：被包含的文件排在包含者之前，
// 同一文件只读取一次。
type includeResolver struct {
	visiting map[string]bool
	done     map[string]bool
	layers   []layer
}

func resolveIncludes(path string) ([]layer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r := &includeResolver{visiting: map[string]bool{}, done: map[string]bool{}}
	if err := r.visit(root); err != nil {
		return nil, err
	}
	return r.layers, nil
}

func (r *includeResolver) visit(path string) error {
	path = filepath.Clean(path)
	if r.visiting[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if r.done[path] {
		return nil
	}
	r.visiting[path] = true

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	includes, err := includeList(v.Get("include"))
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := r.visit(inc); err != nil {
			return err
		}
	}

	delete(r.visiting, path)
	r.done[path] = true
	r.layers = append(r.layers, layer{path: path, settings: v.AllSettings()})
	return nil
}

// includeList 接受字符串或字符串数组。
func includeList(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("include must be a string or string array: %w", err)
	}
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
