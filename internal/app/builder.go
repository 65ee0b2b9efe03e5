package app

import (
	"context"
	"fmt"

	"chartmentor/internal/analysis"
	chcfg "chartmentor/internal/config"
	"chartmentor/internal/gateway/provider"
	"chartmentor/internal/knowledge"
	"chartmentor/internal/logger"
	"chartmentor/internal/pkg/circuit"
	"chartmentor/internal/responder"
	"chartmentor/internal/session"
	"chartmentor/internal/store"
	"chartmentor/internal/store/gormstore"
	chathttp "chartmentor/internal/transport/http/chat"
)

type AppBuilder struct {
	cfg *chcfg.Config

	knowledgeFn func(string) (*knowledge.Base, error)
	modelFn     func(chcfg.ModelConfig) provider.ModelProvider
	auditFn     func(chcfg.AuditConfig) (store.ExchangeLog, error)
	httpFn      func(chathttp.ServerConfig) (*chathttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithModelProvider 替换模型兜底（测试用）。
func WithModelProvider(fn func(chcfg.ModelConfig) provider.ModelProvider) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.modelFn = fn
		}
	}
}

// WithAuditStore 替换审计存储构造。
func WithAuditStore(fn func(chcfg.AuditConfig) (store.ExchangeLog, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.auditFn = fn
		}
	}
}

func NewAppBuilder(cfg *chcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		knowledgeFn: knowledge.LoadFile,
		modelFn:     buildModelProvider,
		auditFn:     buildAuditStore,
		httpFn:      chathttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(_ context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	kb, err := b.knowledgeFn(cfg.Chat.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("加载知识库失败: %w", err)
	}
	logger.Infof("✓ 知识库: patterns=%d risk=%d terms=%d", kb.Patterns.Len(), kb.RiskConcepts.Len(), kb.TradingTerms.Len())

	factory := b.responderFactory(kb)
	sessions := session.NewManager(factory, cfg.Chat.SessionTTL)

	audit, err := b.auditFn(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("初始化审计存储失败: %w", err)
	}

	server, err := b.httpFn(chathttp.ServerConfig{
		Addr:          cfg.App.HTTPAddr,
		Sessions:      sessions,
		Knowledge:     kb,
		Audit:         audit,
		MaxMessageLen: cfg.Chat.MaxMessageLen,
		Detect:        analysis.DefaultOptions(),
	})
	if err != nil {
		if audit != nil {
			_ = audit.Close()
		}
		return nil, fmt.Errorf("初始化 chat HTTP 失败: %w", err)
	}

	return &App{
		cfg:      cfg,
		sessions: sessions,
		http:     server,
		audit:    audit,
		Summary:  newStartupSummary(cfg, kb),
	}, nil
}

// responderFactory 为每个新会话构造 responder；模型与熔断器在会话间共享。
func (b *AppBuilder) responderFactory(kb *knowledge.Base) session.Factory {
	model := b.modelFn(b.cfg.Model)
	if model == nil {
		return func() *responder.Responder { return responder.New(kb) }
	}
	breaker := circuit.NewCircuitBreaker(model.ID(), b.cfg.Model.BreakerThreshold, b.cfg.Model.BreakerCooldown)
	timeout := b.cfg.Model.Timeout()
	logger.Infof("✓ 模型兜底已启用: %s (timeout=%s)", model.ID(), timeout)
	return func() *responder.Responder {
		return responder.New(kb, responder.WithModel(model, timeout, breaker))
	}
}

func buildModelProvider(m chcfg.ModelConfig) provider.ModelProvider {
	return provider.BuildProvider(provider.ModelCfg{
		ID:          m.ID,
		Provider:    m.Provider,
		APIURL:      m.APIURL,
		APIKey:      m.APIKey,
		Model:       m.Model,
		Enabled:     m.Enabled,
		Headers:     m.Headers,
		Temperature: m.Temperature,
		MaxRetries:  m.MaxRetries,
	}, m.Timeout())
}

func buildAuditStore(cfg chcfg.AuditConfig) (store.ExchangeLog, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	st, err := gormstore.NewAuditStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	logger.Infof("✓ 审计日志: %s", cfg.Path)
	return st, nil
}
