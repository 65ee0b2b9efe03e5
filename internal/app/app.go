package app

import (
	"context"
	"fmt"

	chcfg "chartmentor/internal/config"
	"chartmentor/internal/logger"
	"chartmentor/internal/session"
	"chartmentor/internal/store"
	chathttp "chartmentor/internal/transport/http/chat"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与会话清理。
type App struct {
	cfg      *chcfg.Config
	sessions *session.Manager
	http     *chathttp.Server
	audit    store.ExchangeLog
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *chcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务与会话清理，直到 ctx 取消或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("chat http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return a.sessions.Run(ctx, a.cfg.Chat.SweepInterval)
	})
	return group.Wait()
}

// Close 释放审计存储。
func (a *App) Close() {
	if a == nil || a.audit == nil {
		return
	}
	if err := a.audit.Close(); err != nil {
		logger.Warnf("关闭审计存储失败: %v", err)
	}
	a.audit = nil
}

// Sessions exposes the session manager (for tests and embedding).
func (a *App) Sessions() *session.Manager {
	if a == nil {
		return nil
	}
	return a.sessions
}
