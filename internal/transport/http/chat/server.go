package chathttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"chartmentor/internal/analysis"
	"chartmentor/internal/knowledge"
	"chartmentor/internal/logger"
	"chartmentor/internal/session"
	"chartmentor/internal/store"

	"github.com/gin-gonic/gin"
)

// Server 提供 /api/chat 与 /api/analysis HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 chat HTTP 服务依赖。
type ServerConfig struct {
	Addr          string
	Sessions      *session.Manager
	Knowledge     *knowledge.Base
	Audit         store.ExchangeLog // nil 表示未启用审计
	MaxMessageLen int
	Detect        analysis.Options
}

// NewServer 构建 chat HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("chat http server requires a session manager")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": cfg.Sessions.Len()})
	})
	NewRouter(cfg).Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler 暴露底层 http.Handler，便于测试。
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// requestLogger 记录每个请求的耗时与状态码。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, c.Writer.Status(), client, time.Since(start))
	}
}

// apologyRecovery 把回复过程中的 panic 转成固定的致歉回复。
func apologyRecovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Errorf("chat: 处理消息失败 path=%s err=%v", c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusOK, messageResponse{
			Reply:     Apology,
			Bucket:    "error",
			SessionID: c.Param("id"),
		})
	})
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("chat http 监听 %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
