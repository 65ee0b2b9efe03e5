package app

import (
	"fmt"
	"strings"
	"time"

	chcfg "chartmentor/internal/config"
	"chartmentor/internal/knowledge"
	"chartmentor/internal/logger"
)

type StartupSummary struct {
	HTTPAddr  string
	Knowledge KnowledgeSummary
	Session   SessionSummary
	Model     string
	Audit     string
}

type KnowledgeSummary struct {
	Source       string
	Patterns     []string
	RiskConcepts []string
	TradingTerms []string
}

type SessionSummary struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxMessageLen int
}

func newStartupSummary(cfg *chcfg.Config, kb *knowledge.Base) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr: cfg.App.HTTPAddr,
		Knowledge: KnowledgeSummary{
			Source:       cfg.Chat.KnowledgePath,
			Patterns:     kb.Patterns.Keys(),
			RiskConcepts: kb.RiskConcepts.Keys(),
			TradingTerms: kb.TradingTerms.Keys(),
		},
		Session: SessionSummary{
			TTL:           cfg.Chat.SessionTTL,
			SweepInterval: cfg.Chat.SweepInterval,
			MaxMessageLen: cfg.Chat.MaxMessageLen,
		},
		Model: "disabled",
		Audit: "disabled",
	}
	if s.Knowledge.Source == "" {
		s.Knowledge.Source = "(embedded)"
	}
	if cfg.Model.Enabled {
		s.Model = fmt.Sprintf("%s %s @ %s", cfg.Model.Provider, cfg.Model.Model, cfg.Model.APIURL)
	}
	if cfg.Audit.Enabled() {
		s.Audit = cfg.Audit.Path
	}
	return s
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("[知识库 (KNOWLEDGE)]\n")
	fmt.Fprintf(&b, "  来源: %s\n", s.Knowledge.Source)
	fmt.Fprintf(&b, "  形态: %s\n", formatList(s.Knowledge.Patterns))
	fmt.Fprintf(&b, "  风控: %s\n", formatList(s.Knowledge.RiskConcepts))
	fmt.Fprintf(&b, "  术语: %s\n\n", formatList(s.Knowledge.TradingTerms))

	b.WriteString("[会话 (SESSIONS)]\n")
	ttl := "never"
	if s.Session.TTL > 0 {
		ttl = s.Session.TTL.String()
	}
	fmt.Fprintf(&b, "  过期: %s\n", ttl)
	fmt.Fprintf(&b, "  清理间隔: %s\n", s.Session.SweepInterval)
	fmt.Fprintf(&b, "  最大消息长度: %d\n\n", s.Session.MaxMessageLen)

	b.WriteString("[服务 (SERVICES)]\n")
	fmt.Fprintf(&b, "  HTTP: %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  模型兜底: %s\n", s.Model)
	fmt.Fprintf(&b, "  审计日志: %s\n", s.Audit)
	b.WriteString(strings.Repeat("=", 80))
	return b.String()
}

func (s *StartupSummary) Print() {
	logger.InfoBlock(s.String())
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
