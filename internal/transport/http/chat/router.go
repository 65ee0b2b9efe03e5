package chathttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"chartmentor/internal/analysis"
	"chartmentor/internal/knowledge"
	"chartmentor/internal/logger"
	"chartmentor/internal/pkg/text"
	"chartmentor/internal/session"
	"chartmentor/internal/store"

	"github.com/gin-gonic/gin"
)

// Router 暴露会话、分析与知识库查询接口。
type Router struct {
	sessions      *session.Manager
	kb            *knowledge.Base
	audit         store.ExchangeLog
	maxMessageLen int
	detect        analysis.Options
}

// NewRouter 构造 chat HTTP router。
func NewRouter(cfg ServerConfig) *Router {
	kb := cfg.Knowledge
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Router{
		sessions:      cfg.Sessions,
		kb:            kb,
		audit:         cfg.Audit,
		maxMessageLen: cfg.MaxMessageLen,
		detect:        cfg.Detect,
	}
}

// Register 将路由挂载到 /api 分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	chat := group.Group("/chat")
	chat.POST("/sessions", r.handleCreateSession)
	chat.POST("/sessions/:id/messages", apologyRecovery(), r.handleMessage)
	chat.GET("/sessions/:id/transcript", r.handleTranscript)
	chat.PUT("/sessions/:id/analysis", r.handleSetAnalysis)
	chat.DELETE("/sessions/:id/analysis", r.handleClearAnalysis)
	chat.GET("/topics", r.handleTopics)
	chat.GET("/history/:id", r.handleHistory)

	group.POST("/analysis/detect", r.handleDetect)
}

func (r *Router) handleCreateSession(c *gin.Context) {
	s := r.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID, "created_at": s.CreatedAt})
}

func (r *Router) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message cannot be empty"})
		return
	}
	if r.maxMessageLen > 0 && utf8.RuneCountInString(msg) > r.maxMessageLen {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too long", "max": r.maxMessageLen})
		return
	}
	attached, err := decodeAnalysis(req.Analysis)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis"})
		return
	}
	s, created := r.sessions.Ensure(c.Param("id"))
	if created {
		logger.Debugf("chat: 新会话 %s", s.ID)
	}
	if attached != nil {
		s.SetAnalysis(attached)
	}

	res := s.Analysis()
	reply := s.Responder().Answer(c.Request.Context(), req.Message, res)
	logger.Debugf("chat: session=%s bucket=%s msg=%q", s.ID, reply.Bucket, text.Truncate(msg, 80))
	r.record(c, s.ID, req.Message, reply.Text, string(reply.Bucket), reply.Topic, reply.FromModel, res)

	c.JSON(http.StatusOK, messageResponse{
		Reply:     reply.Text,
		Bucket:    string(reply.Bucket),
		Topic:     reply.Topic,
		FromModel: reply.FromModel,
		SessionID: s.ID,
	})
}

func (r *Router) record(c *gin.Context, sessionID, utterance, reply, bucket, topic string, fromModel bool, res *analysis.Result) {
	if r.audit == nil {
		return
	}
	rec := store.ExchangeRecord{
		SessionID: sessionID,
		Bucket:    bucket,
		Topic:     topic,
		FromModel: fromModel,
		Utterance: utterance,
		Reply:     reply,
	}
	if res != nil {
		if raw, err := json.Marshal(res); err == nil {
			rec.Analysis = raw
		}
	}
	if err := r.audit.Record(c.Request.Context(), rec); err != nil {
		logger.Warnf("chat: 审计写入失败 session=%s err=%v", sessionID, err)
	}
}

func (r *Router) handleTranscript(c *gin.Context) {
	s, ok := r.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"entries":    s.Responder().Transcript().Entries(),
		"analysis":   s.Analysis(),
	})
}

func (r *Router) handleSetAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res := req.Analysis
	if !res.Usable() {
		res = nil
		if len(req.Candles) > 0 {
			if found, ok := analysis.Detect(req.Candles, r.detect); ok {
				res = &found
			}
		}
	}
	if res == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no pattern found"})
		return
	}
	s, _ := r.sessions.Ensure(c.Param("id"))
	s.SetAnalysis(res)
	c.JSON(http.StatusOK, gin.H{"session_id": s.ID, "analysis": res})
}

func (r *Router) handleClearAnalysis(c *gin.Context) {
	s, ok := r.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	s.SetAnalysis(nil)
	c.Status(http.StatusNoContent)
}

func (r *Router) handleDetect(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, ok := analysis.Detect(req.Candles, r.detect)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no pattern found"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleTopics(c *gin.Context) {
	c.JSON(http.StatusOK, r.kb.Topics())
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	recs, err := r.audit.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		logger.Warnf("chat: 读取审计失败 session=%s err=%v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "records": recs})
}

// decodeAnalysis 解析消息里附带的分析结果；缺少 pattern 视为未附带。
func decodeAnalysis(raw json.RawMessage) (*analysis.Result, error) {
	if len(raw) == 0 || isJSONNull(raw) {
		return nil, nil
	}
	var res analysis.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	if !res.Usable() {
		return nil, nil
	}
	return &res, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
