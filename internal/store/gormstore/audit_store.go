package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chartmentor/internal/store"
	storemodel "chartmentor/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type exchangeModel = storemodel.ExchangeModel

const maxRecentLimit = 500

// AuditStore implements store.ExchangeLog using Gorm + SQLite.
type AuditStore struct {
	db *gorm.DB
}

var _ store.ExchangeLog = (*AuditStore)(nil)

// NewAuditStore opens (and migrates) the sqlite file at path. ":memory:" is
// accepted for tests.
func NewAuditStore(path string) (*AuditStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit store: path cannot be empty")
	}
	dsn := "file::memory:?cache=shared"
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&exchangeModel{}); err != nil {
		return nil, fmt.Errorf("audit store: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &AuditStore{db: db}, nil
}

func (s *AuditStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *AuditStore) Record(ctx context.Context, rec store.ExchangeRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("audit store 未初始化")
	}
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("audit store: session_id 必填")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m := exchangeModel{
		SessionID: rec.SessionID,
		Bucket:    rec.Bucket,
		Topic:     rec.Topic,
		FromModel: rec.FromModel,
		Utterance: rec.Utterance,
		Reply:     rec.Reply,
		CreatedAt: rec.CreatedAt.UnixMilli(),
	}
	if len(rec.Analysis) > 0 {
		m.Analysis = datatypes.JSON(rec.Analysis)
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *AuditStore) Recent(ctx context.Context, sessionID string, limit int) ([]store.ExchangeRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("audit store 未初始化")
	}
	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	var models []exchangeModel
	err := s.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]store.ExchangeRecord, 0, len(models))
	for _, m := range models {
		out = append(out, store.ExchangeRecord{
			ID:        m.ID,
			SessionID: m.SessionID,
			Bucket:    m.Bucket,
			Topic:     m.Topic,
			FromModel: m.FromModel,
			Utterance: m.Utterance,
			Reply:     m.Reply,
			Analysis:  []byte(m.Analysis),
			CreatedAt: time.UnixMilli(m.CreatedAt),
		})
	}
	return out, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
