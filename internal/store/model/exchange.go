package model

import "gorm.io/datatypes"

// ExchangeModel maps to the 'chat_exchanges' table.
type ExchangeModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID string         `gorm:"column:session_id;index:idx_exchange_session_time,priority:1"`
	Bucket    string         `gorm:"column:bucket;index"`
	Topic     string         `gorm:"column:topic"`
	FromModel bool           `gorm:"column:from_model"`
	Utterance string         `gorm:"column:utterance"`
	Reply     string         `gorm:"column:reply"`
	Analysis  datatypes.JSON `gorm:"column:analysis"`
	CreatedAt int64          `gorm:"column:created_at;index:idx_exchange_session_time,priority:2"`
}

func (ExchangeModel) TableName() string { return "chat_exchanges" }
