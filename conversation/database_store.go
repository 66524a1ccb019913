// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"

	"github.com/telexintegrations/sniffbot"
)

// TurnModel is the database row for a single conversation turn. Parts are
// stored as serialized JSON; the auto-increment primary key preserves
// append order within a context.
type TurnModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ContextID string `gorm:"index;size:255;not null"`
	Role      string `gorm:"size:16;not null"`
	MessageID string `gorm:"size:255"`
	TaskID    string `gorm:"size:255"`
	Parts     string `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM.
func (TurnModel) TableName() string {
	return "conversation_turns"
}

// DatabaseStore is a database implementation of Store using GORM.
type DatabaseStore struct {
	db          *gorm.DB
	createTable bool
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStoreConfig holds configuration for DatabaseStore.
type DatabaseStoreConfig struct {
	DB          *gorm.DB
	CreateTable bool // Whether to create the table if it doesn't exist
}

// NewDatabaseStore creates a new DatabaseStore.
func NewDatabaseStore(config DatabaseStoreConfig) (*DatabaseStore, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &DatabaseStore{
		db:          config.DB,
		createTable: config.CreateTable,
	}, nil
}

// Initialize prepares the database for use.
func (s *DatabaseStore) Initialize(ctx context.Context) error {
	if !s.createTable {
		return nil
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&TurnModel{}); err != nil {
		return NewStoreError("initialize", "", err)
	}
	return nil
}

// History returns the ordered turns recorded for a context.
func (s *DatabaseStore) History(ctx context.Context, contextID string) ([]*sniffbot.A2AMessage, error) {
	if contextID == "" {
		return nil, fmt.Errorf("context ID cannot be empty")
	}

	var models []TurnModel
	err := s.db.WithContext(ctx).
		Where("context_id = ?", contextID).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, NewStoreError("history", contextID, err)
	}

	turns := make([]*sniffbot.A2AMessage, len(models))
	for i, model := range models {
		msg, err := model.toMessage()
		if err != nil {
			return nil, NewStoreError("history", contextID, err)
		}
		turns[i] = msg
	}
	return turns, nil
}

// Append records turns at the end of a context's history. All turns are
// inserted in one transaction so a user turn and the agent reply recorded
// together stay adjacent.
func (s *DatabaseStore) Append(ctx context.Context, contextID string, messages ...*sniffbot.A2AMessage) error {
	if contextID == "" {
		return fmt.Errorf("context ID cannot be empty")
	}
	if len(messages) == 0 {
		return nil
	}

	models := make([]TurnModel, 0, len(messages))
	for i, msg := range messages {
		if msg == nil {
			return fmt.Errorf("message at index %d cannot be nil", i)
		}
		model, err := newTurnModel(contextID, msg)
		if err != nil {
			return NewStoreError("append", contextID, err)
		}
		models = append(models, model)
	}

	if err := s.db.WithContext(ctx).Create(&models).Error; err != nil {
		return NewStoreError("append", contextID, err)
	}
	return nil
}

// Close cleanly shuts down the database store. The underlying connection is
// managed by the caller.
func (s *DatabaseStore) Close(ctx context.Context) error {
	return nil
}

func newTurnModel(contextID string, msg *sniffbot.A2AMessage) (TurnModel, error) {
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return TurnModel{}, fmt.Errorf("failed to serialize parts: %w", err)
	}
	return TurnModel{
		ContextID: contextID,
		Role:      string(msg.Role),
		MessageID: msg.MessageID,
		TaskID:    msg.TaskID,
		Parts:     string(parts),
	}, nil
}

func (m TurnModel) toMessage() (*sniffbot.A2AMessage, error) {
	var parts []sniffbot.Part
	if err := json.Unmarshal([]byte(m.Parts), &parts); err != nil {
		return nil, fmt.Errorf("failed to deserialize parts for turn %d: %w", m.ID, err)
	}
	return &sniffbot.A2AMessage{
		Role:      sniffbot.Role(m.Role),
		Parts:     parts,
		MessageID: m.MessageID,
		TaskID:    m.TaskID,
		ContextID: m.ContextID,
	}, nil
}
