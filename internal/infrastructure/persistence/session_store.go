// Package persistence adapts the teacher's GORM-backed repository pattern
// (gorm_message_repository.go, db.go — removed, see DESIGN.md) from storing
// chat messages in a Postgres/SQLite-agnostic schema into a queryable
// SQLite-only SessionStore for session snapshots: the SPEC_FULL §3 optional
// durable store standing alongside (not replacing) internal/eventlog's
// JSONL log, for deployments that want to list/inspect sessions with SQL
// instead of scanning the data directory.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ngoclaw/agentcore/internal/eventlog"
	"github.com/ngoclaw/agentcore/internal/session"
	"github.com/ngoclaw/agentcore/pkg/apperr"
)

// OpenDB opens (creating if needed) a SQLite database at path and migrates
// the session_records table.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, apperr.Storage("open session database", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, apperr.Storage("migrate session database", err)
	}
	return db, nil
}

// sessionRecord is the SQL row shape a Snapshot maps to; the message list
// is stored as a JSON blob rather than normalized, matching the
// snapshot-is-the-unit-of-durability model of spec §4.11 (the JSONL event
// log remains the source of truth for replay; this table is a queryable
// mirror of the same snapshots).
type sessionRecord struct {
	SessionID    string `gorm:"primaryKey;size:255"`
	ParentID     string `gorm:"size:255;index"`
	Depth        int
	MessageCount int
	MessagesJSON string `gorm:"type:text"`
	UpdatedAt    time.Time
}

func (sessionRecord) TableName() string { return "session_records" }

// SessionStore is the optional SQL-backed mirror of eventlog.Store's
// snapshots.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save upserts one session's snapshot.
func (s *SessionStore) Save(ctx context.Context, snap eventlog.Snapshot) error {
	msgs, err := json.Marshal(snap.Messages)
	if err != nil {
		return apperr.Storage("marshal session messages", err)
	}
	rec := sessionRecord{
		SessionID:    snap.SessionID,
		ParentID:     snap.ParentID,
		Depth:        snap.Depth,
		MessageCount: len(snap.Messages),
		MessagesJSON: string(msgs),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return apperr.Storage("save session record", err)
	}
	return nil
}

// Load fetches one session's snapshot, or nil if it has never been saved.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*eventlog.Snapshot, error) {
	var rec sessionRecord
	err := s.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("load session record", err)
	}
	var msgs []*session.Message
	if err := json.Unmarshal([]byte(rec.MessagesJSON), &msgs); err != nil {
		return nil, apperr.Storage("unmarshal session messages", err)
	}
	return &eventlog.Snapshot{SessionID: rec.SessionID, Messages: msgs, ParentID: rec.ParentID, Depth: rec.Depth}, nil
}

// List returns session ids ordered by most recently updated, for a
// dashboard or CLI `list-sessions` surface to page through without
// touching the filesystem.
func (s *SessionStore) List(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	q := s.db.WithContext(ctx).Model(&sessionRecord{}).Order("updated_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("session_id", &ids).Error; err != nil {
		return nil, apperr.Storage("list session records", err)
	}
	return ids, nil
}

// Delete removes one session's SQL-side record. It does not touch
// eventlog's on-disk files; callers that want full deletion call both.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.db.WithContext(ctx).Delete(&sessionRecord{}, "session_id = ?", sessionID).Error; err != nil {
		return apperr.Storage("delete session record", err)
	}
	return nil
}
