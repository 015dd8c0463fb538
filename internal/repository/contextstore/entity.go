package contextstore

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/interm/internal/domains/session"
	"gorm.io/gorm"
)

// Metadata stores a JSON object column.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		*m = Metadata{}
		return nil
	}
}

type ContextEntity struct {
	ID        uuid.UUID `gorm:"primaryKey;type:char(36);not null"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;index:idx_context_user_created"`
	Type      string    `gorm:"column:type;type:varchar(16);not null"`
	Title     string    `gorm:"column:title;type:varchar(255)"`
	Content   string    `gorm:"column:content;type:longtext;not null"`
	Metadata  Metadata  `gorm:"type:json;column:metadata"`
	CreatedAt time.Time `gorm:"autoCreateTime(3);index:idx_context_user_created"`
}

func (ContextEntity) TableName() string {
	return "user_contexts"
}

func (c *ContextEntity) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *ContextEntity) ToDomain() *session.ContextRecord {
	md := map[string]any(c.Metadata)
	if md == nil {
		md = map[string]any{}
	}
	return &session.ContextRecord{
		ID:        c.ID,
		UserID:    c.UserID,
		Type:      session.ContextType(c.Type),
		Title:     c.Title,
		Content:   c.Content,
		Metadata:  md,
		CreatedAt: c.CreatedAt,
	}
}

func NewContextEntity(rec *session.ContextRecord) *ContextEntity {
	return &ContextEntity{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Type:      string(rec.Type),
		Title:     rec.Title,
		Content:   rec.Content,
		Metadata:  Metadata(rec.Metadata),
		CreatedAt: rec.CreatedAt,
	}
}

type SessionTimingEntity struct {
	ID         uuid.UUID `gorm:"primaryKey;type:char(36);not null"`
	UserID     string    `gorm:"column:user_id;type:varchar(64);not null;index"`
	StartedAt  time.Time `gorm:"column:started_at;precision:3;not null"`
	EndedAt    time.Time `gorm:"column:ended_at;precision:3;not null"`
	DurationMs int64     `gorm:"column:duration_ms;not null"`
}

func (SessionTimingEntity) TableName() string {
	return "session_timings"
}

func (s *SessionTimingEntity) ToDomain() session.SessionTiming {
	return session.SessionTiming{
		ID:         s.ID,
		UserID:     s.UserID,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		DurationMs: s.DurationMs,
	}
}

func NewSessionTimingEntity(t *session.SessionTiming) *SessionTimingEntity {
	id := t.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &SessionTimingEntity{
		ID:         id,
		UserID:     t.UserID,
		StartedAt:  t.StartedAt,
		EndedAt:    t.EndedAt,
		DurationMs: t.DurationMs,
	}
}
