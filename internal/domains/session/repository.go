package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ContextType string

const (
	ContextText ContextType = "text"
	ContextFile ContextType = "file"
)

// ContextRecord is a piece of conversation context saved for later sessions.
type ContextRecord struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"userId"`
	Type      ContextType    `json:"type"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SessionTiming records how long one recording session ran.
type SessionTiming struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"userId"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
	DurationMs int64     `json:"durationMs"`
}

func NewContextRecord(userID string, ctype ContextType, title, content string, metadata map[string]any) *ContextRecord {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &ContextRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      ctype,
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

func NewSessionTiming(userID string, startedAt, endedAt time.Time) *SessionTiming {
	return &SessionTiming{
		ID:         uuid.New(),
		UserID:     userID,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		DurationMs: endedAt.Sub(startedAt).Milliseconds(),
	}
}

// Repository defines the persistence operations of the service.
type Repository interface {
	SaveContext(ctx context.Context, rec *ContextRecord) error

	// GetLatestContext returns nil, nil when the user has none.
	GetLatestContext(ctx context.Context, userID string) (*ContextRecord, error)

	DeleteContexts(ctx context.Context, userID string) error

	SaveSessionTiming(ctx context.Context, t *SessionTiming) error

	// ListSessionTimings returns the most recent sessions first.
	ListSessionTimings(ctx context.Context, userID string, limit int) ([]SessionTiming, error)
}
