package contextstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/xpanvictor/interm/internal/domains/session"
	"gorm.io/gorm"
)

type GormContextRepo struct {
	db *gorm.DB
}

func NewGormContextRepo(db *gorm.DB) session.Repository {
	return &GormContextRepo{db: db}
}

func (g *GormContextRepo) SaveContext(ctx context.Context, rec *session.ContextRecord) error {
	entity := NewContextEntity(rec)
	if err := g.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	*rec = *entity.ToDomain()
	return nil
}

func (g *GormContextRepo) GetLatestContext(ctx context.Context, userID string) (*session.ContextRecord, error) {
	var entity ContextEntity
	err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest context: %w", err)
	}
	return entity.ToDomain(), nil
}

func (g *GormContextRepo) DeleteContexts(ctx context.Context, userID string) error {
	if err := g.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&ContextEntity{}).Error; err != nil {
		return fmt.Errorf("failed to delete contexts: %w", err)
	}
	return nil
}

func (g *GormContextRepo) SaveSessionTiming(ctx context.Context, t *session.SessionTiming) error {
	if err := g.db.WithContext(ctx).Create(NewSessionTimingEntity(t)).Error; err != nil {
		return fmt.Errorf("failed to save session timing: %w", err)
	}
	return nil
}

func (g *GormContextRepo) ListSessionTimings(ctx context.Context, userID string, limit int) ([]session.SessionTiming, error) {
	var entities []SessionTimingEntity
	query := g.db.WithContext(ctx).Where("user_id = ?", userID).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list session timings: %w", err)
	}

	timings := make([]session.SessionTiming, len(entities))
	for i, e := range entities {
		timings[i] = e.ToDomain()
	}
	return timings, nil
}
