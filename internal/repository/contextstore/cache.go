package contextstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/pkg/Logger"
)

func LatestContextKey(userID string) string {
	return fmt.Sprintf("user:%s:context:latest", userID)
}

// CachedRepo keeps each user's latest context in redis in front of a
// durable repository. Cache failures never fail the call.
type CachedRepo struct {
	session.Repository
	rc     *redis.Client
	ttl    time.Duration
	logger *Logger.Logger
}

func NewCachedRepo(inner session.Repository, rc *redis.Client, ttl time.Duration, logger *Logger.Logger) *CachedRepo {
	return &CachedRepo{Repository: inner, rc: rc, ttl: ttl, logger: logger.Named("context-cache")}
}

func (c *CachedRepo) SaveContext(ctx context.Context, rec *session.ContextRecord) error {
	if err := c.Repository.SaveContext(ctx, rec); err != nil {
		return err
	}
	c.store(rec)
	return nil
}

func (c *CachedRepo) GetLatestContext(ctx context.Context, userID string) (*session.ContextRecord, error) {
	raw, err := c.rc.Get(LatestContextKey(userID)).Bytes()
	switch {
	case err == nil:
		var rec session.ContextRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return &rec, nil
		}
		c.logger.Warnf("dropping unreadable cached context for %s", userID)
	case err != redis.Nil:
		c.logger.Warnf("context cache read failed: %v", err)
	}

	rec, err := c.Repository.GetLatestContext(ctx, userID)
	if err != nil || rec == nil {
		return rec, err
	}
	c.store(rec)
	return rec, nil
}

func (c *CachedRepo) DeleteContexts(ctx context.Context, userID string) error {
	if err := c.rc.Del(LatestContextKey(userID)).Err(); err != nil {
		c.logger.Warnf("context cache delete failed: %v", err)
	}
	return c.Repository.DeleteContexts(ctx, userID)
}

func (c *CachedRepo) store(rec *session.ContextRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.rc.Set(LatestContextKey(rec.UserID), data, c.ttl).Err(); err != nil {
		c.logger.Warnf("context cache write failed: %v", err)
	}
}
