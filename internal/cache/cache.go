package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type taskBackend interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)
	ListByUser(ctx context.Context, userID string) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, id string) error
}

// TaskCache keeps each user's task list in Redis. Reads fall through to the
// backing repository on a miss; every write evicts the user's key.
type TaskCache struct {
	base  taskBackend
	redis *redis.Client
	ttl   time.Duration
	log   *logrus.Logger
}

func NewTaskCache(base taskBackend, client *redis.Client, ttl time.Duration, log *logrus.Logger) *TaskCache {
	if base == nil {
		panic("cache.NewTaskCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TaskCache{base: base, redis: client, ttl: ttl, log: log}
}

func (c *TaskCache) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	if tasks, ok := c.load(ctx, userID); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, userID, tasks)
	return tasks, nil
}

func (c *TaskCache) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	return c.base.GetByID(ctx, userID, id)
}

func (c *TaskCache) Create(ctx context.Context, task *models.Task) error {
	if err := c.base.Create(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.UserID)
	return nil
}

func (c *TaskCache) Update(ctx context.Context, task *models.Task) error {
	if err := c.base.Update(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.UserID)
	return nil
}

func (c *TaskCache) Delete(ctx context.Context, userID, id string) error {
	if err := c.base.Delete(ctx, userID, id); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

func (c *TaskCache) load(ctx context.Context, userID string) ([]models.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the repository without failing.
			c.log.WithError(err).Warn("task cache read failed")
			_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
		}
		return nil, false
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
		return nil, false
	}
	// the owner is not part of the JSON form
	for i := range tasks {
		tasks[i].UserID = userID
	}
	return tasks, true
}

func (c *TaskCache) store(ctx context.Context, userID string, tasks []models.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, tasksCacheKey(userID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("task cache write failed")
	}
}

func (c *TaskCache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, tasksCacheKey(userID)).Err(); err != nil {
		c.log.WithError(err).Warn("task cache evict failed")
	}
}

func tasksCacheKey(userID string) string {
	return "tasks:" + userID
}
