// internal/remote/cache/cache.go

// Package cache puts a Redis read-through layer in front of a TaskService.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/gurkanbulca/taskboard/internal/models"
	"github.com/gurkanbulca/taskboard/internal/remote"
)

const (
	keyPrefix = "taskboard:tasks:"
	// generationKey is bumped by every eviction. A fill only lands if the
	// generation it read before fetching is still current.
	generationKey = keyPrefix + "generation"
)

var errStaleFill = errors.New("listing changed during fetch")

// Cache wraps a TaskService and caches List results per column. Any successful
// write evicts every cached listing.
type Cache struct {
	base   remote.TaskService
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New creates a caching wrapper. A zero ttl disables storing.
func New(base remote.TaskService, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("cache.New: base service is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{
		base:   base,
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cache) List(ctx context.Context, filter models.ListFilter) ([]models.Task, error) {
	key := listKey(filter)
	if tasks, ok := c.load(ctx, key); ok {
		return tasks, nil
	}

	gen, ok := c.generation(ctx)
	tasks, err := c.base.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, gen, tasks)
	}
	return tasks, nil
}

func (c *Cache) Get(ctx context.Context, id int64) (models.Task, error) {
	return c.base.Get(ctx, id)
}

func (c *Cache) Create(ctx context.Context, draft models.Draft) (models.Task, error) {
	task, err := c.base.Create(ctx, draft)
	if err != nil {
		return models.Task{}, err
	}
	c.evict(ctx)
	return task, nil
}

func (c *Cache) Update(ctx context.Context, id int64, patch models.Patch) (models.Task, error) {
	task, err := c.base.Update(ctx, id, patch)
	if err != nil {
		return models.Task{}, err
	}
	c.evict(ctx)
	return task, nil
}

func (c *Cache) Delete(ctx context.Context, id int64) error {
	err := c.base.Delete(ctx, id)
	if err != nil && !remote.IsNotFound(err) {
		return err
	}
	c.evict(ctx)
	return err
}

func (c *Cache) load(ctx context.Context, key string) ([]models.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing service without failing.
			c.logger.WithError(err).WithField("key", key).Debug("Cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []models.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, true
}

// generation reads the eviction counter. ok is false when the cache should not
// be filled at all.
func (c *Cache) generation(ctx context.Context) (string, bool) {
	if c.redis == nil || c.ttl == 0 {
		return "", false
	}
	gen, err := c.redis.Get(ctx, generationKey).Result()
	if err == redis.Nil {
		return "", true
	}
	if err != nil {
		c.logger.WithError(err).Debug("Cache generation read failed")
		return "", false
	}
	return gen, true
}

// store writes tasks under key unless an eviction happened since gen was read.
func (c *Cache) store(ctx context.Context, key, gen string, tasks []models.Task) {
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.logger.WithField("key", key).Debug("Listing changed during fetch, not cached")
	default:
		c.logger.WithError(err).WithField("key", key).Debug("Cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, allKeys()...)
		return nil
	})
	if err != nil {
		c.logger.WithError(err).Warn("Cache eviction failed")
	}
}

func listKey(filter models.ListFilter) string {
	if filter.Column == nil {
		return keyPrefix + "all"
	}
	return keyPrefix + string(*filter.Column)
}

func allKeys() []string {
	keys := []string{listKey(models.ListFilter{})}
	for _, col := range models.Columns() {
		keys = append(keys, listKey(models.ForColumn(col)))
	}
	return keys
}

var _ remote.TaskService = (*Cache)(nil)
