package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "tasks:"
	listSuffix = ":list"
	searchPart = ":search:"
)

// TaskCache caches per-project board pages and search results in Redis.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached first board page or nil if miss.
func (c *TaskCache) GetList(ctx context.Context, projectID int64) ([]dom.Task, error) {
	return c.get(ctx, listKey(projectID))
}

// SetList stores the first board page.
func (c *TaskCache) SetList(ctx context.Context, projectID int64, list []dom.Task) error {
	return c.set(ctx, listKey(projectID), list)
}

// GetSearch returns cached search result for query q, or nil if miss.
func (c *TaskCache) GetSearch(ctx context.Context, projectID int64, q string) ([]dom.Task, error) {
	return c.get(ctx, searchKey(projectID, q))
}

// SetSearch stores the search result in cache.
func (c *TaskCache) SetSearch(ctx context.Context, projectID int64, q string, list []dom.Task) error {
	return c.set(ctx, searchKey(projectID, q), list)
}

// InvalidateProject removes the list and all search keys of a project (cache invalidation on write).
func (c *TaskCache) InvalidateProject(ctx context.Context, projectID int64) error {
	if err := c.rdb.Del(ctx, listKey(projectID)).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, projectPrefix(projectID)+searchPart+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *TaskCache) get(ctx context.Context, key string) ([]dom.Task, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := make([]dom.Task, 0)
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *TaskCache) set(ctx context.Context, key string, list []dom.Task) error {
	if list == nil {
		list = []dom.Task{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func projectPrefix(projectID int64) string {
	return keyPrefix + strconv.FormatInt(projectID, 10)
}

func listKey(projectID int64) string {
	return projectPrefix(projectID) + listSuffix
}

func searchKey(projectID int64, q string) string {
	return projectPrefix(projectID) + searchPart + NormalizeQuery(q)
}

// NormalizeQuery is the cache identity of a search query.
func NormalizeQuery(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}
