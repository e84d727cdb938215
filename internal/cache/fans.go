package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FanLoader 缓存未命中时从主库加载某用户的全部粉丝 id（已排好序）
type FanLoader func(ctx context.Context, userID int64) ([]int64, error)

// FanIndex 以 Redis List 缓存粉丝 id 列表，分页读取走 LRANGE，
// 关注关系变化时整条失效。
type FanIndex struct {
	client *redis.Client
	ttl    time.Duration
	load   FanLoader
}

func NewFanIndex(client *redis.Client, ttl time.Duration, load FanLoader) *FanIndex {
	return &FanIndex{client: client, ttl: ttl, load: load}
}

func (x *FanIndex) key(userID int64) string { return fmt.Sprintf("fans:index:%d", userID) }

// Page 返回 [offset, offset+limit) 区间的粉丝 id
func (x *FanIndex) Page(ctx context.Context, userID int64, offset, limit int) ([]int64, error) {
	key := x.key(userID)
	exists, err := x.client.Exists(ctx, key).Result()
	if err == nil && exists > 0 {
		raw, err := x.client.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
		if err == nil {
			return parseIDs(raw)
		}
	}

	all, err := x.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	x.store(ctx, key, all)

	if offset >= len(all) {
		return []int64{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// store 写缓存失败不影响读取
func (x *FanIndex) store(ctx context.Context, key string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	vals := make([]interface{}, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	pipe := x.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, vals...)
	pipe.Expire(ctx, key, x.ttl)
	_, _ = pipe.Exec(ctx)
}

func (x *FanIndex) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = x.key(id)
	}
	return x.client.Del(ctx, keys...).Err()
}

func parseIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fan index: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
