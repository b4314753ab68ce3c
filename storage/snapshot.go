package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kevin-chtw/tw_riichi/riichi"
	"github.com/redis/go-redis/v9"
)

func encodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// SnapshotCache 最新状态的redis缓存，读路径优先走缓存，
// 未命中时再从事件日志折叠。只做尽力而为，不参与提交
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func snapshotKey(matchID string) string {
	return fmt.Sprintf("riichi:match:%s:state", matchID)
}

func (c *SnapshotCache) Save(ctx context.Context, matchID string, state *riichi.MatchState) error {
	data, err := encodeJSON(state)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, snapshotKey(matchID), data, c.ttl).Err()
}

// Load 缓存未命中返回(nil, nil)
func (c *SnapshotCache) Load(ctx context.Context, matchID string) (*riichi.MatchState, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state := &riichi.MatchState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *SnapshotCache) Delete(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, snapshotKey(matchID)).Err()
}
