package match

import (
	"context"
	"errors"
	"sync"

	"github.com/kevin-chtw/tw_riichi/riichi"
	"github.com/kevin-chtw/tw_riichi/storage"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

var (
	ErrMatchExists   = errors.New("match already exists")
	ErrMatchNotFound = errors.New("match not found")
)

// Binder 比赛归属登记，可为nil（单机模式）
type Binder interface {
	Put(matchID string) error
	Remove(matchID string) error
}

// Manager 管理本服持有的全部比赛。不同比赛互不影响，可并行操作
type Manager struct {
	mu       sync.RWMutex
	matches  map[string]*Match
	store    storage.EventStore
	cache    *storage.SnapshotCache
	notifier Notifier
	binder   Binder
}

func NewManager(store storage.EventStore, cache *storage.SnapshotCache, notifier Notifier, binder Binder) *Manager {
	return &Manager{
		matches:  make(map[string]*Match),
		store:    store,
		cache:    cache,
		notifier: notifier,
		binder:   binder,
	}
}

// Create 创建并开赛
func (m *Manager) Create(ctx context.Context, matchID string, rule *riichi.Rule) (*Match, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[matchID]; ok {
		return nil, ErrMatchExists
	}

	game := riichi.NewGame(rule)
	if err := game.Start(); err != nil {
		return nil, err
	}
	mt := NewMatch(matchID, game, m.store, m.cache, m.notifier)
	m.matches[matchID] = mt

	if m.binder != nil {
		if err := m.binder.Put(matchID); err != nil {
			logger.Log.Warnf("match %s: put binding failed: %v", matchID, err)
		}
	}
	logger.Log.Infof("match %s created, length=%s start_points=%d", matchID, rule.Length, rule.StartPoints)
	return mt, nil
}

// Get 取比赛，不存在时报错
func (m *Manager) Get(matchID string) (*Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return mt, nil
}

// Load 从持久化日志恢复一场比赛（进程重启后）
func (m *Manager) Load(ctx context.Context, matchID string, rule *riichi.Rule) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.matches[matchID]; ok {
		return mt, nil
	}

	events, err := m.store.Load(ctx, matchID)
	if err != nil {
		return nil, riichi.NewStoreError(err)
	}
	game, err := riichi.Restore(rule, events)
	if err != nil {
		return nil, err
	}
	mt := NewMatch(matchID, game, m.store, m.cache, m.notifier)
	m.matches[matchID] = mt
	logger.Log.Infof("match %s restored from %d events", matchID, len(events))
	return mt, nil
}

// ReadState 只读查询。本服未持有比赛时先查快照缓存，
// 未命中再折叠事件日志，不把比赛载入内存
func (m *Manager) ReadState(ctx context.Context, matchID string, rule *riichi.Rule) (*riichi.MatchState, error) {
	if mt, err := m.Get(matchID); err == nil {
		return mt.State(), nil
	}
	if m.cache != nil {
		if st, err := m.cache.Load(ctx, matchID); err == nil && st != nil {
			return st, nil
		}
	}

	events, err := m.store.Load(ctx, matchID)
	if err != nil {
		return nil, riichi.NewStoreError(err)
	}
	if len(events) == 0 {
		return nil, ErrMatchNotFound
	}
	st, err := riichi.Fold(rule, events)
	if err != nil {
		return nil, riichi.NewCorruptedLogError(err)
	}
	return st, nil
}

// Delete 终局后移除比赛并解除绑定
func (m *Manager) Delete(ctx context.Context, matchID string) {
	m.mu.Lock()
	delete(m.matches, matchID)
	m.mu.Unlock()

	if m.binder != nil {
		if err := m.binder.Remove(matchID); err != nil {
			logger.Log.Warnf("match %s: remove binding failed: %v", matchID, err)
		}
	}
	if m.cache != nil {
		if err := m.cache.Delete(ctx, matchID); err != nil {
			logger.Log.Warnf("match %s: delete snapshot failed: %v", matchID, err)
		}
	}
}

// Count 当前持有的比赛数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}
