package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/kevin-chtw/tw_riichi/riichi"
)

var ErrEventOutOfOrder = errors.New("event id out of sequence")

// EventStore 事件日志持久化。Append成功返回前，对应的状态变更不得生效
type EventStore interface {
	// Append 原子追加一条事件，(matchID, event.ID)重复时报错
	Append(ctx context.Context, matchID string, e *riichi.Event) error
	// Load 按序号升序读取一场比赛的全量日志
	Load(ctx context.Context, matchID string) ([]*riichi.Event, error)
}

// SettlementSaver 支持落终局结算快照的存储实现
type SettlementSaver interface {
	SaveSettlement(ctx context.Context, matchID string, state *riichi.MatchState) error
}

// MemoryStore 内存实现，用于测试与单机模式
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]*riichi.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]*riichi.Event)}
}

func (s *MemoryStore) Append(ctx context.Context, matchID string, e *riichi.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[matchID]
	if int64(len(log)) != e.ID-1 {
		return ErrEventOutOfOrder
	}
	s.logs[matchID] = append(log, e)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, matchID string) ([]*riichi.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[matchID]
	res := make([]*riichi.Event, len(log))
	copy(res, log)
	return res, nil
}
