package match

import (
	"context"
	"sync"

	"github.com/kevin-chtw/tw_riichi/riichi"
	"github.com/kevin-chtw/tw_riichi/storage"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// 对外通知的事件名
const (
	EvtScoreUpdated   = "score_updated"
	EvtRiichiDeclared = "riichi_declared"
	EvtRyukyoku       = "ryukyoku"
	EvtUndone         = "undone"
	EvtGameEnded      = "game_ended"
)

// Notifier 状态变更的实时通知通道，提交成功后调用
type Notifier interface {
	Notify(ctx context.Context, matchID, event string, state *riichi.MatchState) error
}

// Result 一次操作的返回：新状态快照与终局标记
type Result struct {
	State     *riichi.MatchState `json:"state"`
	GameEnded bool               `json:"game_ended"`
	EndReason string             `json:"end_reason,omitempty"`
}

// Match 单场比赛。所有状态变更走同一把锁串行执行，
// 提交顺序固定为：校验生成事件 -> 持久化追加 -> 应用 -> 缓存/通知。
// 持久化失败时内存状态不变，调用方可重试
type Match struct {
	id       string
	mu       sync.Mutex
	game     *riichi.Game
	store    storage.EventStore
	cache    *storage.SnapshotCache // 可为nil
	notifier Notifier               // 可为nil
}

func NewMatch(id string, game *riichi.Game, store storage.EventStore, cache *storage.SnapshotCache, notifier Notifier) *Match {
	return &Match{
		id:       id,
		game:     game,
		store:    store,
		cache:    cache,
		notifier: notifier,
	}
}

func (m *Match) ID() string {
	return m.id
}

// State 当前状态快照
func (m *Match) State() *riichi.MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.State()
}

// DeclareReach 立直宣言
func (m *Match) DeclareReach(ctx context.Context, seat riichi.Seat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, err := m.game.DeclareReach(seat)
	if err != nil {
		return nil, err
	}
	return m.commit(ctx, EvtRiichiDeclared, ev)
}

// DistributeWinPoints 和牌算分。番符在此处校验，
// 本场与供托取锁内的当前值，避免并发下重复计算
func (m *Match) DistributeWinPoints(ctx context.Context, winner, loser riichi.Seat, han, fu int32, isTsumo bool) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := riichi.ValidateHanFu(han, fu); err != nil {
		return nil, err
	}
	st := m.game.State()
	sr := riichi.CalcScore(han, fu, winner == st.Dealer, isTsumo, st.Honba, st.Kyotaku)
	ev, err := m.game.DistributeWinPoints(winner, sr, isTsumo, loser)
	if err != nil {
		return nil, err
	}
	return m.commit(ctx, EvtScoreUpdated, ev)
}

// HandleRyukyoku 流局
func (m *Match) HandleRyukyoku(ctx context.Context, reason riichi.DrawReason, tenpaiSeats []riichi.Seat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, err := m.game.HandleRyukyoku(reason, tenpaiSeats)
	if err != nil {
		return nil, err
	}
	return m.commit(ctx, EvtRyukyoku, ev)
}

// UndoLastEvent 撤销上一次状态变更。无论撤销的是哪类事件，
// 对外统一通知undone，订阅方以携带的状态快照为准
func (m *Match) UndoLastEvent(ctx context.Context) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, err := m.game.UndoLastEvent()
	if err != nil {
		return nil, err
	}
	return m.commit(ctx, EvtUndone, ev)
}

// commit 先落日志再应用。缓存与通知是尽力而为，失败只记日志
func (m *Match) commit(ctx context.Context, event string, ev *riichi.Event) (*Result, error) {
	if err := m.store.Append(ctx, m.id, ev); err != nil {
		return nil, riichi.NewStoreError(err)
	}
	state, err := m.game.Commit(ev)
	if err != nil {
		return nil, err
	}

	res := &Result{State: state}
	if state.Phase == riichi.PhaseFinished {
		res.GameEnded = true
		res.EndReason = string(state.EndReason)
		event = EvtGameEnded
		if saver, ok := m.store.(storage.SettlementSaver); ok {
			if err := saver.SaveSettlement(ctx, m.id, state); err != nil {
				logger.Log.Warnf("match %s: save settlement failed: %v", m.id, err)
			}
		}
	}

	if m.cache != nil {
		if err := m.cache.Save(ctx, m.id, state); err != nil {
			logger.Log.Warnf("match %s: save snapshot failed: %v", m.id, err)
		}
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, m.id, event, state); err != nil {
			logger.Log.Warnf("match %s: notify %s failed: %v", m.id, event, err)
		}
	}
	return res, nil
}
