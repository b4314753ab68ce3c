package service

import (
	"context"
	"errors"

	"github.com/kevin-chtw/tw_riichi/match"
	"github.com/kevin-chtw/tw_riichi/riichi"
	pitaya "github.com/topfreegames/pitaya/v3/pkg"
	"github.com/topfreegames/pitaya/v3/pkg/component"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// Score 计分服务，对外暴露引擎的四个状态变更操作。
// 引擎本身不关心操作者，权限在这一层校验
type Score struct {
	component.Base
	app       pitaya.Pitaya
	matches   *match.Manager
	operators map[string]bool // 允许撤销的操作员，空表示不限制
}

func NewScore(app pitaya.Pitaya, matches *match.Manager, operators []string) *Score {
	s := &Score{
		app:       app,
		matches:   matches,
		operators: make(map[string]bool, len(operators)),
	}
	for _, uid := range operators {
		s.operators[uid] = true
	}
	return s
}

// CreateMatchReq 开赛请求，规则项缺省取默认值
type CreateMatchReq struct {
	MatchID string       `json:"match_id"`
	Rule    *riichi.Rule `json:"rule,omitempty"`
}

type ReachReq struct {
	MatchID string `json:"match_id"`
	Seat    int32  `json:"seat"`
}

type WinReq struct {
	MatchID string `json:"match_id"`
	Winner  int32  `json:"winner"`
	Loser   int32  `json:"loser"` // 自摸时传-1
	Han     int32  `json:"han"`
	Fu      int32  `json:"fu"`
	IsTsumo bool   `json:"is_tsumo"`
}

type RyukyokuReq struct {
	MatchID     string  `json:"match_id"`
	Reason      string  `json:"reason"`
	TenpaiSeats []int32 `json:"tenpai_seats"`
}

type UndoReq struct {
	MatchID string `json:"match_id"`
}

type StateReq struct {
	MatchID string       `json:"match_id"`
	Rule    *riichi.Rule `json:"rule,omitempty"` // 跨服查询时指定规则
}

// StateAck 操作结果。Code为0表示成功
type StateAck struct {
	Code      int32              `json:"code"`
	Msg       string             `json:"msg,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
	State     *riichi.MatchState `json:"state,omitempty"`
	GameEnded bool               `json:"game_ended,omitempty"`
	EndReason string             `json:"end_reason,omitempty"`
}

// CreateMatch 创建比赛
func (s *Score) CreateMatch(ctx context.Context, req *CreateMatchReq) (*StateAck, error) {
	rule := req.Rule
	if rule == nil {
		rule = riichi.DefaultRule()
	}
	mt, err := s.matches.Create(ctx, req.MatchID, rule)
	if err != nil {
		return errAck(err), nil
	}
	return &StateAck{State: mt.State()}, nil
}

// DeclareReach 立直宣言
func (s *Score) DeclareReach(ctx context.Context, req *ReachReq) (*StateAck, error) {
	mt, err := s.matches.Get(req.MatchID)
	if err != nil {
		return errAck(err), nil
	}
	res, err := mt.DeclareReach(ctx, riichi.Seat(req.Seat))
	return s.ack(ctx, req.MatchID, res, err), nil
}

// DistributeWinPoints 和牌算分
func (s *Score) DistributeWinPoints(ctx context.Context, req *WinReq) (*StateAck, error) {
	mt, err := s.matches.Get(req.MatchID)
	if err != nil {
		return errAck(err), nil
	}
	res, err := mt.DistributeWinPoints(ctx, riichi.Seat(req.Winner), riichi.Seat(req.Loser), req.Han, req.Fu, req.IsTsumo)
	return s.ack(ctx, req.MatchID, res, err), nil
}

// HandleRyukyoku 流局
func (s *Score) HandleRyukyoku(ctx context.Context, req *RyukyokuReq) (*StateAck, error) {
	mt, err := s.matches.Get(req.MatchID)
	if err != nil {
		return errAck(err), nil
	}
	reason, ok := riichi.ParseDrawReason(req.Reason)
	if !ok {
		return errAck(riichi.ErrInvalidReason), nil
	}
	seats := make([]riichi.Seat, len(req.TenpaiSeats))
	for i, v := range req.TenpaiSeats {
		seats[i] = riichi.Seat(v)
	}
	res, err := mt.HandleRyukyoku(ctx, reason, seats)
	return s.ack(ctx, req.MatchID, res, err), nil
}

// UndoLastEvent 撤销上一次操作，仅允许操作员
func (s *Score) UndoLastEvent(ctx context.Context, req *UndoReq) (*StateAck, error) {
	if !s.operatorAllowed(s.app.GetSessionFromCtx(ctx)) {
		return &StateAck{Code: -1, Msg: "not allowed"}, nil
	}
	mt, err := s.matches.Get(req.MatchID)
	if err != nil {
		return errAck(err), nil
	}
	res, err := mt.UndoLastEvent(ctx)
	return s.ack(ctx, req.MatchID, res, err), nil
}

// GetState 查询当前状态快照。本服未持有的比赛走缓存或日志回放，
// 此时规则项缺省取默认值
func (s *Score) GetState(ctx context.Context, req *StateReq) (*StateAck, error) {
	rule := req.Rule
	if rule == nil {
		rule = riichi.DefaultRule()
	}
	st, err := s.matches.ReadState(ctx, req.MatchID, rule)
	if err != nil {
		return errAck(err), nil
	}
	return &StateAck{State: st}, nil
}

// uidSession 会话的最小视图，服间RPC没有会话时为nil
type uidSession interface {
	UID() string
}

// operatorAllowed 配置了操作员名单时校验会话身份，无会话一律拒绝
func (s *Score) operatorAllowed(sess uidSession) bool {
	if len(s.operators) == 0 {
		return true
	}
	return sess != nil && s.operators[sess.UID()]
}

func (s *Score) ack(ctx context.Context, matchID string, res *match.Result, err error) *StateAck {
	if err != nil {
		logger.Log.Infof("match %s: operation rejected: %v", matchID, err)
		return errAck(err)
	}
	if res.GameEnded {
		s.matches.Delete(ctx, matchID)
	}
	return &StateAck{
		State:     res.State,
		GameEnded: res.GameEnded,
		EndReason: res.EndReason,
	}
}

func errAck(err error) *StateAck {
	ack := &StateAck{Msg: err.Error()}
	var e *riichi.Error
	if errors.As(err, &e) {
		ack.Code = e.Code
		ack.Retryable = riichi.IsRetryable(err)
	} else {
		ack.Code = -1
	}
	return ack
}
