package riichi

// Game 单场比赛的状态机，事件日志的唯一写入者。
// 操作分两段：先校验并生成事件（不改状态），调用方把事件落地后再Commit生效，
// 保证"先提交日志、后应用"，持久化失败时状态不产生任何变更。
// 并发保护由调用方负责（每场比赛串行）。
type Game struct {
	rule  *Rule
	log   *EventLog
	state *MatchState
}

// NewGame 创建比赛，处于等待阶段
func NewGame(rule *Rule) *Game {
	return &Game{
		rule:  rule,
		log:   NewEventLog(),
		state: newMatchState(rule),
	}
}

// Restore 从持久化日志折叠重建
func Restore(rule *Rule, events []*Event) (*Game, error) {
	state, err := Fold(rule, events)
	if err != nil {
		return nil, NewCorruptedLogError(err)
	}
	log := NewEventLog()
	for _, e := range events {
		log.Append(e)
	}
	return &Game{rule: rule, log: log, state: state}, nil
}

// Start 开赛，等待阶段转入对局阶段
func (g *Game) Start() error {
	if g.state.Phase != PhaseWaiting {
		return ErrMatchNotPlaying
	}
	g.state.Phase = PhasePlaying
	return nil
}

func (g *Game) Rule() *Rule {
	return g.rule
}

// State 当前状态快照，调用方可随意持有
func (g *Game) State() *MatchState {
	return g.state.Clone()
}

// Events 全量日志副本
func (g *Game) Events() []*Event {
	return g.log.Events()
}

// Finished 是否已终局
func (g *Game) Finished() bool {
	return g.state.Phase == PhaseFinished
}

// DeclareReach 立直宣言：扣一根立直棒入供托
func (g *Game) DeclareReach(seat Seat) (*Event, error) {
	if err := g.requirePlaying(); err != nil {
		return nil, err
	}
	if !seat.IsValid() {
		return nil, ErrInvalidSeat
	}
	ss := &g.state.Seats[seat]
	if ss.Reach {
		return nil, ErrAlreadyReach
	}
	if ss.Points < g.rule.KyotakuUnit {
		return nil, ErrNotEnoughPoints
	}
	return &Event{
		ID:    g.log.NextID(),
		Type:  EventReach,
		Reach: &ReachEvent{Seat: seat, Round: g.state.Round},
	}, nil
}

// DistributeWinPoints 和牌：按算分结果转移点数。
// sr需由调用方基于当前状态用CalcScore得出，番符已过ValidateHanFu
func (g *Game) DistributeWinPoints(winner Seat, sr *ScoreResult, isTsumo bool, loser Seat) (*Event, error) {
	if err := g.requirePlaying(); err != nil {
		return nil, err
	}
	if !winner.IsValid() {
		return nil, ErrInvalidSeat
	}
	if isTsumo {
		if loser != SeatNull {
			return nil, ErrTsumoLoser
		}
	} else {
		if !loser.IsValid() {
			return nil, ErrRonNoLoser
		}
		if loser == winner {
			return nil, ErrSameWinnerLoser
		}
	}
	if sr == nil {
		return nil, ErrInvalidHanFu
	}
	if err := ValidateHanFu(sr.Han, sr.Fu); err != nil {
		return nil, err
	}
	return &Event{
		ID:   g.log.NextID(),
		Type: EventWin,
		Win: &WinEvent{
			Winner:  winner,
			Loser:   loser,
			Han:     sr.Han,
			Fu:      sr.Fu,
			IsTsumo: isTsumo,
			Honba:   g.state.Honba,
			Kyotaku: g.state.Kyotaku,
			Payment: sr,
		},
	}, nil
}

// HandleRyukyoku 流局。荒牌流局要求立直家必须在听牌名单内
func (g *Game) HandleRyukyoku(reason DrawReason, tenpaiSeats []Seat) (*Event, error) {
	if err := g.requirePlaying(); err != nil {
		return nil, err
	}
	if !reason.IsValid() {
		return nil, ErrInvalidReason
	}
	seen := make(map[Seat]bool, len(tenpaiSeats))
	for _, seat := range tenpaiSeats {
		if !seat.IsValid() {
			return nil, ErrInvalidSeat
		}
		if seen[seat] {
			return nil, ErrDuplicateTenpai
		}
		seen[seat] = true
	}
	if !reason.Abortive() {
		for i := range g.state.Seats {
			if g.state.Seats[i].Reach && !seen[Seat(i)] {
				return nil, ErrReachNotTenpai
			}
		}
	}
	return &Event{
		ID:   g.log.NextID(),
		Type: EventDraw,
		Draw: &DrawEvent{Reason: reason, TenpaiSeats: tenpaiSeats},
	}, nil
}

// UndoLastEvent 撤销最近一次事件。连续撤销不允许
func (g *Game) UndoLastEvent() (*Event, error) {
	if err := g.requirePlaying(); err != nil {
		return nil, err
	}
	last := g.log.Last()
	if last == nil {
		return nil, ErrEmptyLog
	}
	if last.Type == EventUndo {
		return nil, ErrUndoAfterUndo
	}
	return &Event{
		ID:   g.log.NextID(),
		Type: EventUndo,
		Undo: &UndoEvent{Reverted: last.ID},
	}, nil
}

// Commit 事件生效。普通事件增量应用；撤销标记整条日志重放，
// 用重放而非逆运算还原，涵盖各种进位边界。
// 应用失败时日志与状态均不变
func (g *Game) Commit(e *Event) (*MatchState, error) {
	var next *MatchState
	var err error
	if e.Type == EventUndo {
		next, err = Fold(g.rule, append(g.log.Events(), e))
	} else {
		next = g.state.Clone()
		err = next.applyEvent(g.rule, e)
	}
	if err != nil {
		return nil, NewCorruptedLogError(err)
	}
	g.log.Append(e)
	g.state = next
	return g.state.Clone(), nil
}

func (g *Game) requirePlaying() error {
	switch g.state.Phase {
	case PhaseFinished:
		return ErrMatchFinished
	case PhasePlaying:
		return nil
	}
	return ErrMatchNotPlaying
}
