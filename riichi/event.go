package riichi

import (
	"encoding/json"
	"fmt"
	"slices"
)

// EventType 事件类型，封闭集合，折叠时穷举匹配
type EventType int32

const (
	EventWin   EventType = iota + 1 // 和牌
	EventDraw                       // 流局
	EventReach                      // 立直宣言
	EventUndo                       // 撤销标记，只引用不删除
)

func (t EventType) String() string {
	switch t {
	case EventWin:
		return "win"
	case EventDraw:
		return "draw"
	case EventReach:
		return "reach"
	case EventUndo:
		return "undo"
	}
	return "unknown"
}

// Event 对局事件，追加后不可变更
type Event struct {
	ID    int64       `json:"id"` // 日志内序号，从1递增
	Type  EventType   `json:"type"`
	Win   *WinEvent   `json:"win,omitempty"`
	Draw  *DrawEvent  `json:"draw,omitempty"`
	Reach *ReachEvent `json:"reach,omitempty"`
	Undo  *UndoEvent  `json:"undo,omitempty"`
}

// WinEvent 和牌事件，记录当时的本场/供托用于审计
type WinEvent struct {
	Winner  Seat         `json:"winner"`
	Loser   Seat         `json:"loser"` // 自摸为SeatNull
	Han     int32        `json:"han"`
	Fu      int32        `json:"fu"`
	IsTsumo bool         `json:"is_tsumo"`
	Honba   int32        `json:"honba"`
	Kyotaku int32        `json:"kyotaku"`
	Payment *ScoreResult `json:"payment"`
}

// DrawEvent 流局事件
type DrawEvent struct {
	Reason      DrawReason `json:"reason"`
	TenpaiSeats []Seat     `json:"tenpai_seats,omitempty"`
}

// ReachEvent 立直宣言事件
type ReachEvent struct {
	Seat  Seat  `json:"seat"`
	Round int32 `json:"round"`
}

// UndoEvent 撤销标记，被撤销事件保留在日志中但不再参与折叠
type UndoEvent struct {
	Reverted int64 `json:"reverted"`
}

// Encode 持久化编码
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent 从持久化数据还原事件
func DecodeEvent(data []byte) (*Event, error) {
	e := &Event{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return e, nil
}

// check 事件体与类型标签必须一致，座位号必须在有效范围内。
// 存储层读回的事件先过这里，折叠时不再信任任何字段
func (e *Event) check() error {
	switch e.Type {
	case EventWin:
		if e.Win == nil {
			return fmt.Errorf("event %d: win body missing", e.ID)
		}
		if !e.Win.Winner.IsValid() {
			return fmt.Errorf("event %d: invalid winner seat %d", e.ID, e.Win.Winner)
		}
		if e.Win.IsTsumo {
			if e.Win.Loser != SeatNull {
				return fmt.Errorf("event %d: tsumo win carries loser %d", e.ID, e.Win.Loser)
			}
		} else if !e.Win.Loser.IsValid() || e.Win.Loser == e.Win.Winner {
			return fmt.Errorf("event %d: invalid loser seat %d", e.ID, e.Win.Loser)
		}
		if e.Win.Payment == nil {
			return fmt.Errorf("event %d: win payment missing", e.ID)
		}
	case EventDraw:
		if e.Draw == nil {
			return fmt.Errorf("event %d: draw body missing", e.ID)
		}
		for _, seat := range e.Draw.TenpaiSeats {
			if !seat.IsValid() {
				return fmt.Errorf("event %d: invalid tenpai seat %d", e.ID, seat)
			}
		}
	case EventReach:
		if e.Reach == nil {
			return fmt.Errorf("event %d: reach body missing", e.ID)
		}
		if !e.Reach.Seat.IsValid() {
			return fmt.Errorf("event %d: invalid reach seat %d", e.ID, e.Reach.Seat)
		}
	case EventUndo:
		if e.Undo == nil {
			return fmt.Errorf("event %d: undo body missing", e.ID)
		}
	default:
		return fmt.Errorf("event %d: unknown type %d", e.ID, e.Type)
	}
	return nil
}

// EventLog 追加型有序事件日志，单场比赛的事实来源
type EventLog struct {
	events []*Event
}

func NewEventLog() *EventLog {
	return &EventLog{events: make([]*Event, 0, 16)}
}

func (l *EventLog) Len() int {
	return len(l.events)
}

// Last 最后一条事件，空日志返回nil
func (l *EventLog) Last() *Event {
	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}

// NextID 下一条事件的序号
func (l *EventLog) NextID() int64 {
	return int64(len(l.events)) + 1
}

func (l *EventLog) Append(e *Event) {
	l.events = append(l.events, e)
}

// Events 全量日志副本，含撤销标记与被撤销事件
func (l *EventLog) Events() []*Event {
	return slices.Clone(l.events)
}

// revertedIDs 收集被撤销的事件序号
func revertedIDs(events []*Event) map[int64]bool {
	ids := make(map[int64]bool)
	for _, e := range events {
		if e.Type == EventUndo && e.Undo != nil {
			ids[e.Undo.Reverted] = true
		}
	}
	return ids
}

// EffectiveEvents 参与折叠的事件：剔除撤销标记与被其引用的事件
func EffectiveEvents(events []*Event) []*Event {
	reverted := revertedIDs(events)
	res := make([]*Event, 0, len(events))
	for _, e := range events {
		if e.Type == EventUndo || reverted[e.ID] {
			continue
		}
		res = append(res, e)
	}
	return res
}
