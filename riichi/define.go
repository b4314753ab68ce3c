package riichi

// Seat 座位号，0-3循环，庄家座位按局轮转
type Seat int32

const (
	SeatNull  Seat  = -1
	SeatCount int32 = 4
)

// IsValid 是否为有效座位
func (s Seat) IsValid() bool {
	return s >= 0 && int32(s) < SeatCount
}

// Next 下一个座位
func (s Seat) Next() Seat {
	return Seat((int32(s) + 1) % SeatCount)
}

// DistanceFrom 按出牌顺序距离庄家的位置，庄家自身为0
func (s Seat) DistanceFrom(dealer Seat) int32 {
	return (int32(s) - int32(dealer) + SeatCount) % SeatCount
}

// Phase 比赛阶段
type Phase int32

const (
	PhaseWaiting  Phase = iota // 等待开赛
	PhasePlaying               // 对局中
	PhaseFinished              // 已终局，不再接受任何操作
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// DrawReason 流局原因
type DrawReason int32

const (
	DrawExhaustive    DrawReason = iota // 荒牌流局，听牌/未听牌罚符交换
	DrawNineTerminals                   // 九种九牌
	DrawFourWinds                       // 四风连打
	DrawFourRiichi                      // 四家立直
	DrawFourKan                         // 四杠散了
)

var drawReasonNames = map[DrawReason]string{
	DrawExhaustive:    "exhaustive",
	DrawNineTerminals: "nine_terminals",
	DrawFourWinds:     "four_winds",
	DrawFourRiichi:    "four_riichi",
	DrawFourKan:       "four_kan",
}

func (r DrawReason) String() string {
	if name, ok := drawReasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsValid 是否为已定义的流局原因
func (r DrawReason) IsValid() bool {
	_, ok := drawReasonNames[r]
	return ok
}

// Abortive 是否为途中流局，途中流局不做罚符交换，庄家连庄
func (r DrawReason) Abortive() bool {
	return r != DrawExhaustive
}

// ParseDrawReason 从字符串解析流局原因
func ParseDrawReason(name string) (DrawReason, bool) {
	for r, n := range drawReasonNames {
		if n == name {
			return r, true
		}
	}
	return DrawExhaustive, false
}

// EndReason 终局原因
type EndReason string

const (
	EndReasonNone      EndReason = ""
	EndReasonAllRounds EndReason = "all_rounds" // 打满配置局数
	EndReasonTobi      EndReason = "tobi"       // 有人被打飞
)
