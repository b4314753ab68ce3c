package riichi

import (
	"fmt"
	"slices"
)

// SeatState 单个座位的当前状态
type SeatState struct {
	Seat       Seat  `json:"seat"`
	Points     int64 `json:"points"`
	Reach      bool  `json:"reach"`
	ReachRound int32 `json:"reach_round,omitempty"` // 立直宣言时的局数
}

// MatchState 一场比赛的聚合状态，是事件日志的折叠结果。
// 终局结算前 sum(points) + kyotaku*立直棒面值 恒定。
type MatchState struct {
	Round      int32              `json:"round"` // 局数，从1起
	Honba      int32              `json:"honba"`
	Kyotaku    int32              `json:"kyotaku"` // 供托立直棒数量
	Dealer     Seat               `json:"dealer"`
	Seats      [4]SeatState       `json:"seats"`
	Phase      Phase              `json:"phase"`
	EndReason  EndReason          `json:"end_reason,omitempty"`
	Settlement []*SettlementEntry `json:"settlement,omitempty"` // 终局时生成，此后不变
}

func newMatchState(rule *Rule) *MatchState {
	s := &MatchState{Round: 1, Dealer: 0, Phase: PhaseWaiting}
	for i := int32(0); i < SeatCount; i++ {
		s.Seats[i] = SeatState{Seat: Seat(i), Points: rule.StartPoints}
	}
	return s
}

// Clone 深拷贝，作为对外快照
func (s *MatchState) Clone() *MatchState {
	c := *s
	if s.Settlement != nil {
		c.Settlement = make([]*SettlementEntry, len(s.Settlement))
		for i, e := range s.Settlement {
			entry := *e
			c.Settlement[i] = &entry
		}
	}
	return &c
}

// TotalPoints 场上点数与供托之和，守恒校验用
func (s *MatchState) TotalPoints(rule *Rule) int64 {
	total := int64(s.Kyotaku) * rule.KyotakuUnit
	for i := range s.Seats {
		total += s.Seats[i].Points
	}
	return total
}

// Fold 从空状态折叠事件日志，撤销标记引用的事件被剔除
func Fold(rule *Rule, events []*Event) (*MatchState, error) {
	s := newMatchState(rule)
	s.Phase = PhasePlaying
	for _, e := range EffectiveEvents(events) {
		if err := s.applyEvent(rule, e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MatchState) applyEvent(rule *Rule, e *Event) error {
	if s.Phase != PhasePlaying {
		return fmt.Errorf("event %d applied in phase %s", e.ID, s.Phase)
	}
	if err := e.check(); err != nil {
		return err
	}
	switch e.Type {
	case EventWin:
		return s.applyWin(rule, e.Win)
	case EventDraw:
		return s.applyDraw(rule, e.Draw)
	case EventReach:
		return s.applyReach(rule, e.Reach)
	case EventUndo:
		return fmt.Errorf("event %d: undo is not foldable", e.ID)
	}
	return fmt.Errorf("event %d: unknown type %d", e.ID, e.Type)
}

// applyWin 按算分结果转移点数，供托全额归赢家，随后结算轮庄
func (s *MatchState) applyWin(rule *Rule, w *WinEvent) error {
	p := w.Payment
	if p == nil {
		return fmt.Errorf("win event missing payment")
	}

	var gain int64
	if w.IsTsumo {
		for i := range s.Seats {
			seat := Seat(i)
			if seat == w.Winner {
				continue
			}
			pay := p.NonDealerPay
			if seat == s.Dealer && w.Winner != s.Dealer {
				pay = p.DealerPay
			}
			s.Seats[i].Points -= pay
			gain += pay
		}
	} else {
		if !w.Loser.IsValid() {
			return fmt.Errorf("ron win without loser")
		}
		s.Seats[w.Loser].Points -= p.LoserPay
		gain += p.LoserPay
	}

	gain += int64(s.Kyotaku) * rule.KyotakuUnit
	s.Kyotaku = 0
	s.Seats[w.Winner].Points += gain

	s.clearReach()
	s.endHand(rule, w.Winner == s.Dealer)
	return nil
}

// applyDraw 流局。荒牌流局做罚符交换，途中流局只连庄
func (s *MatchState) applyDraw(rule *Rule, d *DrawEvent) error {
	if d.Reason.Abortive() {
		s.clearReach()
		s.Honba++
		return nil
	}

	tenpai := make(map[Seat]bool, len(d.TenpaiSeats))
	for _, seat := range d.TenpaiSeats {
		if !seat.IsValid() {
			return fmt.Errorf("draw event: invalid tenpai seat %d", seat)
		}
		tenpai[seat] = true
	}
	for i := range s.Seats {
		if s.Seats[i].Reach && !tenpai[Seat(i)] {
			return fmt.Errorf("draw event: riichi seat %d noten", i)
		}
	}

	s.exchangeNotenPenalty(rule, tenpai)

	dealerTenpai := tenpai[s.Dealer]
	s.clearReach()
	s.endHand(rule, dealerTenpai)
	return nil
}

// exchangeNotenPenalty 未听牌方向听牌方支付罚符，总额固定，
// 除不尽的部分按离庄家由近到远每份100点分摊
func (s *MatchState) exchangeNotenPenalty(rule *Rule, tenpai map[Seat]bool) {
	count := len(tenpai)
	if count == 0 || count == int(SeatCount) {
		return
	}

	tenpaiSeats := s.seatsByDealerOrder(func(seat Seat) bool { return tenpai[seat] })
	notenSeats := s.seatsByDealerOrder(func(seat Seat) bool { return !tenpai[seat] })

	gains := splitShare(rule.NotenPenalty, len(tenpaiSeats))
	pays := splitShare(rule.NotenPenalty, len(notenSeats))
	for i, seat := range tenpaiSeats {
		s.Seats[seat].Points += gains[i]
	}
	for i, seat := range notenSeats {
		s.Seats[seat].Points -= pays[i]
	}
}

func (s *MatchState) applyReach(rule *Rule, r *ReachEvent) error {
	seat := &s.Seats[r.Seat]
	if seat.Reach {
		return fmt.Errorf("reach event: seat %d already riichi", r.Seat)
	}
	seat.Points -= rule.KyotakuUnit
	seat.Reach = true
	seat.ReachRound = r.Round
	s.Kyotaku++
	return nil
}

// endHand 一局结束后的轮庄与终局判定。打飞优先于局数
func (s *MatchState) endHand(rule *Rule, dealerRepeats bool) {
	if rule.TobiEnds && s.anyBusted() {
		s.finish(rule, EndReasonTobi)
		return
	}
	if dealerRepeats {
		s.Honba++
		return
	}
	s.Honba = 0
	s.Dealer = s.Dealer.Next()
	s.Round++
	if s.Round > rule.MaxRounds() && !s.extensionActive(rule) {
		s.finish(rule, EndReasonAllRounds)
	}
}

func (s *MatchState) anyBusted() bool {
	for i := range s.Seats {
		if s.Seats[i].Points <= 0 {
			return true
		}
	}
	return false
}

// extensionActive 延长战：配置了目标分且无人达到时加打，最多extensionRounds局
func (s *MatchState) extensionActive(rule *Rule) bool {
	if rule.TargetPoints <= 0 || s.Round > rule.MaxRounds()+extensionRounds {
		return false
	}
	for i := range s.Seats {
		if s.Seats[i].Points >= rule.TargetPoints {
			return false
		}
	}
	return true
}

// finish 终局：残留供托付给头名后做顺位结算
func (s *MatchState) finish(rule *Rule, reason EndReason) {
	s.Phase = PhaseFinished
	s.EndReason = reason
	if s.Kyotaku > 0 {
		leader := s.rankedSeats()[0]
		s.Seats[leader].Points += int64(s.Kyotaku) * rule.KyotakuUnit
		s.Kyotaku = 0
	}
	s.Settlement = settle(rule, s)
}

func (s *MatchState) clearReach() {
	for i := range s.Seats {
		s.Seats[i].Reach = false
		s.Seats[i].ReachRound = 0
	}
}

// rankedSeats 按点数降序排名，同分时离庄家近者在前
func (s *MatchState) rankedSeats() []Seat {
	seats := []Seat{0, 1, 2, 3}
	slices.SortStableFunc(seats, func(a, b Seat) int {
		if s.Seats[a].Points != s.Seats[b].Points {
			if s.Seats[a].Points > s.Seats[b].Points {
				return -1
			}
			return 1
		}
		return int(a.DistanceFrom(s.Dealer) - b.DistanceFrom(s.Dealer))
	})
	return seats
}

// seatsByDealerOrder 按离庄家由近到远筛选座位
func (s *MatchState) seatsByDealerOrder(keep func(Seat) bool) []Seat {
	res := make([]Seat, 0, SeatCount)
	for i := int32(0); i < SeatCount; i++ {
		seat := Seat((int32(s.Dealer) + i) % SeatCount)
		if keep(seat) {
			res = append(res, seat)
		}
	}
	return res
}

// splitShare 把total拆成n份100的倍数，余数从首位起每份100
func splitShare(total int64, n int) []int64 {
	share := total / int64(n) / 100 * 100
	rem := total - share*int64(n)
	out := make([]int64, n)
	for i := range out {
		out[i] = share
		if rem >= 100 {
			out[i] += 100
			rem -= 100
		}
	}
	return out
}
