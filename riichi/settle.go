package riichi

// SettlementEntry 终局顺位结算，产生一次后不再变更
type SettlementEntry struct {
	Seat        Seat  `json:"seat"`
	FinalPoints int64 `json:"final_points"`
	Rank        int32 `json:"rank"` // 1-4，同分时离庄家近者名次高
	Uma         int64 `json:"uma"`
	Oka         int64 `json:"oka"`
	Settlement  int64 `json:"settlement"` // 终点-起点+马+奖励
}

// settle 顺位结算。除配置的头名奖励外，四家结算值之和为0
func settle(rule *Rule, s *MatchState) []*SettlementEntry {
	ranked := s.rankedSeats()
	entries := make([]*SettlementEntry, SeatCount)
	for rank, seat := range ranked {
		e := &SettlementEntry{
			Seat:        seat,
			FinalPoints: s.Seats[seat].Points,
			Rank:        int32(rank) + 1,
			Uma:         rule.Uma[rank],
		}
		if rank == 0 {
			e.Oka = rule.Oka
		}
		e.Settlement = e.FinalPoints - rule.StartPoints + e.Uma + e.Oka
		entries[seat] = e
	}
	return entries
}
