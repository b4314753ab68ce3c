package riichi_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kevin-chtw/tw_riichi/riichi"
)

func newPlayingGame(t *testing.T, rule *riichi.Rule) *riichi.Game {
	t.Helper()
	g := riichi.NewGame(rule)
	if err := g.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	return g
}

func mustCommit(t *testing.T, g *riichi.Game, ev *riichi.Event, err error) *riichi.MatchState {
	t.Helper()
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	st, err := g.Commit(ev)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return st
}

func winTsumo(t *testing.T, g *riichi.Game, winner riichi.Seat, han, fu int32) *riichi.MatchState {
	t.Helper()
	st := g.State()
	sr := riichi.CalcScore(han, fu, winner == st.Dealer, true, st.Honba, st.Kyotaku)
	ev, err := g.DistributeWinPoints(winner, sr, true, riichi.SeatNull)
	return mustCommit(t, g, ev, err)
}

func winRon(t *testing.T, g *riichi.Game, winner, loser riichi.Seat, han, fu int32) *riichi.MatchState {
	t.Helper()
	st := g.State()
	sr := riichi.CalcScore(han, fu, winner == st.Dealer, false, st.Honba, st.Kyotaku)
	ev, err := g.DistributeWinPoints(winner, sr, false, loser)
	return mustCommit(t, g, ev, err)
}

// 起始25000，庄家3番30符自摸：三家各付2000，连庄本场+1
func TestDealerTsumoScenario(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	st := winTsumo(t, g, 0, 3, 30)

	wantPoints := []int64{31000, 23000, 23000, 23000}
	for i, want := range wantPoints {
		if got := st.Seats[i].Points; got != want {
			t.Errorf("seat %d points = %d, want %d", i, got, want)
		}
	}
	if st.Dealer != 0 {
		t.Errorf("dealer = %d, want 0 (dealer repeats)", st.Dealer)
	}
	if st.Honba != 1 {
		t.Errorf("honba = %d, want 1", st.Honba)
	}
	if st.Round != 1 {
		t.Errorf("round = %d, want 1", st.Round)
	}
}

// 闲家荣和：放铳者单独支付，庄家下庄，本场清零
func TestRonRotatesDealer(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	st := winRon(t, g, 2, 3, 2, 30)

	if got := st.Seats[2].Points; got != 27000 {
		t.Errorf("winner points = %d, want 27000", got)
	}
	if got := st.Seats[3].Points; got != 23000 {
		t.Errorf("loser points = %d, want 23000", got)
	}
	if st.Dealer != 1 || st.Round != 2 || st.Honba != 0 {
		t.Errorf("rotation got dealer=%d round=%d honba=%d, want 1/2/0", st.Dealer, st.Round, st.Honba)
	}
}

func TestDeclareReach(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.DeclareReach(2)
	st := mustCommit(t, g, ev, err)

	if got := st.Seats[2].Points; got != 24000 {
		t.Errorf("points after riichi = %d, want 24000", got)
	}
	if st.Kyotaku != 1 {
		t.Errorf("kyotaku = %d, want 1", st.Kyotaku)
	}
	if !st.Seats[2].Reach || st.Seats[2].ReachRound != 1 {
		t.Errorf("reach flag not set: %+v", st.Seats[2])
	}

	if _, err := g.DeclareReach(2); !errors.Is(err, riichi.ErrAlreadyReach) {
		t.Errorf("second riichi = %v, want ErrAlreadyReach", err)
	}
	if _, err := g.DeclareReach(5); !errors.Is(err, riichi.ErrInvalidSeat) {
		t.Errorf("invalid seat = %v, want ErrInvalidSeat", err)
	}
}

func TestDeclareReachNotEnoughPoints(t *testing.T) {
	rule := riichi.DefaultRule()
	rule.StartPoints = 900
	g := newPlayingGame(t, rule)
	if _, err := g.DeclareReach(0); !errors.Is(err, riichi.ErrNotEnoughPoints) {
		t.Errorf("riichi with 900 points = %v, want ErrNotEnoughPoints", err)
	}
}

// 立直家未听牌的流局必须被拒绝，而不是静默通过
func TestRyukyokuRejectsNotenRiichi(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.DeclareReach(1)
	mustCommit(t, g, ev, err)

	if _, err := g.HandleRyukyoku(riichi.DrawExhaustive, nil); !errors.Is(err, riichi.ErrReachNotTenpai) {
		t.Errorf("ryukyoku without riichi seat = %v, want ErrReachNotTenpai", err)
	}
	if _, err := g.HandleRyukyoku(riichi.DrawExhaustive, []riichi.Seat{2, 3}); !errors.Is(err, riichi.ErrReachNotTenpai) {
		t.Errorf("ryukyoku omitting riichi seat = %v, want ErrReachNotTenpai", err)
	}
	// 名单包含立直家则通过
	ev, err = g.HandleRyukyoku(riichi.DrawExhaustive, []riichi.Seat{1})
	st := mustCommit(t, g, ev, err)
	if got := st.Seats[1].Points; got != 27000 {
		t.Errorf("tenpai riichi seat points = %d, want 27000", got)
	}
}

// 荒牌流局罚符：1家听牌收3000，3家未听各付1000
func TestRyukyokuNotenExchange(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.HandleRyukyoku(riichi.DrawExhaustive, []riichi.Seat{1})
	st := mustCommit(t, g, ev, err)

	wantPoints := []int64{24000, 28000, 24000, 24000}
	for i, want := range wantPoints {
		if got := st.Seats[i].Points; got != want {
			t.Errorf("seat %d points = %d, want %d", i, got, want)
		}
	}
	// 庄家未听，下庄
	if st.Dealer != 1 || st.Round != 2 || st.Honba != 0 {
		t.Errorf("rotation got dealer=%d round=%d honba=%d, want 1/2/0", st.Dealer, st.Round, st.Honba)
	}
}

// 罚符除不尽时，多出的100按离庄家由近到远分摊，收付两侧同理
func TestRyukyokuNotenRemainderSplit(t *testing.T) {
	tests := []struct {
		name       string
		tenpai     []riichi.Seat
		wantPoints []int64
	}{
		// 3家听牌分1000：下家1先得400，2/3家各300；庄家独付1000
		{"gain side", []riichi.Seat{1, 2, 3}, []int64{24000, 25400, 25300, 25300}},
		// 3家未听付1000：庄家先付400，1/3家各300；2家独得1000
		{"pay side", []riichi.Seat{2}, []int64{24600, 24700, 26000, 24700}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := riichi.DefaultRule()
			rule.NotenPenalty = 1000
			g := newPlayingGame(t, rule)
			ev, err := g.HandleRyukyoku(riichi.DrawExhaustive, tt.tenpai)
			st := mustCommit(t, g, ev, err)
			for i, want := range tt.wantPoints {
				if got := st.Seats[i].Points; got != want {
					t.Errorf("seat %d points = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestRyukyokuDealerTenpaiRepeats(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.HandleRyukyoku(riichi.DrawExhaustive, []riichi.Seat{0, 2})
	st := mustCommit(t, g, ev, err)

	if st.Dealer != 0 || st.Round != 1 || st.Honba != 1 {
		t.Errorf("dealer tenpai got dealer=%d round=%d honba=%d, want 0/1/1", st.Dealer, st.Round, st.Honba)
	}
	wantPoints := []int64{26500, 23500, 26500, 23500}
	for i, want := range wantPoints {
		if got := st.Seats[i].Points; got != want {
			t.Errorf("seat %d points = %d, want %d", i, got, want)
		}
	}
}

// 全员听牌或全员未听时不转移点数
func TestRyukyokuAllTenpaiNoExchange(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.HandleRyukyoku(riichi.DrawExhaustive, []riichi.Seat{0, 1, 2, 3})
	st := mustCommit(t, g, ev, err)
	for i := range st.Seats {
		if st.Seats[i].Points != 25000 {
			t.Errorf("seat %d points = %d, want 25000", i, st.Seats[i].Points)
		}
	}
}

// 途中流局：不做罚符交换，庄家连庄
func TestAbortiveDraw(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.HandleRyukyoku(riichi.DrawNineTerminals, nil)
	st := mustCommit(t, g, ev, err)

	if st.Dealer != 0 || st.Round != 1 || st.Honba != 1 {
		t.Errorf("abortive draw got dealer=%d round=%d honba=%d, want 0/1/1", st.Dealer, st.Round, st.Honba)
	}
	for i := range st.Seats {
		if st.Seats[i].Points != 25000 {
			t.Errorf("seat %d points changed on abortive draw", i)
		}
	}
}

// 供托由下一个和牌者全取
func TestKyotakuGoesToWinner(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.DeclareReach(1)
	mustCommit(t, g, ev, err)
	st := winRon(t, g, 2, 3, 2, 30)

	if got := st.Seats[2].Points; got != 28000 {
		t.Errorf("winner points = %d, want 28000 (2000 ron + 1000 kyotaku)", got)
	}
	if st.Kyotaku != 0 {
		t.Errorf("kyotaku = %d, want 0", st.Kyotaku)
	}
	if st.Seats[1].Reach {
		t.Error("reach flag must clear at hand end")
	}
}

// 任意合法操作序列下，场上点数+供托恒定
func TestConservation(t *testing.T) {
	rule := riichi.DefaultRule()
	g := newPlayingGame(t, rule)
	total := rule.StartPoints * int64(riichi.SeatCount)

	check := func(step string) {
		if got := g.State().TotalPoints(rule); got != total {
			t.Fatalf("%s: total points = %d, want %d", step, got, total)
		}
	}

	ev, err := g.DeclareReach(3)
	mustCommit(t, g, ev, err)
	check("after riichi")

	winTsumo(t, g, 0, 3, 30)
	check("after dealer tsumo")

	ev, err = g.HandleRyukyoku(riichi.DrawExhaustive, []riichi.Seat{1, 2})
	mustCommit(t, g, ev, err)
	check("after ryukyoku")

	winRon(t, g, 3, 1, 5, 30)
	check("after mangan ron")

	ev, err = g.UndoLastEvent()
	mustCommit(t, g, ev, err)
	check("after undo")
}

// 撤销后状态与事件发生前完全一致，全量重放可复现当前状态
func TestUndoRestoresState(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	ev, err := g.DeclareReach(1)
	mustCommit(t, g, ev, err)

	before := g.State()
	winRon(t, g, 2, 3, 4, 40)

	ev, err = g.UndoLastEvent()
	after := mustCommit(t, g, ev, err)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("undo state mismatch:\nbefore = %+v\nafter  = %+v", before, after)
	}

	// 被撤销的事件仍在日志里，重放时被剔除
	events := g.Events()
	if len(events) != 3 {
		t.Fatalf("log length = %d, want 3", len(events))
	}
	replayed, err := riichi.Fold(g.Rule(), events)
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if !reflect.DeepEqual(replayed, g.State()) {
		t.Errorf("replay mismatch:\nreplayed = %+v\ncurrent  = %+v", replayed, g.State())
	}
}

// 存储中被篡改或损坏的事件折叠时报坏日志错误，不允许崩溃
func TestRestoreRejectsCorruptedLog(t *testing.T) {
	payment := riichi.CalcScore(2, 30, false, false, 0, 0)
	tests := []struct {
		name  string
		event *riichi.Event
	}{
		{"winner out of range", &riichi.Event{ID: 1, Type: riichi.EventWin,
			Win: &riichi.WinEvent{Winner: 9, Loser: 0, Han: 2, Fu: 30, Payment: payment}}},
		{"loser out of range", &riichi.Event{ID: 1, Type: riichi.EventWin,
			Win: &riichi.WinEvent{Winner: 0, Loser: 7, Han: 2, Fu: 30, Payment: payment}}},
		{"payment missing", &riichi.Event{ID: 1, Type: riichi.EventWin,
			Win: &riichi.WinEvent{Winner: 0, Loser: 1, Han: 2, Fu: 30}}},
		{"reach seat out of range", &riichi.Event{ID: 1, Type: riichi.EventReach,
			Reach: &riichi.ReachEvent{Seat: -2, Round: 1}}},
		{"tenpai seat out of range", &riichi.Event{ID: 1, Type: riichi.EventDraw,
			Draw: &riichi.DrawEvent{Reason: riichi.DrawExhaustive, TenpaiSeats: []riichi.Seat{4}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := riichi.Restore(riichi.DefaultRule(), []*riichi.Event{tt.event})
			if err == nil {
				t.Fatal("corrupted event accepted")
			}
			if got := riichi.CodeOf(err); got != riichi.CodeCorruptedLog {
				t.Errorf("error code = %d, want %d", got, riichi.CodeCorruptedLog)
			}
		})
	}
}

func TestUndoValidation(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	if _, err := g.UndoLastEvent(); !errors.Is(err, riichi.ErrEmptyLog) {
		t.Errorf("undo on empty log = %v, want ErrEmptyLog", err)
	}

	ev, err := g.DeclareReach(0)
	mustCommit(t, g, ev, err)
	ev, err = g.UndoLastEvent()
	mustCommit(t, g, ev, err)

	if _, err := g.UndoLastEvent(); !errors.Is(err, riichi.ErrUndoAfterUndo) {
		t.Errorf("undo after undo = %v, want ErrUndoAfterUndo", err)
	}
}

func TestWinValidation(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	sr := riichi.CalcScore(2, 30, false, false, 0, 0)

	if _, err := g.DistributeWinPoints(2, sr, false, 2); !errors.Is(err, riichi.ErrSameWinnerLoser) {
		t.Errorf("winner==loser = %v, want ErrSameWinnerLoser", err)
	}
	if _, err := g.DistributeWinPoints(2, sr, true, 3); !errors.Is(err, riichi.ErrTsumoLoser) {
		t.Errorf("tsumo with loser = %v, want ErrTsumoLoser", err)
	}
	if _, err := g.DistributeWinPoints(2, sr, false, riichi.SeatNull); !errors.Is(err, riichi.ErrRonNoLoser) {
		t.Errorf("ron without loser = %v, want ErrRonNoLoser", err)
	}
	bad := riichi.CalcScore(1, 20, false, false, 0, 0)
	if _, err := g.DistributeWinPoints(2, bad, false, 3); !errors.Is(err, riichi.ErrInvalidHanFu) {
		t.Errorf("invalid han/fu = %v, want ErrInvalidHanFu", err)
	}
	// 被拒绝的操作不留下任何事件
	if len(g.Events()) != 0 {
		t.Errorf("rejected operations must not append events, log=%d", len(g.Events()))
	}
}

// 被打飞立即终局，与局数无关
func TestTobiEndsMatch(t *testing.T) {
	g := newPlayingGame(t, riichi.DefaultRule())
	st := winRon(t, g, 0, 3, 13, 0) // 庄家役满直击48000

	if st.Phase != riichi.PhaseFinished {
		t.Fatalf("phase = %s, want finished", st.Phase)
	}
	if st.EndReason != riichi.EndReasonTobi {
		t.Errorf("end reason = %s, want tobi", st.EndReason)
	}
	if got := st.Seats[3].Points; got != -23000 {
		t.Errorf("busted seat points = %d, want -23000", got)
	}
	if st.Settlement == nil {
		t.Fatal("settlement missing at finish")
	}

	// 终局后一切操作被拒绝
	if _, err := g.DeclareReach(0); !errors.Is(err, riichi.ErrMatchFinished) {
		t.Errorf("reach after finish = %v, want ErrMatchFinished", err)
	}
	if _, err := g.UndoLastEvent(); !errors.Is(err, riichi.ErrMatchFinished) {
		t.Errorf("undo after finish = %v, want ErrMatchFinished", err)
	}
}

func TestTobiDisabled(t *testing.T) {
	rule := riichi.DefaultRule()
	rule.TobiEnds = false
	g := newPlayingGame(t, rule)
	st := winRon(t, g, 0, 3, 13, 0)
	if st.Phase != riichi.PhasePlaying {
		t.Errorf("phase = %s, want playing when tobi disabled", st.Phase)
	}
}

// 东风战4局打完即终局
func TestMatchEndsAfterAllRounds(t *testing.T) {
	rule := riichi.DefaultRule()
	rule.Length = riichi.LengthShort
	g := newPlayingGame(t, rule)

	var st *riichi.MatchState
	for i := 0; i < 4; i++ {
		ev, err := g.HandleRyukyoku(riichi.DrawExhaustive, nil)
		st = mustCommit(t, g, ev, err)
	}
	if st.Phase != riichi.PhaseFinished {
		t.Fatalf("phase = %s, want finished after 4 rounds", st.Phase)
	}
	if st.EndReason != riichi.EndReasonAllRounds {
		t.Errorf("end reason = %s, want all_rounds", st.EndReason)
	}
}

// 配置了目标分且无人达到时延长
func TestExtensionRounds(t *testing.T) {
	rule := riichi.DefaultRule()
	rule.Length = riichi.LengthShort
	rule.TargetPoints = 30000
	g := newPlayingGame(t, rule)

	var st *riichi.MatchState
	for i := 0; i < 4; i++ {
		ev, err := g.HandleRyukyoku(riichi.DrawExhaustive, nil)
		st = mustCommit(t, g, ev, err)
	}
	if st.Phase != riichi.PhasePlaying {
		t.Fatalf("phase = %s, want playing (extension active)", st.Phase)
	}

	// 有人过目标分后的下一次轮庄终局
	st = winRon(t, g, 1, 2, 5, 30)
	if st.Phase != riichi.PhaseFinished {
		t.Errorf("phase = %s, want finished once target reached", st.Phase)
	}
}
