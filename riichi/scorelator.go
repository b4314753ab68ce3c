package riichi

// 番符算分器：把(番,符,庄闲,自摸/荣和,本场,供托)换算成各支付方的点数。
// 纯函数，不依赖对局状态。

const (
	HanYakuman = 13 // 役满番数哨兵，>=13按役满结算

	kyotakuUnit = 1000 // 供托立直棒面值
)

// ScoreResult 算分结果，按支付方拆分，已含本场加点
type ScoreResult struct {
	Han          int32 `json:"han"`
	Fu           int32 `json:"fu"`
	Base         int64 `json:"base"`           // 基本点
	DealerPay    int64 `json:"dealer_pay"`     // 闲家自摸时庄家支付
	NonDealerPay int64 `json:"non_dealer_pay"` // 自摸时每个闲家支付
	LoserPay     int64 `json:"loser_pay"`      // 荣和时放铳者支付
	Kyotaku      int64 `json:"kyotaku"`        // 供托点数，全额归赢家，不参与进位
	WinnerGain   int64 `json:"winner_gain"`    // 赢家总得
}

var validFu = map[int32]bool{
	20: true, 25: true, 30: true, 40: true, 50: true,
	60: true, 70: true, 80: true, 90: true, 100: true, 110: true,
}

// ValidateHanFu 番符合法性校验，调用CalcScore前必须通过
func ValidateHanFu(han, fu int32) error {
	if han < 1 {
		return ErrInvalidHanFu
	}
	if han >= HanYakuman {
		// 役满不计符
		return nil
	}
	if !validFu[fu] {
		return ErrInvalidHanFu
	}
	// 20符(平和自摸)与25符(七对)不存在1番的形
	if (fu == 20 || fu == 25) && han < 2 {
		return ErrInvalidHanFu
	}
	return nil
}

// CalcScore 算分。调用方需先通过ValidateHanFu校验
func CalcScore(han, fu int32, isDealer, isTsumo bool, honba, kyotaku int32) *ScoreResult {
	base := basePoints(han, fu)
	r := &ScoreResult{
		Han:     han,
		Fu:      fu,
		Base:    base,
		Kyotaku: int64(kyotaku) * kyotakuUnit,
	}

	hb := int64(honba) * HonbaUnit
	if isTsumo {
		if isDealer {
			// 庄家自摸三家均付
			r.NonDealerPay = ceil100(base*2) + hb
			r.WinnerGain = r.NonDealerPay * 3
		} else {
			r.DealerPay = ceil100(base*2) + hb
			r.NonDealerPay = ceil100(base) + hb
			r.WinnerGain = r.DealerPay + r.NonDealerPay*2
		}
	} else {
		mult := int64(4)
		if isDealer {
			mult = 6
		}
		r.LoserPay = ceil100(base*mult) + hb*3
		r.WinnerGain = r.LoserPay
	}

	r.WinnerGain += r.Kyotaku
	return r
}

// basePoints 基本点。4番40符及以上、3番70符及以上进满贯，5番起查表
func basePoints(han, fu int32) int64 {
	switch {
	case han >= HanYakuman:
		return 8000 // 役满
	case han >= 11:
		return 6000 // 三倍满
	case han >= 8:
		return 4000 // 倍满
	case han >= 6:
		return 3000 // 跳满
	case han >= 5:
		return 2000 // 满贯
	}
	base := int64(fu) << (2 + uint(han))
	if base > 2000 {
		base = 2000 // 切上满贯
	}
	return base
}

// ceil100 向上取整到100
func ceil100(v int64) int64 {
	return (v + 99) / 100 * 100
}
