package riichi

import (
	"errors"

	"github.com/spf13/viper"
)

const (
	LengthShort = "short" // 东风战，4局
	LengthFull  = "full"  // 半庄战，8局

	HonbaUnit = 100 // 每本场每个支付方追加的点数

	extensionRounds = 4 // 延长战最多加打的局数
)

// Rule 比赛规则配置，开赛时确定后不再变更
type Rule struct {
	Length       string   `yaml:"length" json:"length"`               // short|full
	StartPoints  int64    `yaml:"start_points" json:"start_points"`   // 起始点数
	Uma          [4]int64 `yaml:"uma" json:"uma"`                     // 顺位马，按名次1-4，和为0
	Oka          int64    `yaml:"oka" json:"oka"`                     // 头名奖励
	TobiEnds     bool     `yaml:"tobi_ends" json:"tobi_ends"`         // 被打飞立即终局
	KyotakuUnit  int64    `yaml:"kyotaku_unit" json:"kyotaku_unit"`   // 立直棒点数
	NotenPenalty int64    `yaml:"noten_penalty" json:"noten_penalty"` // 荒牌流局罚符总额
	TargetPoints int64    `yaml:"target_points" json:"target_points"` // 延长战目标分，0表示不延长
}

// DefaultRule 常规半庄规则
func DefaultRule() *Rule {
	return &Rule{
		Length:       LengthFull,
		StartPoints:  25000,
		Uma:          [4]int64{15000, 5000, -5000, -15000},
		Oka:          0,
		TobiEnds:     true,
		KyotakuUnit:  1000,
		NotenPenalty: 3000,
		TargetPoints: 0,
	}
}

// LoadRule 从viper配置读取规则，缺省项取默认值
func LoadRule(v *viper.Viper) (*Rule, error) {
	r := DefaultRule()
	if err := v.Unmarshal(r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MaxRounds 配置局数
func (r *Rule) MaxRounds() int32 {
	if r.Length == LengthShort {
		return 4
	}
	return 8
}

// Validate 校验规则自洽
func (r *Rule) Validate() error {
	if r.Length != LengthShort && r.Length != LengthFull {
		return errors.New("length must be short or full")
	}
	if r.StartPoints <= 0 || r.StartPoints%100 != 0 {
		return errors.New("start_points must be a positive multiple of 100")
	}
	var umaSum int64
	for _, u := range r.Uma {
		umaSum += u
	}
	if umaSum != 0 {
		return errors.New("uma values must sum to zero")
	}
	if r.KyotakuUnit <= 0 || r.KyotakuUnit%100 != 0 {
		return errors.New("kyotaku_unit must be a positive multiple of 100")
	}
	if r.NotenPenalty < 0 || r.NotenPenalty%100 != 0 {
		return errors.New("noten_penalty must be a non-negative multiple of 100")
	}
	if r.Oka < 0 {
		return errors.New("oka must be non-negative")
	}
	if r.TargetPoints < 0 {
		return errors.New("target_points must be non-negative")
	}
	return nil
}
