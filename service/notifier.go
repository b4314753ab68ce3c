package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kevin-chtw/tw_riichi/riichi"
	"github.com/nats-io/nats.go"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
)

// NatsNotifier 通过nats把状态变更扇出给接入层，
// 订阅方自行推送到各自持有的连接
type NatsNotifier struct {
	nc *nats.Conn
}

func NewNatsNotifier(nc *nats.Conn) *NatsNotifier {
	return &NatsNotifier{nc: nc}
}

// StatePush 通知载荷，携带完整状态快照
type StatePush struct {
	MatchID string             `json:"match_id"`
	Event   string             `json:"event"`
	State   *riichi.MatchState `json:"state"`
	Ts      int64              `json:"ts"`
}

func matchSubject(matchID string) string {
	return fmt.Sprintf("riichi.match.%s", matchID)
}

// Notify 提交成功后发布通知。发布失败不影响已提交的状态
func (n *NatsNotifier) Notify(ctx context.Context, matchID, event string, state *riichi.MatchState) error {
	push := &StatePush{
		MatchID: matchID,
		Event:   event,
		State:   state,
		Ts:      time.Now().UnixMilli(),
	}
	data, err := json.Marshal(push)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(matchSubject(matchID), data); err != nil {
		return err
	}
	logger.Log.Debugf("match %s: published %s", matchID, event)
	return nil
}
