package storage

// Copyright (c) TFG Co. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/topfreegames/pitaya/v3/pkg/cluster"
	"github.com/topfreegames/pitaya/v3/pkg/config"
	"github.com/topfreegames/pitaya/v3/pkg/constants"
	"github.com/topfreegames/pitaya/v3/pkg/logger"
	"github.com/topfreegames/pitaya/v3/pkg/modules"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
)

// MatchBinding 比赛与承载它的游戏服的绑定关系
type MatchBinding struct {
	ServerId   string `json:"server_id"`
	ServerType string `json:"server_type"`
	GameType   string `json:"game_type"`
}

// ETCDMatchBinding 用etcd记录每场比赛由哪台游戏服持有，
// 代理层据此把比赛操作路由到对应的服务。绑定随租约过期自动清理
type ETCDMatchBinding struct {
	modules.Base
	cli             *clientv3.Client
	etcdEndpoints   []string
	etcdPrefix      string
	etcdDialTimeout time.Duration
	leaseTTL        time.Duration
	leaseID         clientv3.LeaseID
	thisServer      *cluster.Server
	gameType        string
	stopChan        chan struct{}
}

// NewETCDMatchBinding 创建比赛绑定模块
func NewETCDMatchBinding(server *cluster.Server, gameType string, conf config.ETCDBindingConfig) *ETCDMatchBinding {
	return &ETCDMatchBinding{
		thisServer:      server,
		gameType:        gameType,
		etcdDialTimeout: conf.DialTimeout,
		etcdEndpoints:   conf.Endpoints,
		etcdPrefix:      conf.Prefix,
		leaseTTL:        conf.LeaseTTL,
		stopChan:        make(chan struct{}),
	}
}

func matchBindingKey(matchID string) string {
	return fmt.Sprintf("match/%s", matchID)
}

// Put 记录比赛归属于本服
func (b *ETCDMatchBinding) Put(matchID string) error {
	binding := MatchBinding{
		ServerId:   b.thisServer.ID,
		ServerType: b.thisServer.Type,
		GameType:   b.gameType,
	}
	value, err := json.Marshal(binding)
	if err != nil {
		return err
	}
	_, err = b.cli.Put(context.Background(), matchBindingKey(matchID), string(value), clientv3.WithLease(b.leaseID))
	return err
}

// Remove 比赛结束后解除绑定
func (b *ETCDMatchBinding) Remove(matchID string) error {
	_, err := b.cli.Delete(context.Background(), matchBindingKey(matchID))
	return err
}

// Get 查询一场比赛由哪台服务持有
func (b *ETCDMatchBinding) Get(matchID string) (*MatchBinding, error) {
	etcdRes, err := b.cli.Get(context.Background(), matchBindingKey(matchID))
	if err != nil {
		return nil, err
	}
	if len(etcdRes.Kvs) == 0 {
		return nil, constants.ErrBindingNotFound
	}
	binding := &MatchBinding{}
	err = json.Unmarshal(etcdRes.Kvs[0].Value, binding)
	return binding, err
}

func (b *ETCDMatchBinding) watchLeaseChan(c <-chan *clientv3.LeaseKeepAliveResponse) {
	for {
		select {
		case <-b.stopChan:
			return
		case kaRes := <-c:
			if kaRes == nil {
				logger.Log.Warn("[match binding] error renewing etcd lease, rebootstrapping")
				for {
					if err := b.bootstrapLease(); err != nil {
						logger.Log.Warn("[match binding] error rebootstrapping lease, will retry in 5 seconds")
						time.Sleep(5 * time.Second)
						continue
					}
					return
				}
			}
		}
	}
}

func (b *ETCDMatchBinding) bootstrapLease() error {
	l, err := b.cli.Grant(context.TODO(), int64(b.leaseTTL.Seconds()))
	if err != nil {
		return err
	}
	b.leaseID = l.ID
	logger.Log.Debugf("[match binding] got leaseID: %x", l.ID)
	c, err := b.cli.KeepAlive(context.TODO(), b.leaseID)
	if err != nil {
		return err
	}
	<-c
	go b.watchLeaseChan(c)
	return nil
}

// Init 启动模块
func (b *ETCDMatchBinding) Init() error {
	if b.cli == nil {
		cli, err := clientv3.New(clientv3.Config{
			Endpoints:   b.etcdEndpoints,
			DialTimeout: b.etcdDialTimeout,
		})
		if err != nil {
			return err
		}
		b.cli = cli
	}
	b.cli.KV = namespace.NewKV(b.cli.KV, b.etcdPrefix)
	return b.bootstrapLease()
}

// Shutdown 停止模块并断开etcd
func (b *ETCDMatchBinding) Shutdown() error {
	close(b.stopChan)
	return b.cli.Close()
}
