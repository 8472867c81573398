// Package notify pushes wallet changes to clients subscribed over Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/planmoni/planmoni-backend/internal/models"
	"github.com/planmoni/planmoni-backend/internal/worker"
)

const publishTimeout = 3 * time.Second

func Channel(userID string) string { return "wallet:" + userID }

type WalletMessage struct {
	UserID string            `json:"user_id"`
	Reason string            `json:"reason"`
	Wallet models.WalletView `json:"wallet"`
	At     time.Time         `json:"at"`
}

// Publisher publishes off the request path through the worker pool.
type Publisher struct {
	rdb redis.UniversalClient
	wp  *worker.Pool
	log *zap.Logger
}

func NewPublisher(rdb redis.UniversalClient, wp *worker.Pool, log *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, wp: wp, log: log}
}

func (p *Publisher) WalletChanged(userID, reason string, w models.Wallet) {
	msg := WalletMessage{UserID: userID, Reason: reason, Wallet: w.View(), At: time.Now().UTC()}
	ok := p.wp.Submit(func() {
		b, err := json.Marshal(msg)
		if err != nil {
			p.log.Error("encode wallet message", zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.rdb.Publish(ctx, Channel(userID), b).Err(); err != nil {
			p.log.Warn("publish wallet message", zap.String("user_id", userID), zap.Error(err))
		}
	})
	if !ok {
		p.log.Warn("worker queue full, wallet notification dropped", zap.String("user_id", userID))
	}
}

// Nop discards notifications when Redis is not configured.
type Nop struct{}

func (Nop) WalletChanged(string, string, models.Wallet) {}
