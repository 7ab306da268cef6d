package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/parkgo/internal/domain"
)

// LotPubSub fans lot changes out over a Redis channel so that every
// instance can push them to its connected clients.
type LotPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewLotPubSub(rdb *redis.Client) *LotPubSub {
	return &LotPubSub{
		rdb:     rdb,
		channel: ChannelLotChanged(),
	}
}

type lotChangedMsg struct {
	Type string `json:"type"`
	domain.LotEvent
}

func (p *LotPubSub) PublishLotChanged(ctx context.Context, ev domain.LotEvent) error {
	const op = "repository.redis.LotPubSub.PublishLotChanged"

	b, err := json.Marshal(lotChangedMsg{Type: "lot_changed", LotEvent: ev})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Subscribe calls handler for every lot change until ctx is done.
// Malformed messages are dropped.
func (p *LotPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.LotEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no message is missed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			ev, ok := decodeLotChanged(m.Payload)
			if ok {
				handler(ctx, ev)
			}
		}
	}
}

func decodeLotChanged(payload string) (domain.LotEvent, bool) {
	var msg lotChangedMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return domain.LotEvent{}, false
	}

	if msg.Type != "lot_changed" || msg.Kind == "" {
		return domain.LotEvent{}, false
	}

	return msg.LotEvent, true
}
