package application

import (
	"context"
	"encoding/json"

	"moneyrates-service/internal/domain"

	"go.uber.org/zap"
)

// BusConsumer is the loop-back path: change events arriving on the bus are
// re-applied to local storage so multiple instances converge, then the raw
// payload is re-broadcast to this instance's live subscribers. It never
// republishes to the bus.
type BusConsumer struct {
	repo  ItemRepo
	subs  Subscribers
	clock Clock
	log   *zap.Logger
}

func NewBusConsumer(repo ItemRepo, subs Subscribers, log *zap.Logger) *BusConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &BusConsumer{repo: repo, subs: subs, clock: realClock{}, log: log}
}

type inboundMessage struct {
	Item *ItemPayload `json:"item"`
}

// Handle processes one inbound bus message. Malformed payloads and messages
// without an item code are ignored.
func (c *BusConsumer) Handle(ctx context.Context, payload []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.log.Warn("bus_message_malformed", zap.Error(err))
		return
	}
	if msg.Item == nil || msg.Item.Code == "" {
		return
	}

	it := domain.Item{
		Code:      msg.Item.Code,
		Title:     msg.Item.Code,
		Rate:      msg.Item.Rate,
		Nominal:   nominalOrOne(msg.Item.Nominal),
		Source:    msg.Item.Source,
		IsCrypto:  msg.Item.IsCrypto,
		UpdatedAt: c.clock.Now(),
	}
	if _, err := c.repo.UpsertByCode(ctx, it); err != nil {
		c.log.Warn("bus_upsert_failed", zap.String("code", it.Code), zap.Error(err))
	}

	if c.subs != nil {
		c.subs.Broadcast(payload)
	}
}
