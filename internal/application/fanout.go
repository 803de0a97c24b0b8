package application

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Fanout delivers one event to the two consumer channels: the live
// subscriber set and the bus. The sinks are independent; a failure in one
// never blocks or fails the other.
type Fanout struct {
	Subs        Subscribers
	Bus         Bus
	Topic       string
	WaitTimeout time.Duration
	Log         *zap.Logger
}

func NewFanout(subs Subscribers, bus Bus, topic string, wait time.Duration, log *zap.Logger) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	if topic == "" {
		topic = TopicItemUpdates
	}
	return &Fanout{Subs: subs, Bus: bus, Topic: topic, WaitTimeout: wait, Log: log}
}

// Deliver sends the event to live subscribers and publishes it on the bus.
func (f *Fanout) Deliver(ctx context.Context, ev any) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.Log.Warn("event_marshal_failed", zap.Error(err))
		return
	}
	f.DeliverRaw(ctx, payload)
}

// DeliverLive sends the event to live subscribers only. The CRUD surface
// uses it for events the bus must not carry.
func (f *Fanout) DeliverLive(ctx context.Context, ev any) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.Log.Warn("event_marshal_failed", zap.Error(err))
		return
	}
	f.deliverSubs(ctx, payload)
}

// DeliverRaw fans an already-encoded payload out to both sinks.
func (f *Fanout) DeliverRaw(ctx context.Context, payload []byte) {
	f.deliverSubs(ctx, payload)
	if f.Bus != nil {
		if err := f.Bus.Publish(ctx, f.Topic, payload); err != nil {
			f.Log.Warn("bus_publish_failed", zap.String("topic", f.Topic), zap.Error(err))
		}
	}
}

func (f *Fanout) deliverSubs(ctx context.Context, payload []byte) {
	if f.Subs == nil {
		return
	}
	// Absorb the race between "record just changed" and "client still
	// connecting": give a first subscriber a moment to appear.
	if !f.Subs.WaitForAny(ctx, f.WaitTimeout) {
		f.Log.Info("no_live_subscribers", zap.Duration("waited", f.WaitTimeout))
		return
	}
	f.Subs.Broadcast(payload)
}
