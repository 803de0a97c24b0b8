package application

import (
	"time"

	"moneyrates-service/internal/domain"
)

// TopicItemUpdates is the bus topic every change event is published to and
// every instance subscribes to for the loop-back path.
const TopicItemUpdates = "items.updates"

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// ItemPayload is the public snapshot of an item carried on the wire.
// Field names are fixed; subscribers on other instances depend on them.
type ItemPayload struct {
	ID        *int64     `json:"id,omitempty"`
	Code      string     `json:"code"`
	Title     string     `json:"title,omitempty"`
	Rate      float64    `json:"rate"`
	Nominal   int        `json:"nominal"`
	Source    string     `json:"source"`
	IsCrypto  bool       `json:"is_crypto"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ChangeEvent is a created/updated notification for one item.
type ChangeEvent struct {
	Type EventType   `json:"type"`
	Item ItemPayload `json:"item"`
}

// DeleteEvent is emitted by the CRUD surface only, never by the pipeline.
type DeleteEvent struct {
	Type EventType `json:"type"`
	ID   int64     `json:"id"`
}

// NewChangeEvent builds the pipeline-shaped event: core rate fields only.
func NewChangeEvent(t EventType, it domain.Item) ChangeEvent {
	return ChangeEvent{
		Type: t,
		Item: ItemPayload{
			Code:     it.Code,
			Rate:     it.Rate,
			Nominal:  it.Nominal,
			Source:   it.Source,
			IsCrypto: it.IsCrypto,
		},
	}
}

// NewItemEvent builds the CRUD-shaped event carrying the full record.
func NewItemEvent(t EventType, it domain.Item) ChangeEvent {
	ev := NewChangeEvent(t, it)
	id := it.ID
	ts := it.UpdatedAt
	ev.Item.ID = &id
	ev.Item.Title = it.Title
	ev.Item.UpdatedAt = &ts
	return ev
}

func NewDeleteEvent(id int64) DeleteEvent {
	return DeleteEvent{Type: EventDeleted, ID: id}
}
