package queue

import (
	"encoding/json"
	"time"
)

type EntityType string

const (
	EntityProduct EntityType = "product"
	EntitySale    EntityType = "sale"
	EntityStock   EntityType = "stock"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Item - одна единица исходящей синхронизации, повторяемая независимо от других.
type Item struct {
	ID         int64
	UID        string
	EntityType EntityType
	EntityID   string
	Action     Action
	Payload    json.RawMessage
	Status     Status
	RetryCount int
	Error      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Decode разбирает payload в v.
func (i *Item) Decode(v any) error {
	return json.Unmarshal(i.Payload, v)
}

type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	// Exhausted - failed элементы, исчерпавшие лимит повторов.
	Exhausted int
}

func (s Stats) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
