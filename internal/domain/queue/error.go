package queue

import "errors"

var (
	ErrNotFound          = errors.New("queue item not found")
	ErrInvalidTransition = errors.New("invalid queue status transition")
	ErrInvalidItem       = errors.New("invalid queue item")
	// ErrInFlight - элемент сущности уже передается на сервер.
	ErrInFlight = errors.New("queue item is being sent")
	// ErrDelivered - элемент сущности уже принят сервером.
	ErrDelivered = errors.New("queue item already delivered")
)
