package product

import "errors"

var (
	ErrNotFound        = errors.New("product not found")
	ErrVersionConflict = errors.New("product version conflict")
	ErrDeleted         = errors.New("product was deleted")
	ErrUnknownEvent    = errors.New("unknown stock event")
)
