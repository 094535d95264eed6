package sale

import "errors"

var (
	ErrNotFound          = errors.New("sale not found")
	ErrInsufficientStock = errors.New("insufficient batch stock")
	ErrUnknownProduct    = errors.New("sale references unknown product")
	ErrAlreadySynced     = errors.New("sale already synced")
	ErrSyncInProgress    = errors.New("sale sync in progress")
)
