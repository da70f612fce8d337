package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrConversationBusy = errors.New("conversation already has a response in flight")
	ErrBudgetExceeded   = errors.New("most recent message alone exceeds the token budget")
	ErrRateLimited      = errors.New("too many requests")
	ErrUnauthorized     = errors.New("not authorized")
)
