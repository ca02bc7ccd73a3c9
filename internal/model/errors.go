package model

import "errors"

var (
	// Store outcomes
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrTokenNotFound = errors.New("token not found")

	// Store lifecycle
	ErrStoreNotReady = errors.New("store not ready")
)
