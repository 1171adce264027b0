package service

import "errors"

var (
	// ErrQuotaExceeded is returned when a usage check denies the action. The
	// accompanying decision carries the reason and remaining capacity.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrMessageTooLong is returned when the message exceeds the tier's
	// character limit.
	ErrMessageTooLong = errors.New("message too long")
	ErrReplayNotFound = errors.New("replay not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrUnauthorized   = errors.New("unauthorized")
)
