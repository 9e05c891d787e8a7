package service

import "errors"

var (
	ErrUnauthenticated    = errors.New("user is not authenticated")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTokenMissing       = errors.New("account has no stored token")
	ErrTokenRefreshFailed = errors.New("token refresh failed")
	ErrFlairRequired      = errors.New("subreddit requires a post flair")
	ErrDataStore          = errors.New("data store error")
	ErrNoTargets          = errors.New("no destinations selected")
	ErrPostNotFound       = errors.New("post doesn't exist")
	ErrInvalidInput       = errors.New("invalid input")
	ErrScheduleInPast     = errors.New("scheduled time must be in the future")
)
