package models

import "errors"

var (
	// ErrAuthentication is returned when credentials are missing, malformed or rejected.
	ErrAuthentication = errors.New("authentication failed")
	// ErrRequest marks a create or list call the service rejected or failed to complete.
	ErrRequest = errors.New("calendar request failed")

	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidTime  = errors.New("invalid time")
	ErrInvalidRange = errors.New("invalid date range")
)
