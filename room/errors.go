/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package room holds the admission, chat and room code rules shared by every
// watch party: input sanitizing and validation, room codes, per-sender rate
// limiting and the host-controlled roster.
package room

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidUsername = errors.New("username must be 1-20 letters, digits, spaces, hyphens or underscores")
	ErrInvalidMessage  = errors.New("message must be between 1 and 500 characters")
	ErrInvalidURL      = errors.New("url must be an absolute http or https address")
	ErrNotFound        = errors.New("participant not found")
	ErrNotPending      = errors.New("participant is not awaiting admission")
	ErrNotAdmitted     = errors.New("participant has not been admitted")
	ErrNotHost         = errors.New("only the host may do that")
	ErrHostExists      = errors.New("room already has a host")
	ErrIsHost          = errors.New("the host cannot be removed")
	ErrLobbyLocked     = errors.New("the lobby is locked; no new participants may join")
	ErrRoomFull        = errors.New("the room is full")
	ErrRateLimited     = errors.New("sending too many messages")
	ErrEntropy         = errors.New("secure random source unavailable")
)

// RateLimitedError is returned by Session.Send when the sender's window is full.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v; try again in %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
