package server

import "errors"

var (
	ErrStatusAlreadyQueued   string = "ALREADY_QUEUED"
	ErrStatusInvalidIdentity string = "INVALID_IDENTITY"
)

var (
	ErrAlreadyQueued        = errors.New("player already queued or in a live match")
	ErrDuplicateParticipant = errors.New("player already bound to a live match")
	ErrUnknownMatch         = errors.New("no live match for id")
	ErrUnknownSession       = errors.New("no session for id")
	ErrDeliveryFailed       = errors.New("failed to deliver message")
)
