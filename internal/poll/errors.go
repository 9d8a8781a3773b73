package poll

import "errors"

var (
	// ErrPollNotFound is returned when no open poll matches the request.
	ErrPollNotFound = errors.New("poll not found")
	// ErrNoActiveVote is returned by ResetVote when the voter has no choice.
	ErrNoActiveVote = errors.New("no active vote")
	// ErrAlreadyOpen is returned by Start when the schedule's poll is open or opening.
	ErrAlreadyOpen = errors.New("poll already open")
	// ErrCloseDeferred is returned by Close while the poll is still being
	// published. The poll is closed as soon as publishing succeeds.
	ErrCloseDeferred = errors.New("poll close deferred until it is published")
	// ErrTransport wraps failures of the messaging gateway.
	ErrTransport = errors.New("transport error")
	// ErrMalformedInteraction is returned for undecodable interaction payloads.
	ErrMalformedInteraction = errors.New("malformed interaction")
)
