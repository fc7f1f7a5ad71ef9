package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrHostNotFound    = fmt.Errorf("host %w", ErrNotFound)
	ErrVisitorNotFound = fmt.Errorf("visitor %w", ErrNotFound)
	ErrInvalidArgument = errors.New("invalid argument")

	// Informational: the operation was a no-op and the entity is returned unchanged.
	ErrDuplicatePendingRequest = errors.New("a pending request already exists")
	ErrStaleVote               = errors.New("join request has already been decided")
	ErrAlreadyVoted            = errors.New("leader has already voted on this request")
	ErrStaleDecision           = errors.New("invitation is no longer awaiting this action")

	ErrNotLeader   = errors.New("caller is not a leader of this organization")
	ErrCodeInvalid = errors.New("access code is invalid")
)

// IsNotice reports whether err only signals a no-op that callers should surface as a
// message rather than a failure.
func IsNotice(err error) bool {
	return errors.Is(err, ErrDuplicatePendingRequest) ||
		errors.Is(err, ErrStaleVote) ||
		errors.Is(err, ErrAlreadyVoted) ||
		errors.Is(err, ErrStaleDecision)
}
