package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Messaging.
	ErrSenderNotFound    = errors.New("sender not found")
	ErrCommunityNotFound = errors.New("community not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrMemberLookup      = errors.New("member delivery failed")
	ErrInvalidMessage    = errors.New("invalid message")

	// Assessments.
	ErrExamNotFound        = errors.New("exam not found")
	ErrExamNotPublished    = errors.New("exam is not published yet")
	ErrExamAlreadyTaken    = errors.New("exam already taken")
	ErrExclusiveModeDenied = errors.New("exclusive focus mode denied")
	ErrSubmissionRejected  = errors.New("submission rejected")
	ErrAlreadySubmitted    = errors.New("exam attempt already submitted")
)
