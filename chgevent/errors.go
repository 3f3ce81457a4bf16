package chgevent

import "errors"

var (
	// ErrInvalidEvent marks a ChangeEvent that fails V1-V5 validation.
	ErrInvalidEvent = errors.New("chgevent: invalid change event")
	// ErrTooManyRecords names an event exceeding MaxChangeRecords. No
	// function in this package returns it: Validate and Decode report
	// that case as ErrInvalidEvent, and Tracker.BuildEvent falls back to
	// refreshEntireRepository.
	ErrTooManyRecords = errors.New("chgevent: too many change records")
	// ErrTooManyEntries is returned when a changeRecord would exceed
	// MaxChangeEntries.
	ErrTooManyEntries = errors.New("chgevent: too many change entries")
	// ErrShortBuffer marks a wire buffer too small to hold what it claims to.
	ErrShortBuffer = errors.New("chgevent: short buffer")
)
