package pdr

import "errors"

// Sentinel errors returned by repository operations (spec §7).
var (
	// ErrFull is returned by AddRecord when the index already holds
	// MaxRecords entries.
	ErrFull = errors.New("pdr: repository full")
	// ErrOutOfBlobSpace is returned by AddRecord when the blob has no
	// room for the new record.
	ErrOutOfBlobSpace = errors.New("pdr: out of blob space")
	// ErrNotFound is returned when a record handle does not resolve to
	// a live (non-tombstone) entry.
	ErrNotFound = errors.New("pdr: record not found")
	// ErrOffsetOutOfRange is returned by GetPDR when data_transfer_handle
	// does not fall within the selected record.
	ErrOffsetOutOfRange = errors.New("pdr: data transfer handle out of range")
	// ErrNoCallback is returned by RunInitAgent when no repopulation
	// callback is supplied.
	ErrNoCallback = errors.New("pdr: no init callback supplied")
	// ErrDecode marks a malformed on-wire PDR header.
	ErrDecode = errors.New("pdr: malformed header")
)
