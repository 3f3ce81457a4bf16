package manager

import "errors"

var (
	// ErrTerminusExists is returned by AddTerminus for a duplicate EID.
	ErrTerminusExists = errors.New("manager: terminus already registered")
	// ErrNoFreeSlot is returned by AddTerminus when MaxTermini is reached.
	ErrNoFreeSlot = errors.New("manager: no free terminus slot")
	// ErrTerminusNotFound is returned when an EID does not resolve to a
	// registered terminus.
	ErrTerminusNotFound = errors.New("manager: terminus not found")
	// ErrHandleOutOfRange is returned by LookupOrigin for a
	// consolidated handle that doesn't fall in any terminus's range.
	ErrHandleOutOfRange = errors.New("manager: handle out of any terminus range")
	// ErrNoTransport is returned when SyncTerminus is called without a
	// configured Transport.
	ErrNoTransport = errors.New("manager: no transport configured")
	// ErrReassemblyOverflow marks a multi-part transfer whose reassembled
	// size exceeds ReassemblyBufSize.
	ErrReassemblyOverflow = errors.New("manager: reassembly buffer overflow")
	// ErrShortPDR marks a reassembled PDR too short to contain a header.
	ErrShortPDR = errors.New("manager: reassembled PDR shorter than header")
)
