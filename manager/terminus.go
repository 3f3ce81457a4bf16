package manager

// State is the per-terminus consolidation state machine (spec §4.3).
type State uint8

const (
	StateUnused State = iota
	StateDiscovered
	StateSyncing
	StateSynced
	StateStale
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnused:
		return "unused"
	case StateDiscovered:
		return "discovered"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateStale:
		return "stale"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// handleMapEntry tracks one remote-handle-to-local-handle mapping used
// by the incremental change-event applier.
type handleMapEntry struct {
	remoteHandle uint32
	localHandle  uint32
}

// terminus tracks manager-side state for one remote endpoint: its
// position in the consolidated handle space, its last-known remote
// repository metadata, and the remote-to-local handle map that lets
// incremental change events find what to update.
//
// slotIndex is stored explicitly rather than recovered from the
// terminus's position within a backing array, so the type carries no
// assumption about how the manager stores its termini.
type terminus struct {
	slotIndex uint8
	state     State

	eid             uint8
	tid             uint8
	terminusHandle  uint16

	remoteRecordCount uint32
	remoteRepoSize    uint32
	lastSignature     uint32

	localHandleSeq   uint16
	localRecordCount uint16

	handleMap []handleMapEntry
}

func newTerminus(slotIndex, eid, tid uint8, terminusHandle uint16) *terminus {
	return &terminus{
		slotIndex:      slotIndex,
		state:          StateDiscovered,
		eid:            eid,
		tid:            tid,
		terminusHandle: terminusHandle,
		localHandleSeq: 1,
	}
}

func (t *terminus) findHandleMapping(remoteHandle uint32) (uint32, bool) {
	for i := range t.handleMap {
		if t.handleMap[i].remoteHandle == remoteHandle {
			return t.handleMap[i].localHandle, true
		}
	}
	return 0, false
}

func (t *terminus) addHandleMapping(remoteHandle, localHandle uint32) {
	t.handleMap = append(t.handleMap, handleMapEntry{remoteHandle: remoteHandle, localHandle: localHandle})
}

func (t *terminus) removeHandleMapping(remoteHandle uint32) bool {
	for i := range t.handleMap {
		if t.handleMap[i].remoteHandle == remoteHandle {
			t.handleMap = append(t.handleMap[:i], t.handleMap[i+1:]...)
			if t.localRecordCount > 0 {
				t.localRecordCount--
			}
			return true
		}
	}
	return false
}
