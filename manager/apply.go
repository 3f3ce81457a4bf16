package manager

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openpldm/pdrd/chgevent"
	"github.com/openpldm/pdrd/pdr"
)

// ApplyChangeEvent processes a decoded pldmPDRRepositoryChgEvent from
// eid. refreshEntireRepository and PDR-types events trigger a full
// SyncTerminus; PDR-handles events are applied incrementally, falling
// back to a full re-sync if any record in the event fails to apply.
func (m *Manager) ApplyChangeEvent(ctx context.Context, eid uint8, event chgevent.ChangeEvent) error {
	if event.Format == chgevent.FormatRefreshEntireRepository || event.Format == chgevent.FormatPDRTypes {
		return m.SyncTerminus(ctx, eid)
	}

	m.mu.Lock()
	t := m.findTerminusLocked(eid)
	m.mu.Unlock()
	if t == nil {
		return fmt.Errorf("apply change event eid=%d: %w", eid, ErrTerminusNotFound)
	}

	for _, rec := range event.ChangeRecords {
		var err error
		switch rec.Operation {
		case chgevent.OpRecordsDeleted:
			err = m.handleDeletes(t, rec.ChangeEntries)
		case chgevent.OpRecordsAdded:
			err = m.handleAdds(ctx, t, rec.ChangeEntries)
		case chgevent.OpRecordsModified:
			err = m.handleModifies(ctx, t, rec.ChangeEntries)
		default:
			err = fmt.Errorf("apply change event eid=%d: unexpected operation %d after validation", eid, rec.Operation)
		}

		if err != nil {
			m.log.Warnw("incremental change event application failed, falling back to full resync",
				zap.Uint8("eid", eid), zap.Error(err))
			return m.SyncTerminus(ctx, eid)
		}
	}

	return nil
}

// handleDeletes removes each mapped local record for the given remote
// handles. Unmapped remote handles are skipped rather than treated as
// an error, matching the source protocol's tolerance for a delete
// notification racing an earlier removal.
func (m *Manager) handleDeletes(t *terminus, remoteHandles []uint32) error {
	for _, remoteHandle := range remoteHandles {
		localHandle, ok := t.findHandleMapping(remoteHandle)
		if !ok {
			continue
		}

		_ = m.repo.RemoveRecord(localHandle)
		t.removeHandleMapping(remoteHandle)
	}
	return nil
}

// handleAdds fetches and remaps each newly reported PDR. Unlike
// handleModifies, a failure here leaves any records already added
// during this call in place: they are genuinely new data, not a
// rollback candidate, so the fallback resync that follows a failure
// reconciles them instead of this function trying to undo partial work.
func (m *Manager) handleAdds(ctx context.Context, t *terminus, remoteHandles []uint32) error {
	for _, remoteHandle := range remoteHandles {
		data, _, err := m.fetchOnePDR(ctx, t, remoteHandle)
		if err != nil {
			return err
		}
		if err := m.addRemappedPDRWithRemoteHandle(t, remoteHandle, data); err != nil {
			return err
		}
	}
	return nil
}

// handleModifies replaces each mapped record in place, re-adding it
// under the same local handle so the mapping stays valid. If the
// refetch fails after the old record has already been removed, the
// mapping is torn down immediately (rather than left dangling) before
// the error propagates to the caller's fallback resync.
func (m *Manager) handleModifies(ctx context.Context, t *terminus, remoteHandles []uint32) error {
	for _, remoteHandle := range remoteHandles {
		localHandle, ok := t.findHandleMapping(remoteHandle)
		if !ok {
			continue
		}

		_ = m.repo.RemoveRecord(localHandle)

		data, _, err := m.fetchOnePDR(ctx, t, remoteHandle)
		if err != nil {
			t.removeHandleMapping(remoteHandle)
			return err
		}
		if len(data) < pdr.HeaderSize {
			t.removeHandleMapping(remoteHandle)
			return ErrShortPDR
		}

		hdr, err := pdr.DecodeHeader(data)
		if err != nil {
			t.removeHandleMapping(remoteHandle)
			return err
		}

		if err := m.repo.AddRecordWithHandle(localHandle, hdr.PDRType, data[pdr.HeaderSize:]); err != nil {
			t.removeHandleMapping(remoteHandle)
			return err
		}
	}
	return nil
}
