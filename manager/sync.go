package manager

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openpldm/pdrd/pdr"
	"github.com/openpldm/pdrd/transport"
)

// fetchRepoInfo issues GetPDRRepositoryInfo (0x50) followed by
// GetPDRRepositorySignature (0x53), falling back to a pseudo-signature
// derived from record count and repo size when the terminus does not
// implement 0x53.
func (m *Manager) fetchRepoInfo(ctx context.Context, t *terminus) error {
	infoResp, err := m.transport.SendRecv(ctx, t.eid, transport.TypePlatform, transport.CmdGetPDRRepositoryInfo, nil)
	if err != nil {
		return fmt.Errorf("fetch repo info eid=%d: %w", t.eid, err)
	}

	info, err := transport.DecodeRepositoryInfoResponse(infoResp)
	if err != nil {
		return fmt.Errorf("fetch repo info eid=%d: %w", t.eid, err)
	}
	if info.CompletionCode != transport.CCSuccess {
		return fmt.Errorf("fetch repo info eid=%d: completion code 0x%02x", t.eid, info.CompletionCode)
	}

	t.remoteRecordCount = info.RecordCount
	t.remoteRepoSize = info.RepositorySize

	sigResp, err := m.transport.SendRecv(ctx, t.eid, transport.TypePlatform, transport.CmdGetPDRRepositorySignature, nil)
	if err == nil {
		if sig, decErr := transport.DecodeRepositorySignatureResponse(sigResp); decErr == nil && sig.CompletionCode == transport.CCSuccess {
			t.lastSignature = sig.Signature
			return nil
		}
	}

	t.lastSignature = t.remoteRecordCount ^ (t.remoteRepoSize << 16)
	return nil
}

// fetchOnePDR fetches the PDR at remoteHandle (0 = first record) from
// t's terminus, reassembling it across as many GetPDR (0x51) chunks as
// needed, and returns the next remote record handle to fetch (0 if
// this was the last one). Each chunk is tried up to maxRetries times in
// all, with exponential backoff between attempts, before the fetch fails.
func (m *Manager) fetchOnePDR(ctx context.Context, t *terminus, remoteHandle uint32) (data []byte, nextHandle uint32, err error) {
	req := transport.GetPDRRequest{
		RecordHandle:   remoteHandle,
		TransferOpFlag: transport.TransferOpGetFirstPart,
		RequestCount:   pdr.TransferChunkSize,
	}

	var reassembled []byte

	for {
		resp, err := backoff.Retry(ctx, func() (transport.GetPDRResponse, error) {
			raw, sendErr := m.transport.SendRecv(ctx, t.eid, transport.TypePlatform, transport.CmdGetPDR, req.Encode())
			if sendErr != nil {
				return transport.GetPDRResponse{}, sendErr
			}
			decoded, decErr := transport.DecodeGetPDRResponse(raw)
			if decErr != nil {
				return transport.GetPDRResponse{}, decErr
			}
			if decoded.CompletionCode != transport.CCSuccess {
				return transport.GetPDRResponse{}, fmt.Errorf("GetPDR eid=%d handle=%d: completion code 0x%02x", t.eid, remoteHandle, decoded.CompletionCode)
			}
			return decoded, nil
		}, backoff.WithMaxTries(uint(m.maxRetries)))
		if err != nil {
			return nil, 0, fmt.Errorf("fetch pdr eid=%d handle=%d: %w", t.eid, remoteHandle, err)
		}

		if len(reassembled)+len(resp.RecordData) > m.reassemblyCap {
			return nil, 0, fmt.Errorf("fetch pdr eid=%d handle=%d: %w", t.eid, remoteHandle, ErrReassemblyOverflow)
		}
		reassembled = append(reassembled, resp.RecordData...)

		if resp.TransferFlag == transport.TransferEnd || resp.TransferFlag == transport.TransferStartAndEnd {
			return reassembled, resp.NextRecordHandle, nil
		}

		req.DataTransferHandle = resp.NextDataTransferHandle
		req.TransferOpFlag = transport.TransferOpGetNextPart
	}
}

// SyncTerminus performs a full synchronization of eid: fetch repo
// info, skip if the signature is unchanged, otherwise purge and
// re-fetch every PDR, remapping handles into eid's private range.
func (m *Manager) SyncTerminus(ctx context.Context, eid uint8) error {
	if m.transport == nil {
		return ErrNoTransport
	}

	m.mu.Lock()
	t := m.findTerminusLocked(eid)
	m.mu.Unlock()
	if t == nil {
		return fmt.Errorf("sync terminus eid=%d: %w", eid, ErrTerminusNotFound)
	}

	oldSig := t.lastSignature
	wasSynced := t.state == StateSynced || t.state == StateStale
	t.state = StateSyncing

	if err := m.fetchRepoInfo(ctx, t); err != nil {
		t.state = StateError
		return fmt.Errorf("sync terminus eid=%d: %w", eid, err)
	}

	if wasSynced && oldSig != 0 && t.lastSignature == oldSig {
		t.state = StateSynced
		return nil
	}

	m.purgeTerminusPDRs(t)

	remoteHandle := uint32(0)
	for i := uint32(0); i < t.remoteRecordCount; i++ {
		data, next, err := m.fetchOnePDR(ctx, t, remoteHandle)
		if err != nil {
			t.state = StateError
			return fmt.Errorf("sync terminus eid=%d: %w", eid, err)
		}
		if len(data) < pdr.HeaderSize {
			t.state = StateError
			return fmt.Errorf("sync terminus eid=%d: %w", eid, ErrShortPDR)
		}

		if err := m.addRemappedPDR(t, data); err != nil {
			t.state = StateError
			return fmt.Errorf("sync terminus eid=%d: %w", eid, err)
		}

		if next == 0 {
			break
		}
		remoteHandle = next
	}

	t.state = StateSynced
	m.log.Infow("terminus synced", zap.Uint8("eid", eid), zap.Uint16("local_record_count", t.localRecordCount))
	return nil
}

// addRemappedPDR decodes the PDR header from a reassembled full-sync
// fetch, assigns the next remapped handle in t's range, and adds it to
// the consolidated repository. The remote-to-local mapping is keyed on
// the header's own record_handle field, since a bulk sync walks
// records via next_record_handle rather than a handle it already knew
// in advance.
func (m *Manager) addRemappedPDR(t *terminus, reassembled []byte) error {
	hdr, err := pdr.DecodeHeader(reassembled)
	if err != nil {
		return err
	}
	return m.addRemappedPDRWithRemoteHandle(t, hdr.RecordHandle, reassembled)
}

// addRemappedPDRWithRemoteHandle is addRemappedPDR's incremental-path
// counterpart: the caller already knows which remote handle this data
// came from (from a change event's changeEntries), so the mapping is
// keyed on that value rather than re-trusting the header.
func (m *Manager) addRemappedPDRWithRemoteHandle(t *terminus, remoteHandle uint32, reassembled []byte) error {
	hdr, err := pdr.DecodeHeader(reassembled)
	if err != nil {
		return err
	}

	remapped := remapHandle(t.slotIndex, t.localHandleSeq)
	if err := m.repo.AddRecordWithHandle(remapped, hdr.PDRType, reassembled[pdr.HeaderSize:]); err != nil {
		return err
	}
	t.localHandleSeq++
	t.localRecordCount++
	t.addHandleMapping(remoteHandle, remapped)

	return nil
}

// SyncAll synchronizes every terminus in StateDiscovered or StateStale,
// concurrently. It returns the first error encountered but lets every
// terminus finish its own attempt.
func (m *Manager) SyncAll(ctx context.Context) error {
	m.mu.Lock()
	var eids []uint8
	for _, t := range m.termini {
		if t != nil && (t.state == StateDiscovered || t.state == StateStale) {
			eids = append(eids, t.eid)
		}
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, eid := range eids {
		eid := eid
		g.Go(func() error {
			return m.SyncTerminus(ctx, eid)
		})
	}

	return g.Wait()
}

// CheckForChanges performs a lightweight signature comparison against
// the last known value, without fetching or applying any PDR data.
func (m *Manager) CheckForChanges(ctx context.Context, eid uint8) (changed bool, err error) {
	if m.transport == nil {
		return false, ErrNoTransport
	}

	m.mu.Lock()
	t := m.findTerminusLocked(eid)
	m.mu.Unlock()
	if t == nil {
		return false, fmt.Errorf("check for changes eid=%d: %w", eid, ErrTerminusNotFound)
	}

	oldSig := t.lastSignature
	if err := m.fetchRepoInfo(ctx, t); err != nil {
		return false, fmt.Errorf("check for changes eid=%d: %w", eid, err)
	}

	changed = oldSig == 0 || t.lastSignature != oldSig
	if changed && t.state == StateSynced {
		t.state = StateStale
	}

	return changed, nil
}
