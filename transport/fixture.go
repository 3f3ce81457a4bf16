package transport

import "encoding/binary"

// FixtureRecord is one synthetic remote PDR served by SeedFixture: the
// full wire-format record (common header followed by payload), exactly
// as GetPDR would reassemble it.
type FixtureRecord struct {
	Data []byte
}

// remoteHandle reads the record_handle field out of the front of the
// encoded record, so SeedFixture can chain next_record_handle values
// without the caller repeating each handle twice.
func (f FixtureRecord) remoteHandle() uint32 {
	if len(f.Data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(f.Data[0:4])
}

// SeedFixture queues a complete single-pass GetPDRRepositoryInfo,
// GetPDRRepositorySignature, and one GetPDR response per record onto
// mock for eid, so a full SyncTerminus against it completes
// deterministically without a real transport. Each record is served
// in one GetPDR chunk (StartAndEnd); SeedFixture does not exercise
// multi-part reassembly. This is demo/test scaffolding (spec §1: the
// MCTP/PLDM transport is an external collaborator), used by
// pldmctl's --fixture flag for a quick end-to-end sync without
// hand-building every wire response.
func SeedFixture(mock *MockTransport, eid uint8, records []FixtureRecord, signature uint32) {
	var repoSize, largest uint32
	for _, r := range records {
		size := uint32(len(r.Data))
		repoSize += size
		if size > largest {
			largest = size
		}
	}

	mock.QueueResponse(eid, CmdGetPDRRepositoryInfo, EncodeRepositoryInfoResponse(RepositoryInfoResponse{
		CompletionCode:    CCSuccess,
		RecordCount:       uint32(len(records)),
		RepositorySize:    repoSize,
		LargestRecordSize: largest,
	}))
	mock.QueueResponse(eid, CmdGetPDRRepositorySignature, EncodeRepositorySignatureResponse(RepositorySignatureResponse{
		CompletionCode: CCSuccess,
		Signature:      signature,
	}))

	for i, r := range records {
		next := uint32(0)
		if i < len(records)-1 {
			next = records[i+1].remoteHandle()
		}
		mock.QueueResponse(eid, CmdGetPDR, EncodeGetPDRResponse(GetPDRResponse{
			CompletionCode:   CCSuccess,
			NextRecordHandle: next,
			TransferFlag:     TransferStartAndEnd,
			RecordData:       r.Data,
		}))
	}
}
