package manager

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpldm/pdrd/pdr"
	"github.com/openpldm/pdrd/transport"
)

func buildRepoInfoResp(recordCount, repoSize, largestRecordSize uint32) []byte {
	buf := make([]byte, 1+13+13+4+4+4+1)
	buf[0] = byte(transport.CCSuccess)
	offset := 1 + 13 + 13
	binary.LittleEndian.PutUint32(buf[offset:offset+4], recordCount)
	binary.LittleEndian.PutUint32(buf[offset+4:offset+8], repoSize)
	binary.LittleEndian.PutUint32(buf[offset+8:offset+12], largestRecordSize)
	return buf
}

func buildSigResp(sig uint32) []byte {
	buf := make([]byte, 1+4)
	buf[0] = byte(transport.CCSuccess)
	binary.LittleEndian.PutUint32(buf[1:5], sig)
	return buf
}

func buildGetPDRResp(nextRecordHandle uint32, flag transport.TransferFlag, data []byte) []byte {
	buf := make([]byte, 1+4+4+1+2+len(data))
	buf[0] = byte(transport.CCSuccess)
	binary.LittleEndian.PutUint32(buf[1:5], nextRecordHandle)
	binary.LittleEndian.PutUint32(buf[5:9], 0)
	buf[9] = byte(flag)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(len(data)))
	copy(buf[12:], data)
	return buf
}

func buildRemotePDR(handle uint32, pdrType uint8, payload []byte) []byte {
	hdr := pdr.EncodeHeader(pdr.Header{RecordHandle: handle, HeaderVersion: pdr.HeaderVersion, PDRType: pdrType, DataLength: uint16(len(payload))})
	return append(hdr, payload...)
}

func Test_SyncTerminusBootstrapsFromEmptyConsolidatedRepo(t *testing.T) {
	mock := transport.NewMockTransport()
	m := NewManager(pdr.NewRepository(8192, 256), mock)

	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(2, 100, 50))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0x1111))

	pdr1 := buildRemotePDR(1, 7, []byte("first"))
	pdr2 := buildRemotePDR(2, 7, []byte("second"))
	mock.QueueResponse(1, transport.CmdGetPDR, buildGetPDRResp(2, transport.TransferStartAndEnd, pdr1))
	mock.QueueResponse(1, transport.CmdGetPDR, buildGetPDRResp(0, transport.TransferStartAndEnd, pdr2))

	require.NoError(t, m.SyncTerminus(context.Background(), 1))

	state, err := m.GetTerminusState(1)
	require.NoError(t, err)
	assert.Equal(t, StateSynced, state)

	info := m.GetInfo()
	assert.EqualValues(t, 2, info.RecordCount)

	eid, err := m.LookupOrigin(remapHandle(0, 1))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), eid)
}

func Test_SyncTerminusSkipsWhenSignatureUnchanged(t *testing.T) {
	mock := transport.NewMockTransport()
	m := NewManager(pdr.NewRepository(8192, 256), mock)

	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(1, 50, 50))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0xAAAA))
	mock.QueueResponse(1, transport.CmdGetPDR, buildGetPDRResp(0, transport.TransferStartAndEnd, buildRemotePDR(1, 1, []byte("x"))))

	require.NoError(t, m.SyncTerminus(context.Background(), 1))
	firstInfo := m.GetInfo()

	// Second sync: same repo info/signature queued again, no GetPDR queued —
	// the fast path must skip fetching entirely.
	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(1, 50, 50))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0xAAAA))

	require.NoError(t, m.SyncTerminus(context.Background(), 1))

	secondInfo := m.GetInfo()
	assert.Equal(t, firstInfo.RecordCount, secondInfo.RecordCount)

	calls := mock.Calls()
	getPDRCalls := 0
	for _, c := range calls {
		if c.Command == transport.CmdGetPDR {
			getPDRCalls++
		}
	}
	assert.Equal(t, 1, getPDRCalls, "fast path must not re-fetch PDR data")
}

func Test_SyncTerminusErrorsWithoutTransport(t *testing.T) {
	m := NewManager(pdr.NewRepository(8192, 256), nil)
	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	err = m.SyncTerminus(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoTransport)
}

func Test_SyncTerminusMultiPartReassembly(t *testing.T) {
	mock := transport.NewMockTransport()
	m := NewManager(pdr.NewRepository(8192, 256), mock)

	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(1, 300, 300))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0x55))

	full := buildRemotePDR(1, 3, make([]byte, 200))
	mock.QueueResponse(1, transport.CmdGetPDR, buildGetPDRResp(0, transport.TransferStart, full[:128]))
	mock.QueueResponse(1, transport.CmdGetPDR, buildGetPDRResp(0, transport.TransferEnd, full[128:]))

	require.NoError(t, m.SyncTerminus(context.Background(), 1))

	info := m.GetInfo()
	assert.EqualValues(t, 1, info.RecordCount)
}

func Test_CheckForChangesReportsTrueOnFirstObservation(t *testing.T) {
	mock := transport.NewMockTransport()
	m := NewManager(pdr.NewRepository(8192, 256), mock)
	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(0, 0, 0))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0x9))

	changed, err := m.CheckForChanges(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, changed)
}

func Test_CheckForChangesMarksSyncedTerminusStale(t *testing.T) {
	mock := transport.NewMockTransport()
	m := NewManager(pdr.NewRepository(8192, 256), mock)
	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(0, 0, 0))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0x1))
	require.NoError(t, m.SyncTerminus(context.Background(), 1))

	mock.QueueResponse(1, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(0, 0, 0))
	mock.QueueResponse(1, transport.CmdGetPDRRepositorySignature, buildSigResp(0x2))
	changed, err := m.CheckForChanges(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, changed)

	state, err := m.GetTerminusState(1)
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)
}

func Test_SyncAllSyncsOnlyDiscoveredAndStaleTermini(t *testing.T) {
	mock := transport.NewMockTransport()
	m := NewManager(pdr.NewRepository(8192, 256), mock)

	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)
	_, err = m.AddTerminus(2, 0, 0)
	require.NoError(t, err)

	for _, eid := range []uint8{1, 2} {
		mock.QueueResponse(eid, transport.CmdGetPDRRepositoryInfo, buildRepoInfoResp(0, 0, 0))
		mock.QueueResponse(eid, transport.CmdGetPDRRepositorySignature, buildSigResp(uint32(eid)))
	}

	require.NoError(t, m.SyncAll(context.Background()))

	for _, eid := range []uint8{1, 2} {
		state, err := m.GetTerminusState(eid)
		require.NoError(t, err)
		assert.Equal(t, StateSynced, state)
	}
}
