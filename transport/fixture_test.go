package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SeedFixtureServesRepoInfoSignatureThenEachRecord(t *testing.T) {
	mock := NewMockTransport()

	rec1 := FixtureRecord{Data: append([]byte{1, 0, 0, 0, 0x01, 7, 0, 0, 1, 0}, 'a')}
	rec2 := FixtureRecord{Data: append([]byte{2, 0, 0, 0, 0x01, 7, 0, 0, 1, 0}, 'b')}
	SeedFixture(mock, 5, []FixtureRecord{rec1, rec2}, 0xCAFE)

	infoRaw, err := mock.SendRecv(context.Background(), 5, TypePlatform, CmdGetPDRRepositoryInfo, nil)
	require.NoError(t, err)
	info, err := DecodeRepositoryInfoResponse(infoRaw)
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.RecordCount)

	sigRaw, err := mock.SendRecv(context.Background(), 5, TypePlatform, CmdGetPDRRepositorySignature, nil)
	require.NoError(t, err)
	sig, err := DecodeRepositorySignatureResponse(sigRaw)
	require.NoError(t, err)
	assert.EqualValues(t, 0xCAFE, sig.Signature)

	first, err := mock.SendRecv(context.Background(), 5, TypePlatform, CmdGetPDR, nil)
	require.NoError(t, err)
	firstResp, err := DecodeGetPDRResponse(first)
	require.NoError(t, err)
	assert.EqualValues(t, 2, firstResp.NextRecordHandle)
	assert.Equal(t, TransferStartAndEnd, firstResp.TransferFlag)

	second, err := mock.SendRecv(context.Background(), 5, TypePlatform, CmdGetPDR, nil)
	require.NoError(t, err)
	secondResp, err := DecodeGetPDRResponse(second)
	require.NoError(t, err)
	assert.EqualValues(t, 0, secondResp.NextRecordHandle)
}
