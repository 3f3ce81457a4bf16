package chgevent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_EncodeDecodeRoundTrip(t *testing.T) {
	cases := map[string]ChangeEvent{
		"refresh entire repository": {
			Format: FormatRefreshEntireRepository,
		},
		"single delete, handles format": {
			Format: FormatPDRHandles,
			ChangeRecords: []ChangeRecord{
				{Operation: OpRecordsDeleted, ChangeEntries: []uint32{1, 2, 3}},
			},
		},
		"delete, add, modify in order": {
			Format: FormatPDRTypes,
			ChangeRecords: []ChangeRecord{
				{Operation: OpRecordsDeleted, ChangeEntries: []uint32{10}},
				{Operation: OpRecordsAdded, ChangeEntries: []uint32{20, 21}},
				{Operation: OpRecordsModified, ChangeEntries: []uint32{30, 31, 32}},
			},
		},
		"max entries": {
			Format: FormatPDRHandles,
			ChangeRecords: []ChangeRecord{
				{Operation: OpRecordsAdded, ChangeEntries: make([]uint32, MaxChangeEntries)},
			},
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			buf, err := Encode(event)
			require.NoError(t, err)

			decoded, err := Decode(buf)
			require.NoError(t, err)

			if diff := cmp.Diff(event, decoded); diff != "" {
				t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_EncodeRejectsInvalidEvent(t *testing.T) {
	_, err := Encode(ChangeEvent{
		Format: FormatRefreshEntireRepository,
		ChangeRecords: []ChangeRecord{
			{Operation: OpRecordsAdded, ChangeEntries: []uint32{1}},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func Test_DecodeRejectsShortBuffer(t *testing.T) {
	_, err := Decode([]byte{0x01})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func Test_DecodeRejectsTruncatedRecordHeader(t *testing.T) {
	_, err := Decode([]byte{byte(FormatPDRHandles), 0x01})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func Test_DecodeRejectsTruncatedEntries(t *testing.T) {
	buf := []byte{byte(FormatPDRHandles), 0x01, byte(OpRecordsAdded), 0x02, 0x01, 0x00, 0x00, 0x00}
	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func Test_EncodedSizeMatchesActualEncoding(t *testing.T) {
	event := ChangeEvent{
		Format: FormatPDRHandles,
		ChangeRecords: []ChangeRecord{
			{Operation: OpRecordsAdded, ChangeEntries: []uint32{1, 2, 3, 4}},
		},
	}

	buf, err := Encode(event)
	require.NoError(t, err)
	assert.Len(t, buf, EncodedSize(event))
}
