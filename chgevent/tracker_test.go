package chgevent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TrackerBuildEventWithNoChangesRefreshesEntireRepository(t *testing.T) {
	tr := NewTracker()
	event := tr.BuildEvent(FormatPDRHandles, 0)
	assert.Equal(t, FormatRefreshEntireRepository, event.Format)
	assert.Empty(t, event.ChangeRecords)
}

func Test_TrackerBuildEventOrdersDeletesAddsModifies(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.RecordModify(3))
	require.NoError(t, tr.RecordAdd(2))
	require.NoError(t, tr.RecordDelete(1))

	event := tr.BuildEvent(FormatPDRHandles, 0)

	want := ChangeEvent{
		Format: FormatPDRHandles,
		ChangeRecords: []ChangeRecord{
			{Operation: OpRecordsDeleted, ChangeEntries: []uint32{1}},
			{Operation: OpRecordsAdded, ChangeEntries: []uint32{2}},
			{Operation: OpRecordsModified, ChangeEntries: []uint32{3}},
		},
	}

	if diff := cmp.Diff(want, event); diff != "" {
		t.Errorf("built event mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, Validate(event))
}

func Test_TrackerRecordRejectsEntriesBeyondMax(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < MaxChangeEntries; i++ {
		require.NoError(t, tr.RecordAdd(uint32(i)))
	}

	err := tr.RecordAdd(999)
	assert.ErrorIs(t, err, ErrTooManyEntries)
}

func Test_TrackerBuildEventFallsBackWhenExceedingMTU(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < MaxChangeEntries; i++ {
		require.NoError(t, tr.RecordAdd(uint32(i)))
	}

	event := tr.BuildEvent(FormatPDRHandles, DefaultMaxMsgSize)

	assert.Equal(t, FormatRefreshEntireRepository, event.Format)
	assert.Empty(t, event.ChangeRecords)
}

func Test_TrackerBuildEventFitsWithinGenerousMTU(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.RecordAdd(1))

	event := tr.BuildEvent(FormatPDRHandles, DefaultMaxMsgSize)
	assert.Equal(t, FormatPDRHandles, event.Format)
	require.Len(t, event.ChangeRecords, 1)
}

func Test_TrackerClearResetsState(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.RecordAdd(1))
	require.True(t, tr.HasChanges())

	tr.Clear()

	assert.False(t, tr.HasChanges())
	event := tr.BuildEvent(FormatPDRHandles, 0)
	assert.Equal(t, FormatRefreshEntireRepository, event.Format)
}

func Test_TrackerHasChangesReflectsEachAccumulator(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.HasChanges())

	require.NoError(t, tr.RecordDelete(1))
	assert.True(t, tr.HasChanges())
}
