package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpldm/pdrd/pdr"
	"github.com/openpldm/pdrd/transport"
)

func newTestManager() *Manager {
	repo := pdr.NewRepository(8192, 256)
	return NewManager(repo, transport.NewMockTransport())
}

func Test_AddTerminusAssignsSlotsAndRejectsDuplicates(t *testing.T) {
	m := newTestManager()

	slot, err := m.AddTerminus(1, 0x100, 9)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), slot)

	_, err = m.AddTerminus(1, 0x100, 9)
	assert.ErrorIs(t, err, ErrTerminusExists)
}

func Test_AddTerminusRejectsWhenAllSlotsFull(t *testing.T) {
	m := NewManager(pdr.NewRepository(8192, 256), transport.NewMockTransport(), WithMaxTermini(1))

	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	_, err = m.AddTerminus(2, 0, 0)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
}

func Test_RemoveTerminusNotFound(t *testing.T) {
	m := newTestManager()
	assert.ErrorIs(t, m.RemoveTerminus(5), ErrTerminusNotFound)
}

func Test_GetTerminusStateStartsDiscovered(t *testing.T) {
	m := newTestManager()
	_, err := m.AddTerminus(1, 0, 0)
	require.NoError(t, err)

	state, err := m.GetTerminusState(1)
	require.NoError(t, err)
	assert.Equal(t, StateDiscovered, state)
}

func Test_LookupOriginResolvesToRegisteringEID(t *testing.T) {
	m := newTestManager()
	slot, err := m.AddTerminus(42, 0, 0)
	require.NoError(t, err)

	handle := remapHandle(slot, 3)
	eid, err := m.LookupOrigin(handle)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), eid)
}

func Test_LookupOriginErrorsForUnknownSlot(t *testing.T) {
	m := newTestManager()
	_, err := m.LookupOrigin(remapHandle(5, 1))
	assert.ErrorIs(t, err, ErrHandleOutOfRange)
}
