// Package manager implements the consolidation side of the PDR
// subsystem: it discovers remote termini, pulls their PDRs through a
// transport.Transport, remaps each terminus's handles into a private
// range, and serves the result from a single consolidated pdr.Repository
// (spec §4.3).
package manager

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/openpldm/pdrd/pdr"
	"github.com/openpldm/pdrd/transport"
)

// DefaultMaxTermini bounds the number of concurrently tracked remote
// endpoints (spec §6 compile-time limits).
const DefaultMaxTermini = 8

// DefaultMaxRetries is the number of attempts, the first one included,
// that fetchOnePDR makes for each GetPDR chunk before giving up (spec §6).
const DefaultMaxRetries = 3

// DefaultReassemblyBufSize caps the accumulated size of a single
// multi-part PDR transfer (spec §6).
const DefaultReassemblyBufSize = 256

type options struct {
	log          *zap.SugaredLogger
	maxTermini   int
	maxRetries   int
	reassemblyCap int
}

func newOptions() *options {
	return &options{
		log:           zap.NewNop().Sugar(),
		maxTermini:    DefaultMaxTermini,
		maxRetries:    DefaultMaxRetries,
		reassemblyCap: DefaultReassemblyBufSize,
	}
}

// Option configures a Manager.
type Option func(*options)

// WithLogger attaches a logger used for lifecycle and sync events.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithMaxTermini overrides DefaultMaxTermini.
func WithMaxTermini(n int) Option {
	return func(o *options) { o.maxTermini = n }
}

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithReassemblyBufSize overrides DefaultReassemblyBufSize.
func WithReassemblyBufSize(n int) Option {
	return func(o *options) { o.reassemblyCap = n }
}

// Manager consolidates PDRs from multiple remote termini into one
// pdr.Repository.
type Manager struct {
	mu sync.Mutex

	repo      *pdr.Repository
	transport transport.Transport
	termini   []*terminus // indexed by slot; nil entries are free slots

	maxTermini    int
	maxRetries    int
	reassemblyCap int

	log *zap.SugaredLogger
}

// NewManager constructs a Manager backed by repo and t. repo should be
// dedicated to this manager: its handle space is shared with every
// remapped terminus range.
func NewManager(repo *pdr.Repository, t transport.Transport, opts ...Option) *Manager {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Manager{
		repo:          repo,
		transport:     t,
		termini:       make([]*terminus, o.maxTermini),
		maxTermini:    o.maxTermini,
		maxRetries:    o.maxRetries,
		reassemblyCap: o.reassemblyCap,
		log:           o.log,
	}
}

func (m *Manager) findTerminusLocked(eid uint8) *terminus {
	for _, t := range m.termini {
		if t != nil && t.eid == eid {
			return t
		}
	}
	return nil
}

// AddTerminus registers a remote endpoint and returns its assigned
// slot index.
func (m *Manager) AddTerminus(eid uint8, terminusHandle uint16, tid uint8) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findTerminusLocked(eid) != nil {
		return 0, fmt.Errorf("add terminus eid=%d: %w", eid, ErrTerminusExists)
	}

	for i := range m.termini {
		if m.termini[i] == nil {
			m.termini[i] = newTerminus(uint8(i), eid, tid, terminusHandle)
			m.log.Infow("terminus registered", zap.Uint8("eid", eid), zap.Uint8("tid", tid), zap.Int("slot", i))
			return uint8(i), nil
		}
	}

	return 0, fmt.Errorf("add terminus eid=%d: %w", eid, ErrNoFreeSlot)
}

// RemoveTerminus purges every PDR belonging to eid from the
// consolidated repository and frees its slot.
func (m *Manager) RemoveTerminus(eid uint8) error {
	m.mu.Lock()
	t := m.findTerminusLocked(eid)
	if t == nil {
		m.mu.Unlock()
		return fmt.Errorf("remove terminus eid=%d: %w", eid, ErrTerminusNotFound)
	}
	m.termini[t.slotIndex] = nil
	m.mu.Unlock()

	m.purgeTerminusPDRs(t)

	m.log.Infow("terminus removed", zap.Uint8("eid", eid))
	return nil
}

// GetTerminusState reports the consolidation state of eid.
func (m *Manager) GetTerminusState(eid uint8) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.findTerminusLocked(eid)
	if t == nil {
		return 0, fmt.Errorf("get terminus state eid=%d: %w", eid, ErrTerminusNotFound)
	}
	return t.state, nil
}

// LookupOrigin determines which terminus a consolidated handle was
// remapped from.
func (m *Manager) LookupOrigin(handle uint32) (eid uint8, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := originSlotIndex(handle)
	if int(idx) >= len(m.termini) {
		return 0, fmt.Errorf("lookup origin handle=%d: %w", handle, ErrHandleOutOfRange)
	}

	t := m.termini[idx]
	if t == nil {
		return 0, fmt.Errorf("lookup origin handle=%d: %w", handle, ErrHandleOutOfRange)
	}

	return t.eid, nil
}

// GetInfo is a thin pass-through to the consolidated repository.
func (m *Manager) GetInfo() pdr.Info {
	return m.repo.GetInfo()
}

// GetPDR is a thin pass-through to the consolidated repository.
func (m *Manager) GetPDR(recordHandle, dataTransferHandle uint32) ([]byte, pdr.TransferFlag, uint32, uint32, error) {
	return m.repo.GetPDR(recordHandle, dataTransferHandle)
}

// FindPDR is a thin pass-through to the consolidated repository.
func (m *Manager) FindPDR(pdrType uint8, startHandle uint32) (uint32, []byte, uint32, error) {
	return m.repo.FindPDR(pdrType, startHandle)
}

// GetSignature is a thin pass-through to the consolidated repository.
func (m *Manager) GetSignature() uint32 {
	return m.repo.GetSignature()
}

// purgeTerminusPDRs removes every consolidated record this terminus is
// known to have added, via its handle map. Unlike the original's
// direct scan over the repository's backing array, pdr.Repository
// keeps its index private, so the manager tracks ownership itself
// through the same handle map the incremental applier already
// maintains (spec §4.3, §9 design note on avoiding pointer-arithmetic
// tricks for slot recovery).
func (m *Manager) purgeTerminusPDRs(t *terminus) {
	m.mu.Lock()
	handles := make([]uint32, len(t.handleMap))
	for i, e := range t.handleMap {
		handles[i] = e.localHandle
	}
	t.handleMap = nil
	t.localRecordCount = 0
	t.localHandleSeq = 1
	m.mu.Unlock()

	for _, h := range handles {
		_ = m.repo.RemoveRecord(h) // best-effort; concurrent removal is not expected here
	}
}
