package pdr

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TransferFlag mirrors the GetPDR response transfer_flag (DSP0248).
type TransferFlag uint8

const (
	TransferStart       TransferFlag = 0x00
	TransferMiddle      TransferFlag = 0x01
	TransferEnd         TransferFlag = 0x04
	TransferStartAndEnd TransferFlag = 0x05
)

// TransferChunkSize is the maximum number of data bytes returned per
// GetPDR call (spec §6 "Compile-time limits").
const TransferChunkSize = 128

// RepositoryState mirrors pdr_repo_info_t.repository_state.
type RepositoryState uint8

const (
	StateAvailable        RepositoryState = 0
	StateUpdateInProgress RepositoryState = 1
	StateFailed           RepositoryState = 2
)

// Info is the pre-computed repository-level metadata served by
// GetPDRRepositoryInfo. It is recomputed on every mutation so the
// command handler is O(1).
type Info struct {
	State                     RepositoryState
	RecordCount               uint32
	RepositorySize            uint32
	LargestRecordSize         uint32
	DataTransferHandleTimeout uint8
}

type options struct {
	log *zap.SugaredLogger
}

func newOptions() *options {
	return &options{log: zap.NewNop().Sugar()}
}

// Option configures a Repository.
type Option func(*options)

// WithLogger attaches a logger used for mutation/lifecycle events.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// Repository is a blob-backed, index-addressable PDR store (spec §3,
// §4.1). Zero value is not usable; construct with NewRepository.
type Repository struct {
	mu sync.Mutex

	blob         []byte
	blobCapacity uint32
	blobUsed     uint32

	index      []indexEntry
	maxRecords int

	info Info

	signature      uint32
	signatureValid bool

	nextRecordHandle uint32

	log *zap.SugaredLogger
}

// NewRepository allocates an empty repository with the given blob
// capacity and maximum record count (spec §6 compile-time limits).
func NewRepository(blobCapacity uint32, maxRecords int, opts ...Option) *Repository {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Repository{
		blob:             make([]byte, blobCapacity),
		blobCapacity:     blobCapacity,
		index:            make([]indexEntry, 0, maxRecords),
		maxRecords:       maxRecords,
		nextRecordHandle: 1,
		log:              o.log,
	}
}

// AddRecord assigns the next handle, appends the record to the blob and
// index, and returns the assigned handle.
func (r *Repository) AddRecord(pdrType uint8, data []byte) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := r.nextRecordHandle
	if err := r.addRecordLocked(handle, pdrType, data); err != nil {
		return 0, err
	}
	r.nextRecordHandle++

	return handle, nil
}

// AddRecordWithHandle inserts data under an explicit, caller-chosen
// handle rather than allocating the next one. It does not advance or
// otherwise touch nextRecordHandle, so it is safe to call from the
// manager's handle-remapping path without an allocator save/restore
// dance (spec §9 design note: "prefer an explicit repository operation
// add_record_with_handle that bypasses allocation entirely").
func (r *Repository) AddRecordWithHandle(handle uint32, pdrType uint8, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addRecordLocked(handle, pdrType, data)
}

func (r *Repository) addRecordLocked(handle uint32, pdrType uint8, data []byte) error {
	if len(r.index) >= r.maxRecords {
		return ErrFull
	}

	totalSize := uint32(HeaderSize + len(data))
	if r.blobUsed+totalSize > r.blobCapacity {
		return ErrOutOfBlobSpace
	}

	hdr := Header{
		RecordHandle:    handle,
		HeaderVersion:   HeaderVersion,
		PDRType:         pdrType,
		RecordChangeNum: 0,
		DataLength:      uint16(len(data)),
	}

	offset := r.blobUsed
	encodeHeader(r.blob[offset:offset+HeaderSize], hdr)
	copy(r.blob[offset+HeaderSize:], data)

	r.index = append(r.index, indexEntry{
		recordHandle: handle,
		offset:       offset,
		size:         totalSize,
		pdrType:      pdrType,
	})
	r.blobUsed += totalSize

	r.updateInfoLocked()

	r.log.Debugw("added PDR record",
		zap.Uint32("handle", handle),
		zap.Uint8("pdr_type", pdrType),
		zap.Int("data_len", len(data)),
	)

	return nil
}

// RemoveRecord tombstones the entry matching handle. Blob bytes are not
// reclaimed until RunInitAgent.
func (r *Repository) RemoveRecord(handle uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.findIndexLocked(handle)
	if idx < 0 {
		return fmt.Errorf("remove record %d: %w", handle, ErrNotFound)
	}

	r.index[idx].flags |= flagTombstone
	r.updateInfoLocked()

	r.log.Debugw("removed PDR record", zap.Uint32("handle", handle))

	return nil
}

// IndexRecord bootstraps an index entry from a record already present
// in the blob at offset (zero-copy bootstrapping, spec §4.1).
func (r *Repository) IndexRecord(offset uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.index) >= r.maxRecords {
		return ErrFull
	}
	if offset >= uint32(len(r.blob)) {
		return fmt.Errorf("index record at %d: %w", offset, ErrOutOfBlobSpace)
	}

	hdr, err := decodeHeader(r.blob[offset:])
	if err != nil {
		return err
	}

	totalSize := uint32(HeaderSize) + uint32(hdr.DataLength)
	if offset+totalSize > r.blobCapacity {
		return fmt.Errorf("index record at %d: %w", offset, ErrOutOfBlobSpace)
	}

	r.index = append(r.index, indexEntry{
		recordHandle: hdr.RecordHandle,
		offset:       offset,
		size:         totalSize,
		pdrType:      hdr.PDRType,
	})

	if hdr.RecordHandle >= r.nextRecordHandle {
		r.nextRecordHandle = hdr.RecordHandle + 1
	}

	if offset+totalSize > r.blobUsed {
		r.blobUsed = offset + totalSize
	}

	r.updateInfoLocked()

	return nil
}

// GetInfo returns the pre-computed repository metadata.
func (r *Repository) GetInfo() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.info
}

// GetPDR implements the multi-part GetPDR transfer protocol (spec §4.1).
// recordHandle 0 resolves to the first non-tombstone record.
func (r *Repository) GetPDR(recordHandle, dataTransferHandle uint32) (data []byte, flag TransferFlag, nextDataTransferHandle, nextRecordHandle uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.findIndexLocked(recordHandle)
	if idx < 0 {
		return nil, 0, 0, 0, fmt.Errorf("get PDR %d: %w", recordHandle, ErrNotFound)
	}

	entry := &r.index[idx]
	if dataTransferHandle >= entry.size {
		return nil, 0, 0, 0, fmt.Errorf("get PDR %d at offset %d: %w", recordHandle, dataTransferHandle, ErrOffsetOutOfRange)
	}

	remaining := entry.size - dataTransferHandle
	chunkLen := remaining
	if chunkLen > TransferChunkSize {
		chunkLen = TransferChunkSize
	}

	start := entry.offset + dataTransferHandle
	chunk := make([]byte, chunkLen)
	copy(chunk, r.blob[start:start+chunkLen])

	isFirst := dataTransferHandle == 0
	isLast := dataTransferHandle+chunkLen >= entry.size

	if isLast {
		nextDataTransferHandle = 0
	} else {
		nextDataTransferHandle = dataTransferHandle + chunkLen
	}

	switch {
	case isFirst && isLast:
		flag = TransferStartAndEnd
	case isFirst:
		flag = TransferStart
	case isLast:
		flag = TransferEnd
	default:
		flag = TransferMiddle
	}

	nextRecordHandle = r.nextLiveHandleAfterLocked(idx)

	return chunk, flag, nextDataTransferHandle, nextRecordHandle, nil
}

// FindPDR performs a linear scan in index order for the next live entry
// of the given type, starting strictly after startHandle (spec §4.1).
func (r *Repository) FindPDR(pdrType uint8, startHandle uint32) (foundHandle uint32, data []byte, nextHandle uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	startIdx := 0
	if startHandle != 0 {
		idx := r.findIndexLocked(startHandle)
		if idx < 0 {
			return 0, nil, 0, fmt.Errorf("find PDR from handle %d: %w", startHandle, ErrNotFound)
		}
		startIdx = idx + 1
	}

	for i := startIdx; i < len(r.index); i++ {
		entry := &r.index[i]
		if entry.tombstoned() || entry.pdrType != pdrType {
			continue
		}

		found := make([]byte, entry.size)
		copy(found, r.blob[entry.offset:entry.offset+entry.size])

		next := uint32(0)
		for j := i + 1; j < len(r.index); j++ {
			if r.index[j].tombstoned() || r.index[j].pdrType != pdrType {
				continue
			}
			next = r.index[j].recordHandle
			break
		}

		return entry.recordHandle, found, next, nil
	}

	return 0, nil, 0, fmt.Errorf("find PDR type %d: %w", pdrType, ErrNotFound)
}

// GetSignature returns the CRC32 (IEEE) of blob[0:blobUsed], lazily
// computed and cached until the next mutation.
func (r *Repository) GetSignature() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.signatureValid {
		r.signature = crc32IEEE(r.blob[:r.blobUsed])
		r.signatureValid = true
	}

	return r.signature
}

// RunInitAgent wipes the repository and invokes callback to repopulate
// it via AddRecord, per spec §4.1.
func (r *Repository) RunInitAgent(callback func(*Repository) error) error {
	if callback == nil {
		return ErrNoCallback
	}

	r.mu.Lock()
	r.info.State = StateUpdateInProgress
	r.blobUsed = 0
	clear(r.blob)
	r.index = r.index[:0]
	r.nextRecordHandle = 1
	r.signatureValid = false
	r.mu.Unlock()

	r.log.Info("run init agent: repository wiped, repopulating")

	if err := callback(r); err != nil {
		r.mu.Lock()
		r.info.State = StateFailed
		r.mu.Unlock()
		return fmt.Errorf("run init agent: %w", err)
	}

	r.mu.Lock()
	r.info.State = StateAvailable
	r.updateInfoLocked()
	r.mu.Unlock()

	r.log.Info("run init agent: repopulation complete")

	return nil
}

func (r *Repository) findIndexLocked(handle uint32) int {
	if handle == 0 {
		for i := range r.index {
			if !r.index[i].tombstoned() {
				return i
			}
		}
		return -1
	}

	for i := range r.index {
		if r.index[i].recordHandle == handle && !r.index[i].tombstoned() {
			return i
		}
	}

	return -1
}

func (r *Repository) nextLiveHandleAfterLocked(idx int) uint32 {
	for j := idx + 1; j < len(r.index); j++ {
		if !r.index[j].tombstoned() {
			return r.index[j].recordHandle
		}
	}
	return 0
}

func (r *Repository) updateInfoLocked() {
	var count, size, largest uint32
	for i := range r.index {
		if r.index[i].tombstoned() {
			continue
		}
		count++
		size += r.index[i].size
		if r.index[i].size > largest {
			largest = r.index[i].size
		}
	}

	r.info.RecordCount = count
	r.info.RepositorySize = size
	r.info.LargestRecordSize = largest

	r.signatureValid = false
}
