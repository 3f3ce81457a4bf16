package pdr

// indexFlag marks bits in an indexEntry's flags field.
type indexFlag uint8

const flagTombstone indexFlag = 1 << 0

// indexEntry is the in-memory "table of contents" entry kept in parallel
// to the blob. It never itself touches the wire.
type indexEntry struct {
	recordHandle uint32
	offset       uint32
	size         uint32 // total size, including the common header
	pdrType      uint8
	flags        indexFlag
}

func (e *indexEntry) tombstoned() bool {
	return e.flags&flagTombstone != 0
}
