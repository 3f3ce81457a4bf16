package chgevent

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes event to its DSP0248 wire representation:
//
//	eventDataFormat       uint8
//	numberOfChangeRecords uint8
//	for each record:
//	  eventDataOperation    uint8
//	  numberOfChangeEntries uint8
//	  changeEntries[]       uint32 (little-endian)
//
// It validates event before encoding.
func Encode(event ChangeEvent) ([]byte, error) {
	if err := Validate(event); err != nil {
		return nil, err
	}

	buf := make([]byte, 2, EncodedSize(event))
	buf[0] = uint8(event.Format)
	buf[1] = uint8(len(event.ChangeRecords))

	for _, rec := range event.ChangeRecords {
		buf = append(buf, uint8(rec.Operation), uint8(len(rec.ChangeEntries)))
		for _, entry := range rec.ChangeEntries {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], entry)
			buf = append(buf, tmp[:]...)
		}
	}

	return buf, nil
}

// Decode parses a DSP0248 change-event payload and validates the result.
func Decode(buf []byte) (ChangeEvent, error) {
	if len(buf) < 2 {
		return ChangeEvent{}, fmt.Errorf("%w: need 2 bytes for event header, have %d", ErrShortBuffer, len(buf))
	}

	event := ChangeEvent{
		Format: EventFormat(buf[0]),
	}
	numRecords := int(buf[1])
	offset := 2

	if event.Format == FormatRefreshEntireRepository {
		if numRecords != 0 {
			return ChangeEvent{}, fmt.Errorf("%w: refreshEntireRepository carries %d change records, want 0", ErrInvalidEvent, numRecords)
		}
		return event, nil
	}

	if numRecords > MaxChangeRecords {
		return ChangeEvent{}, fmt.Errorf("%w: %d change records exceeds max %d", ErrInvalidEvent, numRecords, MaxChangeRecords)
	}

	event.ChangeRecords = make([]ChangeRecord, 0, numRecords)

	for i := 0; i < numRecords; i++ {
		if offset+2 > len(buf) {
			return ChangeEvent{}, fmt.Errorf("%w: record %d header truncated", ErrShortBuffer, i)
		}

		rec := ChangeRecord{Operation: Operation(buf[offset])}
		numEntries := int(buf[offset+1])
		offset += 2

		if numEntries > MaxChangeEntries {
			return ChangeEvent{}, fmt.Errorf("%w: record %d has %d entries, exceeds max %d", ErrInvalidEvent, i, numEntries, MaxChangeEntries)
		}

		entriesLen := numEntries * 4
		if offset+entriesLen > len(buf) {
			return ChangeEvent{}, fmt.Errorf("%w: record %d entries truncated", ErrShortBuffer, i)
		}

		rec.ChangeEntries = make([]uint32, numEntries)
		for j := 0; j < numEntries; j++ {
			rec.ChangeEntries[j] = binary.LittleEndian.Uint32(buf[offset : offset+4])
			offset += 4
		}

		event.ChangeRecords = append(event.ChangeRecords, rec)
	}

	if err := Validate(event); err != nil {
		return ChangeEvent{}, err
	}

	return event, nil
}

// EncodedSize returns the wire size event would occupy, without
// encoding it. Used by the tracker's MTU fallback check.
func EncodedSize(event ChangeEvent) int {
	size := 2
	for _, rec := range event.ChangeRecords {
		size += 2 + len(rec.ChangeEntries)*4
	}
	return size
}
