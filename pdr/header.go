// Package pdr implements the local PDR repository: a blob-backed,
// index-addressable store of PLDM Platform Data Records (DSP0248).
package pdr

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the wire size of the PDR common header in bytes.
const HeaderSize = 4 + 1 + 1 + 2 + 2

// HeaderVersion is the only PDR header version this repository accepts.
const HeaderVersion = 0x01

// Header is the PLDM PDR common header (DSP0248): every record in the
// blob begins with one of these, followed by data_length bytes of
// record-specific payload.
type Header struct {
	RecordHandle    uint32
	HeaderVersion   uint8
	PDRType         uint8
	RecordChangeNum uint16
	DataLength      uint16
}

// encodeHeader writes h to buf in wire order. buf must be at least
// HeaderSize bytes.
func encodeHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.RecordHandle)
	buf[4] = h.HeaderVersion
	buf[5] = h.PDRType
	binary.LittleEndian.PutUint16(buf[6:8], h.RecordChangeNum)
	binary.LittleEndian.PutUint16(buf[8:10], h.DataLength)
}

// EncodeHeader serializes h into a new HeaderSize-byte buffer. Exported
// for callers that build a full wire-format record outside this
// package, such as manager tests composing a fake remote PDR.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	encodeHeader(buf, h)
	return buf
}

// DecodeHeader parses a PDR common header from the front of buf. It is
// exported so callers outside this package (the manager, decoding
// headers fetched from a remote terminus) can parse the same wire
// format without duplicating it.
func DecodeHeader(buf []byte) (Header, error) {
	return decodeHeader(buf)
}

// decodeHeader parses a PDR common header from the front of buf.
func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes for PDR header, have %d", ErrDecode, HeaderSize, len(buf))
	}

	h := Header{
		RecordHandle:    binary.LittleEndian.Uint32(buf[0:4]),
		HeaderVersion:   buf[4],
		PDRType:         buf[5],
		RecordChangeNum: binary.LittleEndian.Uint16(buf[6:8]),
		DataLength:      binary.LittleEndian.Uint16(buf[8:10]),
	}

	if h.HeaderVersion != HeaderVersion {
		return Header{}, fmt.Errorf("%w: PDR header version 0x%02x, want 0x%02x", ErrDecode, h.HeaderVersion, HeaderVersion)
	}

	return h, nil
}
