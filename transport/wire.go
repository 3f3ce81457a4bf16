package transport

import (
	"encoding/binary"
	"fmt"
)

// TransferOpFlag selects whether GetPDR/FindPDR start a fresh transfer
// or continue one already in progress (DSP0248 transferOperationFlag).
type TransferOpFlag uint8

const (
	TransferOpGetNextPart  TransferOpFlag = 0x00
	TransferOpGetFirstPart TransferOpFlag = 0x01
)

// TransferFlag mirrors pdr.TransferFlag on the wire; kept distinct so
// this package has no import-time dependency on pdr.
type TransferFlag uint8

const (
	TransferStart       TransferFlag = 0x00
	TransferMiddle      TransferFlag = 0x01
	TransferEnd         TransferFlag = 0x04
	TransferStartAndEnd TransferFlag = 0x05
)

// RepositoryInfoResponse is the GetPDRRepositoryInfo (0x50) response
// body, minus the PLDM timestamp104 update-time fields this
// implementation does not track.
type RepositoryInfoResponse struct {
	CompletionCode            CompletionCode
	RepositoryState           uint8
	RecordCount               uint32
	RepositorySize            uint32
	LargestRecordSize         uint32
	DataTransferHandleTimeout uint8
}

// repositoryInfoRespWireSize accounts for the two 13-byte timestamp104
// fields (update_time, oem_update_time) which are present on the wire
// but not surfaced in RepositoryInfoResponse.
const repositoryInfoRespWireSize = 1 + 13 + 13 + 4 + 4 + 4 + 1

// EncodeRepositoryInfoResponse serializes a GetPDRRepositoryInfo
// response. Timestamp104 fields are always zeroed; this implementation
// does not track real update times. Used by fixture/demo transports,
// not by the manager, which only ever decodes this response.
func EncodeRepositoryInfoResponse(resp RepositoryInfoResponse) []byte {
	buf := make([]byte, repositoryInfoRespWireSize)
	buf[0] = byte(resp.CompletionCode)
	if resp.CompletionCode != CCSuccess {
		return buf[:1]
	}

	buf[1] = resp.RepositoryState
	offset := 1 + 13 + 13
	binary.LittleEndian.PutUint32(buf[offset:offset+4], resp.RecordCount)
	binary.LittleEndian.PutUint32(buf[offset+4:offset+8], resp.RepositorySize)
	binary.LittleEndian.PutUint32(buf[offset+8:offset+12], resp.LargestRecordSize)
	buf[offset+12] = resp.DataTransferHandleTimeout

	return buf
}

// DecodeRepositoryInfoResponse parses a GetPDRRepositoryInfo response.
func DecodeRepositoryInfoResponse(buf []byte) (RepositoryInfoResponse, error) {
	if len(buf) < repositoryInfoRespWireSize {
		return RepositoryInfoResponse{}, fmt.Errorf("transport: short GetPDRRepositoryInfo response: need %d bytes, have %d", repositoryInfoRespWireSize, len(buf))
	}

	resp := RepositoryInfoResponse{
		CompletionCode: CompletionCode(buf[0]),
	}
	if resp.CompletionCode != CCSuccess {
		return resp, nil
	}

	resp.RepositoryState = buf[1]
	offset := 1 + 13 + 13
	resp.RecordCount = binary.LittleEndian.Uint32(buf[offset : offset+4])
	resp.RepositorySize = binary.LittleEndian.Uint32(buf[offset+4 : offset+8])
	resp.LargestRecordSize = binary.LittleEndian.Uint32(buf[offset+8 : offset+12])
	resp.DataTransferHandleTimeout = buf[offset+12]

	return resp, nil
}

// GetPDRRequest is the GetPDR (0x51) request body.
type GetPDRRequest struct {
	RecordHandle        uint32
	DataTransferHandle  uint32
	TransferOpFlag      TransferOpFlag
	RequestCount        uint16
	RecordChangeNumber  uint16
}

const getPDRReqWireSize = 4 + 4 + 1 + 2 + 2

// Encode serializes a GetPDR request.
func (r GetPDRRequest) Encode() []byte {
	buf := make([]byte, getPDRReqWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.RecordHandle)
	binary.LittleEndian.PutUint32(buf[4:8], r.DataTransferHandle)
	buf[8] = uint8(r.TransferOpFlag)
	binary.LittleEndian.PutUint16(buf[9:11], r.RequestCount)
	binary.LittleEndian.PutUint16(buf[11:13], r.RecordChangeNumber)
	return buf
}

// GetPDRResponse is the GetPDR (0x51) response: fixed header plus the
// variable-length record data that follows it.
type GetPDRResponse struct {
	CompletionCode         CompletionCode
	NextRecordHandle       uint32
	NextDataTransferHandle uint32
	TransferFlag           TransferFlag
	RecordData             []byte
}

const getPDRRespHeaderSize = 1 + 4 + 4 + 1 + 2

// EncodeGetPDRResponse serializes a GetPDR response, used by fixture/demo
// transports to build canned multi-part replies.
func EncodeGetPDRResponse(resp GetPDRResponse) []byte {
	if resp.CompletionCode != CCSuccess {
		return []byte{byte(resp.CompletionCode)}
	}

	buf := make([]byte, getPDRRespHeaderSize+len(resp.RecordData))
	buf[0] = byte(resp.CompletionCode)
	binary.LittleEndian.PutUint32(buf[1:5], resp.NextRecordHandle)
	binary.LittleEndian.PutUint32(buf[5:9], resp.NextDataTransferHandle)
	buf[9] = byte(resp.TransferFlag)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(len(resp.RecordData)))
	copy(buf[getPDRRespHeaderSize:], resp.RecordData)

	return buf
}

// DecodeGetPDRResponse parses a GetPDR response.
func DecodeGetPDRResponse(buf []byte) (GetPDRResponse, error) {
	if len(buf) < 1 {
		return GetPDRResponse{}, fmt.Errorf("transport: empty GetPDR response")
	}

	resp := GetPDRResponse{CompletionCode: CompletionCode(buf[0])}
	if resp.CompletionCode != CCSuccess {
		return resp, nil
	}

	if len(buf) < getPDRRespHeaderSize {
		return GetPDRResponse{}, fmt.Errorf("transport: short GetPDR response: need %d bytes, have %d", getPDRRespHeaderSize, len(buf))
	}

	resp.NextRecordHandle = binary.LittleEndian.Uint32(buf[1:5])
	resp.NextDataTransferHandle = binary.LittleEndian.Uint32(buf[5:9])
	resp.TransferFlag = TransferFlag(buf[9])
	responseCount := binary.LittleEndian.Uint16(buf[10:12])

	if int(responseCount) > len(buf)-getPDRRespHeaderSize {
		return GetPDRResponse{}, fmt.Errorf("transport: GetPDR response_count %d exceeds buffer", responseCount)
	}

	resp.RecordData = make([]byte, responseCount)
	copy(resp.RecordData, buf[getPDRRespHeaderSize:getPDRRespHeaderSize+int(responseCount)])

	return resp, nil
}

// RepositorySignatureResponse is the GetPDRRepositorySignature (0x53)
// response body.
type RepositorySignatureResponse struct {
	CompletionCode CompletionCode
	Signature      uint32
}

const repositorySignatureRespWireSize = 1 + 4

// EncodeRepositorySignatureResponse serializes a
// GetPDRRepositorySignature response.
func EncodeRepositorySignatureResponse(resp RepositorySignatureResponse) []byte {
	buf := make([]byte, repositorySignatureRespWireSize)
	buf[0] = byte(resp.CompletionCode)
	if resp.CompletionCode != CCSuccess {
		return buf[:1]
	}
	binary.LittleEndian.PutUint32(buf[1:5], resp.Signature)
	return buf
}

// DecodeRepositorySignatureResponse parses a GetPDRRepositorySignature
// response.
func DecodeRepositorySignatureResponse(buf []byte) (RepositorySignatureResponse, error) {
	if len(buf) < 1 {
		return RepositorySignatureResponse{}, fmt.Errorf("transport: empty GetPDRRepositorySignature response")
	}

	resp := RepositorySignatureResponse{CompletionCode: CompletionCode(buf[0])}
	if resp.CompletionCode != CCSuccess {
		return resp, nil
	}

	if len(buf) < repositorySignatureRespWireSize {
		return RepositorySignatureResponse{}, fmt.Errorf("transport: short GetPDRRepositorySignature response: need %d bytes, have %d", repositorySignatureRespWireSize, len(buf))
	}

	resp.Signature = binary.LittleEndian.Uint32(buf[1:5])
	return resp, nil
}
