// Package transport defines the narrow collaborator contract the
// manager uses to talk to remote PLDM termini, plus the DSP0248
// Platform Monitoring & Control wire encodings for the four PDR
// commands. The MCTP/PLDM dispatch stack itself (binding, routing,
// responder queue) is out of scope: callers plug in their own
// Transport implementation.
package transport

import "context"

// PLDM type and command codes (DSP0248).
const (
	TypePlatform = 0x02

	CmdGetPDRRepositoryInfo      = 0x50
	CmdGetPDR                    = 0x51
	CmdFindPDR                   = 0x52
	CmdGetPDRRepositorySignature = 0x53
)

// CompletionCode is the first byte of every PLDM response.
type CompletionCode uint8

const (
	CCSuccess                    CompletionCode = 0x00
	CCError                      CompletionCode = 0x01
	CCErrorInvalidData           CompletionCode = 0x02
	CCErrorInvalidLength         CompletionCode = 0x03
	CCErrorUnsupportedPLDMCmd    CompletionCode = 0x04
	CCErrorInvalidRecordHandle   CompletionCode = 0x05
)

// Transport is a single blocking send/receive round trip to a remote
// MCTP endpoint. Implementations own framing, retries at the link
// layer, and any binding-specific addressing; the manager only ever
// calls this one method.
type Transport interface {
	SendRecv(ctx context.Context, eid uint8, pldmType, command uint8, req []byte) (resp []byte, err error)
}
