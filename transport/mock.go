package transport

import (
	"context"
	"fmt"
	"sync"
)

// responseKey identifies one canned response in a MockTransport fixture.
type responseKey struct {
	eid     uint8
	command uint8
	call    int // 0-indexed call number for this (eid, command) pair
}

// MockTransport is a deterministic, in-memory Transport fixture for
// tests and `pldmctl sync --fixture`. Responses are queued per
// (eid, command) pair and served in order; once a queue is exhausted
// its last response is repeated, so a fixture can describe a handful
// of interesting frames and let steady-state calls fall through to the
// terminal one.
type MockTransport struct {
	mu        sync.Mutex
	responses map[responseKey][]byte
	calls     map[[2]uint8]int
	recorded  []RecordedCall
}

// RecordedCall captures one SendRecv invocation for assertions.
type RecordedCall struct {
	EID     uint8
	Command uint8
	Request []byte
}

// NewMockTransport returns an empty fixture.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[responseKey][]byte),
		calls:     make(map[[2]uint8]int),
	}
}

// QueueResponse appends resp to the ordered response queue for
// (eid, command). The first call for that pair returns the first
// queued response, the second call the second, and so on.
func (m *MockTransport) QueueResponse(eid, command uint8, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair := [2]uint8{eid, command}
	idx := len(m.queuedLocked(pair))
	m.responses[responseKey{eid: eid, command: command, call: idx}] = resp
}

func (m *MockTransport) queuedLocked(pair [2]uint8) []int {
	var calls []int
	for k := range m.responses {
		if k.eid == pair[0] && k.command == pair[1] {
			calls = append(calls, k.call)
		}
	}
	return calls
}

// SendRecv implements Transport by returning the next queued response
// for (eid, command), repeating the last one once the queue runs dry.
func (m *MockTransport) SendRecv(_ context.Context, eid uint8, _ uint8, command uint8, req []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair := [2]uint8{eid, command}
	call := m.calls[pair]
	m.calls[pair] = call + 1
	m.recorded = append(m.recorded, RecordedCall{EID: eid, Command: command, Request: append([]byte(nil), req...)})

	queued := m.queuedLocked(pair)
	if len(queued) == 0 {
		return nil, fmt.Errorf("transport: mock has no queued response for eid=%d command=0x%02x", eid, command)
	}

	if call >= len(queued) {
		call = len(queued) - 1
	}
	resp := m.responses[responseKey{eid: eid, command: command, call: call}]

	return append([]byte(nil), resp...), nil
}

// Calls returns every SendRecv invocation recorded so far, in order.
func (m *MockTransport) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]RecordedCall(nil), m.recorded...)
}
