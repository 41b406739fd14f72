package websocket

import (
	"errors"
	"sync"
	"time"
)

// mockConnection records written frames and replays queued reads
type mockConnection struct {
	mu      sync.Mutex
	written []mockFrame
	reads   chan mockFrame
	closed  bool

	readLimit   int64
	pongHandler func(string) error
}

type mockFrame struct {
	Type int
	Data []byte
	Err  error
}

func newMockConnection() *mockConnection {
	return &mockConnection{reads: make(chan mockFrame, 16)}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.written = append(m.written, mockFrame{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	f, ok := <-m.reads
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return f.Type, f.Data, f.Err
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.reads)
	}
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	m.readLimit = limit
	m.mu.Unlock()
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	m.pongHandler = h
	m.mu.Unlock()
}

func (m *mockConnection) frames() []mockFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockFrame(nil), m.written...)
}

func (m *mockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
