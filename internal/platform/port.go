package platform

import (
	"sync"
	"time"

	"go.bug.st/serial"
)

// Port is the UART contract the driver consumes. Read returns (0, nil)
// when the port's read timeout elapses with no data, matching serial
// port semantics.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	Close() error
}

// SerialConfig describes a physical serial port.
type SerialConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	Parity      serial.Parity
	StopBits    serial.StopBits
	ReadTimeout time.Duration
}

// SerialPort adapts go.bug.st/serial to the Port interface.
type SerialPort struct {
	serial.Port
}

// OpenSerial opens the serial device described by cfg.
func OpenSerial(cfg SerialConfig) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 20 * time.Millisecond
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, err
	}
	return &SerialPort{Port: port}, nil
}

// MemPort is an in-memory duplex port. The driver reads bytes injected via
// Inject and its writes accumulate for inspection via Written. It lets the
// whole stack run without hardware, in tests and in simulation.
type MemPort struct {
	mu       sync.Mutex
	rx       []byte
	tx       []byte
	closed   bool
	readWait time.Duration
}

// NewMemPort creates an open MemPort.
func NewMemPort() *MemPort {
	return &MemPort{readWait: 5 * time.Millisecond}
}

// Inject appends data to the stream the driver will read, as if the
// module had transmitted it.
func (m *MemPort) Inject(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, data...)
}

// Written returns a copy of everything written to the port so far.
func (m *MemPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.tx))
	copy(out, m.tx)
	return out
}

// ClearWritten discards the accumulated written bytes.
func (m *MemPort) ClearWritten() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tx = nil
}

// Read copies pending injected bytes into p. It waits briefly for data and
// returns (0, nil) on timeout, matching serial read-timeout behaviour.
func (m *MemPort) Read(p []byte) (int, error) {
	deadline := time.Now().Add(m.readWait)
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return 0, ErrPortClosed
		}
		if len(m.rx) > 0 {
			n := copy(p, m.rx)
			m.rx = m.rx[n:]
			m.mu.Unlock()
			return n, nil
		}
		m.mu.Unlock()
		if time.Now().After(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Write records p as transmitted bytes.
func (m *MemPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrPortClosed
	}
	m.tx = append(m.tx, p...)
	return len(p), nil
}

// ResetInputBuffer discards any pending injected bytes.
func (m *MemPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = nil
	return nil
}

// Close marks the port closed. Subsequent reads and writes fail.
func (m *MemPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// ErrPortClosed is returned by MemPort operations after Close.
var ErrPortClosed = portClosedError{}

type portClosedError struct{}

func (portClosedError) Error() string { return "platform: port closed" }
