package platform

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/behrlich/go-mmwave/internal/constants"
	"github.com/behrlich/go-mmwave/internal/interfaces"
)

// EventType identifies a UART event.
type EventType int

const (
	// EventRxData announces that Len bytes are buffered and readable.
	EventRxData EventType = iota
	// EventFifoOverflow signals that the RX ring overflowed and the
	// oldest bytes were dropped.
	EventFifoOverflow
	// EventBufferFull signals that the event queue itself refused an event.
	EventBufferFull
)

// Event is a portable UART event.
type Event struct {
	Type EventType
	Len  int
}

// UARTConfig sizes the RX ring, the announcement threshold and the
// event queue.
type UARTConfig struct {
	RxBufSize     int
	RxThreshold   int
	EventQueueLen int
}

// UART owns a Port and a pump goroutine that converts port reads into
// portable events. The pump plays the role of the RX interrupt and the
// event dispatcher: bytes land in an internal ring, and once at least
// RxThreshold bytes are pending (or the port read times out with bytes
// pending) an EventRxData is posted carrying the pending count.
type UART struct {
	port   Port
	cfg    UARTConfig
	events *Queue[Event]
	logger interfaces.Logger

	mu   sync.Mutex
	ring []byte

	pumpMu   sync.Mutex
	pumpStop chan struct{}
	pumpDone chan struct{}
	running  bool
	ended    atomic.Bool
}

// NewUART wraps port. Zero config fields take package defaults.
func NewUART(port Port, cfg UARTConfig, logger interfaces.Logger) *UART {
	if cfg.RxBufSize <= 0 {
		cfg.RxBufSize = constants.DefaultRxBufSize
	}
	if cfg.RxThreshold <= 0 {
		cfg.RxThreshold = constants.DefaultRxThreshold
	}
	if cfg.EventQueueLen <= 0 {
		cfg.EventQueueLen = constants.EventQueueLen
	}
	u := &UART{
		port:   port,
		cfg:    cfg,
		events: NewQueue[Event](cfg.EventQueueLen),
		logger: logger,
	}
	u.ended.Store(true)
	return u
}

// Events returns the event queue the pump posts into.
func (u *UART) Events() *Queue[Event] {
	return u.events
}

// EnableRx starts the pump goroutine. It is the portable analogue of
// enabling the RX interrupt.
func (u *UART) EnableRx() {
	u.pumpMu.Lock()
	defer u.pumpMu.Unlock()
	if u.running {
		return
	}
	u.running = true
	u.ended.Store(false)
	u.pumpStop = make(chan struct{})
	u.pumpDone = make(chan struct{})
	go u.pump(u.pumpStop, u.pumpDone)
}

// DisableRx stops the pump and waits for it to exit. After DisableRx
// returns, DispatcherEnded reports true and no further events are posted.
func (u *UART) DisableRx() {
	u.pumpMu.Lock()
	if !u.running {
		u.pumpMu.Unlock()
		return
	}
	u.running = false
	stop, done := u.pumpStop, u.pumpDone
	u.pumpMu.Unlock()
	close(stop)
	<-done
}

// DispatcherEnded reports whether the pump has exited.
func (u *UART) DispatcherEnded() bool {
	return u.ended.Load()
}

func (u *UART) pump(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer u.ended.Store(true)

	scratch := make([]byte, 256)
	pending := 0
	for {
		select {
		case <-stop:
			if pending > 0 {
				u.postEvent(Event{Type: EventRxData, Len: pending})
			}
			return
		default:
		}

		n, err := u.port.Read(scratch)
		if err != nil {
			if u.logger != nil {
				u.logger.Printf("uart pump: read failed: %v", err)
			}
			if pending > 0 {
				u.postEvent(Event{Type: EventRxData, Len: pending})
			}
			return
		}
		if n > 0 {
			dropped := u.buffer(scratch[:n])
			if dropped > 0 {
				pending -= dropped
				if pending < 0 {
					pending = 0
				}
				u.postEvent(Event{Type: EventFifoOverflow, Len: dropped})
			}
			pending += n
			if pending >= u.cfg.RxThreshold {
				u.postEvent(Event{Type: EventRxData, Len: pending})
				pending = 0
			}
		} else if pending > 0 {
			// Read timeout with bytes pending: announce what we have.
			u.postEvent(Event{Type: EventRxData, Len: pending})
			pending = 0
		}
	}
}

// buffer appends data to the RX ring, dropping the oldest bytes when the
// ring is full. Returns the number of dropped bytes.
func (u *UART) buffer(data []byte) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ring = append(u.ring, data...)
	dropped := 0
	if over := len(u.ring) - u.cfg.RxBufSize; over > 0 {
		u.ring = u.ring[over:]
		dropped = over
	}
	return dropped
}

func (u *UART) postEvent(ev Event) {
	if u.events.Send(ev, 0) {
		return
	}
	if u.logger != nil {
		u.logger.Printf("uart pump: event queue full, dropping event type=%d len=%d", ev.Type, ev.Len)
	}
}

// ReadBuffered copies up to len(p) buffered bytes into p, waiting up to
// timeout for at least one byte. Returns the number of bytes copied.
func (u *UART) ReadBuffered(p []byte, timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	for {
		u.mu.Lock()
		if len(u.ring) > 0 {
			n := copy(p, u.ring)
			u.ring = u.ring[n:]
			u.mu.Unlock()
			return n
		}
		u.mu.Unlock()
		if timeout <= 0 || time.Now().After(deadline) {
			return 0
		}
		time.Sleep(time.Millisecond)
	}
}

// Buffered returns the number of bytes currently in the RX ring.
func (u *UART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.ring)
}

// Write sends p out the port, looping until every byte is written.
func (u *UART) Write(p []byte) error {
	for len(p) > 0 {
		n, err := u.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Flush clears the RX ring, the event queue and the port's input buffer.
func (u *UART) Flush() {
	u.mu.Lock()
	u.ring = nil
	u.mu.Unlock()
	u.events.Drain(nil)
	_ = u.port.ResetInputBuffer()
}

// Close stops the pump if needed and closes the underlying port.
func (u *UART) Close() error {
	u.DisableRx()
	return u.port.Close()
}
