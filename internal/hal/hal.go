// Package hal orchestrates the driver core: the lifecycle state machine,
// the RX and TX worker goroutines, the memory accountant and the frame
// and TX queues. It is the sole owner of dynamic frame memory and the
// sole caller into the codec.
package hal

import (
	"errors"
	"time"

	"github.com/behrlich/go-mmwave/internal/codec"
	"github.com/behrlich/go-mmwave/internal/constants"
	"github.com/behrlich/go-mmwave/internal/interfaces"
	"github.com/behrlich/go-mmwave/internal/platform"
)

// State is the HAL lifecycle state.
type State int

const (
	StateUninit State = iota
	StateInit
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrInvalidState means a lifecycle guard rejected the call.
	ErrInvalidState = errors.New("hal: invalid state")
	// ErrMemory means the accountant or codec refused an allocation.
	ErrMemory = errors.New("hal: allocation refused")
	// ErrQueueFull means a bounded queue refused within its timeout.
	ErrQueueFull = errors.New("hal: queue full")
	// ErrTimeout means a bounded wait elapsed.
	ErrTimeout = errors.New("hal: timed out")
	// ErrPlatform means the underlying port failed.
	ErrPlatform = errors.New("hal: platform failure")
)

// Frame is one queue element: a sink-owned semantic frame buffer.
type Frame struct {
	Data []byte
}

// Config carries everything the HAL needs from the caller.
type Config struct {
	Port          platform.Port
	RxBufSize     int
	TxBufSize     int
	RxThreshold   int
	EventQueueLen int
	Logger        interfaces.Logger
	Observer      interfaces.Observer
}

// HAL is the orchestrator. Create with New, then drive the lifecycle
// Init -> Start -> Stop -> Deinit.
type HAL struct {
	state    State
	codec    *codec.Codec
	uart     *platform.UART
	acct     *Accountant
	frameQ   *platform.Queue[Frame]
	txQ      *platform.Queue[Frame]
	logger   interfaces.Logger
	observer interfaces.Observer

	rxDone chan struct{}
	txDone chan struct{}
}

// New creates a HAL in the Uninit state.
func New() *HAL {
	return &HAL{state: StateUninit}
}

// State returns the current lifecycle state.
func (h *HAL) State() State {
	return h.state
}

// Accountant exposes the memory accountant, mainly for inspection.
func (h *HAL) Accountant() *Accountant {
	return h.acct
}

// Init binds the codec, opens the UART plumbing and creates the queues.
// Valid only in Uninit.
func (h *HAL) Init(cfg Config, c *codec.Codec) error {
	if h.state != StateUninit {
		return ErrInvalidState
	}
	if cfg.Port == nil || c == nil {
		return ErrPlatform
	}

	h.codec = c
	h.logger = cfg.Logger
	h.observer = cfg.Observer
	h.acct = NewAccountant()

	h.codec.Bind(h)
	if err := h.codec.Init(); err != nil {
		h.codec.Unbind()
		return ErrMemory
	}

	h.uart = platform.NewUART(cfg.Port, platform.UARTConfig{
		RxBufSize:     cfg.RxBufSize,
		RxThreshold:   cfg.RxThreshold,
		EventQueueLen: cfg.EventQueueLen,
	}, cfg.Logger)

	h.frameQ = platform.NewQueue[Frame](constants.MaxFramesInQueue)
	h.txQ = platform.NewQueue[Frame](constants.MaxFramesInQueue)

	h.state = StateInit
	if h.logger != nil {
		h.logger.Debugf("hal: initialized")
	}
	return nil
}

// Start enables RX and spawns the worker tasks. Valid in Init or Stopped.
func (h *HAL) Start() error {
	if h.state != StateInit && h.state != StateStopped {
		return ErrInvalidState
	}

	// Stop released the parser buffer; reacquire it before bytes flow.
	if err := h.codec.Init(); err != nil {
		return ErrMemory
	}

	h.rxDone = make(chan struct{})
	h.txDone = make(chan struct{})
	h.uart.EnableRx()
	go h.rxTask(h.rxDone)
	go h.txTask(h.txDone)

	h.state = StateRunning
	if h.logger != nil {
		h.logger.Debugf("hal: running")
	}
	return nil
}

// Stop disables RX, waits for both workers to finish, then stops the
// codec. Valid only in Running.
func (h *HAL) Stop() error {
	if h.state != StateRunning {
		return ErrInvalidState
	}

	h.uart.DisableRx()
	<-h.rxDone
	<-h.txDone
	h.codec.Stop()

	h.state = StateStopped
	if h.logger != nil {
		h.logger.Debugf("hal: stopped")
	}
	return nil
}

// Deinit drains and frees both queues, releases the UART and unbinds the
// codec. Valid in Init or Stopped.
func (h *HAL) Deinit() error {
	if h.state != StateInit && h.state != StateStopped {
		return ErrInvalidState
	}

	// The codec still holds its buffer when Stop never ran (Init -> Deinit).
	h.codec.Stop()

	h.frameQ.Drain(func(f Frame) { h.acct.Free(f.Data) })
	h.txQ.Drain(func(f Frame) { h.acct.Free(f.Data) })

	if err := h.uart.Close(); err != nil {
		if h.logger != nil {
			h.logger.Printf("hal: closing uart failed: %v", err)
		}
		return ErrPlatform
	}

	h.codec.Unbind()
	h.codec = nil
	h.uart = nil

	h.state = StateUninit
	return nil
}

// SendFrame frames payload and enqueues it for transmission.
// Valid only in Running.
func (h *HAL) SendFrame(payload []byte, ctrl, cmd byte) error {
	if h.state != StateRunning {
		return ErrInvalidState
	}
	frame, ok := h.codec.BuildFrame(payload, ctrl, cmd)
	if !ok {
		return ErrMemory
	}
	if !h.txQ.Send(Frame{Data: frame}, constants.TxQueuePostWait) {
		h.acct.Free(frame)
		if h.observer != nil {
			h.observer.ObserveQueueDrop()
		}
		return ErrQueueFull
	}
	return nil
}

// GetFrame dequeues one received frame, waiting up to timeout. The caller
// owns the frame and must return it with ReleaseFrame. Valid only in
// Running.
func (h *HAL) GetFrame(timeout time.Duration) (Frame, error) {
	if h.state != StateRunning {
		return Frame{}, ErrInvalidState
	}
	f, ok := h.frameQ.Get(timeout)
	if !ok {
		return Frame{}, ErrTimeout
	}
	return f, nil
}

// ReleaseFrame returns a previously handed-out frame buffer.
func (h *HAL) ReleaseFrame(f Frame) {
	h.acct.Free(f.Data)
}

// FlushFrames drains and releases everything in the frame queue.
func (h *HAL) FlushFrames() {
	h.frameQ.Drain(func(f Frame) { h.acct.Free(f.Data) })
}

// SaveFrame implements codec.Sink: the HAL takes ownership of the frame
// and posts it to the frame queue with a bounded wait.
func (h *HAL) SaveFrame(frame []byte) bool {
	if !h.frameQ.Send(Frame{Data: frame}, constants.FrameQueuePostWait) {
		h.acct.Free(frame)
		if h.observer != nil {
			h.observer.ObserveQueueDrop()
		}
		if h.logger != nil {
			h.logger.Printf("hal: frame queue full, frame dropped")
		}
		return false
	}
	if h.observer != nil {
		h.observer.ObserveFrameParsed(len(frame))
	}
	return true
}

// Alloc implements codec.Sink via the accountant.
func (h *HAL) Alloc(size int) []byte {
	buf := h.acct.Alloc(size)
	if buf == nil && h.observer != nil {
		h.observer.ObserveAllocRefused()
	}
	return buf
}

// Free implements codec.Sink via the accountant.
func (h *HAL) Free(buf []byte) {
	h.acct.Free(buf)
}

// rxTask waits for UART events and feeds received bytes to the codec. It
// exits once the dispatcher has ended and the event queue is drained.
func (h *HAL) rxTask(done chan<- struct{}) {
	defer close(done)
	scratch := make([]byte, constants.RxChunkSize)
	for {
		ev, ok := h.uart.Events().Get(constants.RxEventWait)
		if ok {
			switch ev.Type {
			case platform.EventRxData:
				h.readAndParse(scratch, ev.Len)
			case platform.EventFifoOverflow, platform.EventBufferFull:
				if h.logger != nil {
					h.logger.Printf("hal rx: overflow event type=%d dropped=%d", ev.Type, ev.Len)
				}
				h.uart.Flush()
			}
		}
		if h.uart.DispatcherEnded() && h.uart.Events().Len() == 0 {
			if h.logger != nil {
				h.logger.Debugf("hal rx: dispatcher ended, exiting")
			}
			return
		}
	}
}

func (h *HAL) readAndParse(scratch []byte, announced int) {
	for announced > 0 {
		want := announced
		if want > len(scratch) {
			want = len(scratch)
		}
		n := h.uart.ReadBuffered(scratch[:want], constants.UartReadWait)
		if n == 0 {
			return
		}
		if h.observer != nil {
			h.observer.ObserveRxBytes(n)
		}
		status := h.codec.ParseData(scratch[:n])
		switch status {
		case codec.StatusMemoryFault:
			if h.observer != nil {
				h.observer.ObserveFrameDropped(interfaces.DropMemory)
			}
			if h.logger != nil {
				h.logger.Printf("hal rx: parser memory fault, frame dropped")
			}
		case codec.StatusQueueFull:
			if h.observer != nil {
				h.observer.ObserveFrameDropped(interfaces.DropQueue)
			}
		}
		announced -= n
	}
}

// txTask drains the TX queue into the UART, freeing each buffer after the
// write. Same exit condition as the RX task.
func (h *HAL) txTask(done chan<- struct{}) {
	defer close(done)
	for {
		f, ok := h.txQ.Get(constants.TxQueueWait)
		if ok {
			if err := h.uart.Write(f.Data); err != nil {
				if h.logger != nil {
					h.logger.Printf("hal tx: write failed: %v", err)
				}
			} else if h.observer != nil {
				h.observer.ObserveTxFrame(len(f.Data))
			}
			h.acct.Free(f.Data)
		}
		if h.uart.DispatcherEnded() && h.txQ.Len() == 0 {
			if h.logger != nil {
				h.logger.Debugf("hal tx: dispatcher ended, exiting")
			}
			return
		}
	}
}
