// Package mmwave provides a layered driver for a millimetre-wave
// human-presence radar module connected over UART. The driver frames and
// sends inquiries, continuously parses the module's byte stream, and
// delivers typed reports and responses through queues and optional
// callbacks.
//
// Example:
//
//	cfg := mmwave.DefaultConfig("/dev/ttyUSB0")
//	drv := mmwave.New(cfg, nil)
//	if err := drv.Init(); err != nil { ... }
//	if err := drv.Start(); err != nil { ... }
//	drv.InquiryHeartbeat()
//	rep, err := drv.PollReport(time.Second)
package mmwave

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/behrlich/go-mmwave/internal/codec"
	"github.com/behrlich/go-mmwave/internal/constants"
	"github.com/behrlich/go-mmwave/internal/hal"
	"github.com/behrlich/go-mmwave/internal/platform"
)

// State is the driver lifecycle state. The cycle is
// Uninit -> Init -> Running -> Stopped, with Deinit returning to Uninit.
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

// Port is the UART contract the driver consumes. Any implementation with
// serial read-timeout semantics (Read returns (0, nil) when no data
// arrives in time) will do; MockPort provides one for tests.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	Close() error
}

// Logger is the optional logging interface accepted by Options.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Config describes the UART link to the module.
type Config struct {
	// Device is the serial device path, used when Port is nil.
	Device string
	// BaudRate defaults to the module's factory 115200.
	BaudRate int

	// Port overrides the serial device with an explicit port, for tests
	// and simulation. The driver owns the port after Init and closes it
	// on Deinit.
	Port Port

	// RX plumbing sizes; zero values take package defaults.
	RxBufSize     int
	TxBufSize     int
	RxThreshold   int
	EventQueueLen int
}

// DefaultConfig returns a Config for the given serial device with the
// module's factory settings.
func DefaultConfig(device string) Config {
	return Config{
		Device:        device,
		BaudRate:      constants.DefaultBaudRate,
		RxBufSize:     constants.DefaultRxBufSize,
		TxBufSize:     constants.DefaultTxBufSize,
		RxThreshold:   constants.DefaultRxThreshold,
		EventQueueLen: constants.EventQueueLen,
	}
}

// Options carries the optional collaborators.
type Options struct {
	// Logger for debug/info messages (if nil, no logging).
	Logger Logger
	// Observer for metrics collection (if nil, the driver's built-in
	// Metrics collect through a MetricsObserver).
	Observer Observer
}

// Driver is the top-level handle. Create one with New and drive it
// through the lifecycle; all methods are safe to call from any goroutine
// once Start has returned.
type Driver struct {
	cfg Config

	state State
	mode  atomic.Int32

	hal   *hal.HAL
	codec *codec.Codec

	reportQ   *platform.Queue[*Report]
	responseQ *platform.Queue[*Response]

	cbMu       sync.Mutex
	reportCb   ReportCallback
	responseCb ResponseCallback

	logger   Logger
	observer Observer
	metrics  *Metrics

	endFlag     atomic.Bool
	decoderDone chan struct{}
}

// New creates a driver handle in the Uninit state.
func New(cfg Config, options *Options) *Driver {
	if options == nil {
		options = &Options{}
	}
	d := &Driver{
		cfg:     cfg,
		state:   StateUninit,
		logger:  options.Logger,
		metrics: NewMetrics(),
	}
	if options.Observer != nil {
		d.observer = options.Observer
	} else {
		d.observer = NewMetricsObserver(d.metrics)
	}
	return d
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Metrics returns the driver's built-in metrics. The counters only
// advance when no custom Observer was supplied.
func (d *Driver) Metrics() *Metrics {
	return d.metrics
}

// Init opens the port, wires the codec into the HAL and creates the
// report and response queues. Valid only in Uninit.
func (d *Driver) Init() error {
	if d.state != StateUninit {
		return NewError("Init", ErrCodeInvalidState, "driver already initialized")
	}

	port := d.cfg.Port
	if port == nil {
		if d.cfg.Device == "" {
			return NewError("Init", ErrCodeBadArgument, "no device and no port configured")
		}
		baud := d.cfg.BaudRate
		if baud <= 0 {
			baud = constants.DefaultBaudRate
		}
		sp, err := platform.OpenSerial(platform.SerialConfig{
			Device:   d.cfg.Device,
			BaudRate: baud,
		})
		if err != nil {
			return WrapError("Init", err)
		}
		port = sp
	}

	d.codec = codec.New()
	d.hal = hal.New()
	err := d.hal.Init(hal.Config{
		Port:          port,
		RxBufSize:     d.cfg.RxBufSize,
		TxBufSize:     d.cfg.TxBufSize,
		RxThreshold:   d.cfg.RxThreshold,
		EventQueueLen: d.cfg.EventQueueLen,
		Logger:        d.logger,
		Observer:      d.observer,
	}, d.codec)
	if err != nil {
		port.Close()
		return WrapError("Init", err)
	}

	d.reportQ = platform.NewQueue[*Report](constants.AppEventQueueLen)
	d.responseQ = platform.NewQueue[*Response](constants.AppEventQueueLen)

	d.state = StateInit
	return nil
}

// Start starts the HAL workers and the decoder task.
// Valid in Init or Stopped.
func (d *Driver) Start() error {
	if d.state != StateInit && d.state != StateStopped {
		return NewError("Start", ErrCodeInvalidState, "driver not initialized or already running")
	}
	if err := d.hal.Start(); err != nil {
		return WrapError("Start", err)
	}

	d.endFlag.Store(false)
	d.decoderDone = make(chan struct{})
	go d.decoderTask(d.decoderDone)

	d.state = StateRunning
	return nil
}

// Stop stops the HAL, waits for the decoder task to finish and drains the
// event queues. Valid only in Running.
func (d *Driver) Stop() error {
	if d.state != StateRunning {
		return NewError("Stop", ErrCodeInvalidState, "driver not running")
	}
	if err := d.hal.Stop(); err != nil {
		return WrapError("Stop", err)
	}

	d.endFlag.Store(true)
	<-d.decoderDone

	d.reportQ.Drain(nil)
	d.responseQ.Drain(nil)
	d.metrics.Stop()

	d.state = StateStopped
	return nil
}

// Deinit releases the HAL, its queues and the port.
// Valid in Init or Stopped.
func (d *Driver) Deinit() error {
	if d.state != StateInit && d.state != StateStopped {
		return NewError("Deinit", ErrCodeInvalidState, "driver not stopped")
	}
	if err := d.hal.Deinit(); err != nil {
		return WrapError("Deinit", err)
	}
	d.hal = nil
	d.codec = nil
	d.reportQ = nil
	d.responseQ = nil

	d.state = StateUninit
	return nil
}

// Mode returns the current operating mode.
func (d *Driver) Mode() Mode {
	return Mode(d.mode.Load())
}

// SetMode changes the operating mode. Valid only in Running. Most callers
// never need this directly: InquiryUofOutputSwitchSet flips the mode as a
// side effect of switching the module.
func (d *Driver) SetMode(m Mode) error {
	if d.state != StateRunning {
		return NewError("SetMode", ErrCodeInvalidState, "driver not running")
	}
	if m != ModeStandard && m != ModeUnderlyingOpen {
		return NewError("SetMode", ErrCodeBadArgument, "unknown mode")
	}
	d.mode.Store(int32(m))
	return nil
}

// RegisterEventCallbacks installs optional per-event callbacks invoked in
// addition to the queues. Callbacks run on the decoder goroutine and must
// not block or retain references.
func (d *Driver) RegisterEventCallbacks(onResponse ResponseCallback, onReport ReportCallback) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	d.responseCb = onResponse
	d.reportCb = onReport
}

// PollReport dequeues one report, waiting up to timeout.
func (d *Driver) PollReport(timeout time.Duration) (Report, error) {
	if d.state != StateRunning {
		return Report{}, NewError("PollReport", ErrCodeInvalidState, "driver not running")
	}
	rep, ok := d.reportQ.Get(timeout)
	if !ok {
		return Report{}, NewError("PollReport", ErrCodeTimeout, "no report available")
	}
	return *rep, nil
}

// PollResponse dequeues one response, waiting up to timeout.
func (d *Driver) PollResponse(timeout time.Duration) (Response, error) {
	if d.state != StateRunning {
		return Response{}, NewError("PollResponse", ErrCodeInvalidState, "driver not running")
	}
	res, ok := d.responseQ.Get(timeout)
	if !ok {
		return Response{}, NewError("PollResponse", ErrCodeTimeout, "no response available")
	}
	return *res, nil
}

// SendInquiry frames and transmits a raw inquiry. The typed Inquiry*
// methods are the usual entry points; SendInquiry is the escape hatch for
// commands the driver does not model.
func (d *Driver) SendInquiry(payload []byte, ctrl, cmd byte) error {
	if d.state != StateRunning {
		return NewError("SendInquiry", ErrCodeInvalidState, "driver not running")
	}
	if err := d.hal.SendFrame(payload, ctrl, cmd); err != nil {
		return WrapError("SendInquiry", err)
	}
	return nil
}

// decoderTask moves frames from the HAL to the semantic decoder. Each
// frame is copied and the HAL buffer released before decoding, so HAL
// memory is never held across a decode.
func (d *Driver) decoderTask(done chan<- struct{}) {
	defer close(done)
	for {
		f, err := d.hal.GetFrame(constants.DecoderQueueWait)
		if err != nil {
			if d.endFlag.Load() {
				return
			}
			time.Sleep(constants.DecoderQueueWait)
			continue
		}
		if len(f.Data) == 0 {
			d.hal.ReleaseFrame(f)
			continue
		}

		frame := make([]byte, len(f.Data))
		copy(frame, f.Data)
		d.hal.ReleaseFrame(f)

		d.decodeFrame(frame)
	}
}

// onReport queues a decoded report and fans it out to the subscriber.
func (d *Driver) onReport(rep Report) {
	cp := rep
	if d.reportQ.Send(&cp, constants.EventPostWait) {
		if d.observer != nil {
			d.observer.ObserveReport()
		}
	} else if d.logger != nil {
		d.logger.Printf("mmwave: report queue full, %s report dropped", rep.Kind)
	}

	d.cbMu.Lock()
	cb := d.reportCb
	d.cbMu.Unlock()
	if cb != nil {
		cb(rep)
	}
}

// onResponse queues a decoded response and fans it out to the subscriber.
func (d *Driver) onResponse(res Response) {
	if len(res.Data) > MaxResponseDataLen {
		return
	}
	cp := res
	if d.responseQ.Send(&cp, constants.EventPostWait) {
		if d.observer != nil {
			d.observer.ObserveResponse()
		}
	} else if d.logger != nil {
		d.logger.Printf("mmwave: response queue full, response type=%d dropped", res.Type)
	}

	d.cbMu.Lock()
	cb := d.responseCb
	d.cbMu.Unlock()
	if cb != nil {
		cb(res)
	}
}
