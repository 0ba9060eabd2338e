// Package codec implements the streaming frame parser and builder for the
// radar module's framed binary protocol:
//
//	H1 H2 | CTRL | CMD | LEN_HI LEN_LO | PAYLOAD[LEN] | CHECKSUM | F1 F2
//
// The parser is a bytewise state machine over an adaptive buffer. It owns
// no memory policy of its own: every buffer comes from the bound Sink, and
// every completed frame is handed to the Sink, which owns it thereafter.
//
// The codec is not safe for concurrent use. The HAL's RX task is its only
// caller.
package codec

import (
	"errors"

	"github.com/behrlich/go-mmwave/internal/constants"
	"github.com/behrlich/go-mmwave/internal/proto"
)

// Sink supplies memory to the codec and receives completed frames. The
// HAL implements it; the codec must not retain a frame after SaveFrame
// returns.
type Sink interface {
	// SaveFrame takes ownership of a completed semantic frame
	// ([ctrl, cmd, payload...]). Returns false if the frame could not
	// be accepted; the sink has then already released the buffer.
	SaveFrame(frame []byte) bool
	// Alloc returns a buffer of exactly size bytes, or nil when refused.
	Alloc(size int) []byte
	// Free returns a buffer obtained from Alloc.
	Free(buf []byte)
}

// ParseStatus summarises one ParseData call.
type ParseStatus int

const (
	// StatusNoFrames means every byte was discarded.
	StatusNoFrames ParseStatus = iota
	// StatusFrameOK means at least one complete frame was delivered.
	StatusFrameOK
	// StatusUnfinishedFrame means a frame prefix is retained in the
	// building buffer.
	StatusUnfinishedFrame
	// StatusQueueFull means a valid frame was rejected by the sink.
	StatusQueueFull
	// StatusMemoryFault means an allocation was refused and a frame dropped.
	StatusMemoryFault
	// StatusNotBound means ParseData was called before Bind.
	StatusNotBound
)

func (s ParseStatus) String() string {
	switch s {
	case StatusNoFrames:
		return "no frames"
	case StatusFrameOK:
		return "frame ok"
	case StatusUnfinishedFrame:
		return "unfinished frame"
	case StatusQueueFull:
		return "queue full"
	case StatusMemoryFault:
		return "memory fault"
	case StatusNotBound:
		return "not bound"
	}
	return "unknown"
}

var (
	// ErrNotBound is returned by Init before Bind was called.
	ErrNotBound = errors.New("codec: no sink bound")
	// ErrMemory is returned when the sink refuses the initial buffer.
	ErrMemory = errors.New("codec: allocation refused")
)

// Codec holds the parser state machine and the frame builder.
type Codec struct {
	sink Sink

	buf        []byte // adaptive building buffer, sink-owned memory
	built      int    // bytes of the current frame assembled so far
	head1      bool
	head2      bool
	payloadLen int

	// bigFrames counts consecutive frames that filled the buffer.
	// While it is below the shrink threshold the buffer is reset to its
	// starting size after every frame; at or above it the buffer keeps
	// its grown capacity so bursts of equal-sized large frames do not
	// thrash the heap.
	bigFrames int
}

// New creates an unbound codec.
func New() *Codec {
	return &Codec{}
}

// Bind attaches the sink. Must be called once before Init.
func (c *Codec) Bind(s Sink) {
	c.sink = s
}

// Unbind detaches the sink. The codec must be stopped first.
func (c *Codec) Unbind() {
	c.sink = nil
}

// Init allocates the starting parser buffer.
func (c *Codec) Init() error {
	if c.sink == nil {
		return ErrNotBound
	}
	c.restart()
	if c.buf == nil {
		return ErrMemory
	}
	return nil
}

// Stop releases every internal buffer and resets the parser state.
func (c *Codec) Stop() {
	if c.sink != nil && c.buf != nil {
		c.sink.Free(c.buf)
	}
	c.buf = nil
	c.built = 0
	c.head1 = false
	c.head2 = false
	c.payloadLen = 0
	c.bigFrames = 0
}

type parsePass struct {
	status   ParseStatus
	finished int
}

// ParseData feeds data through the parser. Bytes that fail to form a frame
// are dropped; a trailing frame prefix is retained for the next call.
func (c *Codec) ParseData(data []byte) ParseStatus {
	if c.sink == nil {
		return StatusNotBound
	}

	pass := parsePass{status: StatusNoFrames}

	// A failed footer or checksum drops only the two header bytes; the
	// remaining retained bytes are re-examined as fresh input. step
	// returns that replay slice, which is prepended to the work queue so
	// re-scanning behaves identically whether the frame arrived in one
	// chunk or byte by byte.
	queue := data
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if replay := c.step(b, &pass); len(replay) > 0 {
			merged := make([]byte, 0, len(replay)+len(queue))
			merged = append(merged, replay...)
			merged = append(merged, queue...)
			queue = merged
		}
	}

	if pass.status == StatusUnfinishedFrame && !c.head1 {
		pass.status = StatusNoFrames
	}
	return pass.status
}

// step advances the state machine by one byte. A non-nil return is a
// slice of bytes to re-examine from scratch.
func (c *Codec) step(b byte, pass *parsePass) []byte {
	if c.buf == nil {
		// A previous reset could not reallocate; retry before parsing.
		c.restart()
		if c.buf == nil {
			pass.status = StatusMemoryFault
			return nil
		}
	}

	if !c.head1 {
		if b != proto.Header1 {
			return nil
		}
		if pass.finished == 0 {
			pass.status = StatusUnfinishedFrame
		}
		c.buf[0] = b
		c.head1 = true
		c.built = 1
		return nil
	}

	if !c.head2 {
		if b == proto.Header2 {
			c.buf[1] = b
			c.head2 = true
			c.built = 2
			return nil
		}
		// The first header byte was junk; the current byte may itself
		// start a frame.
		c.restart()
		return []byte{b}
	}

	c.buf[c.built] = b
	c.built++

	if c.built < 6 {
		return nil
	}

	if c.built == 6 {
		c.payloadLen = int(c.buf[4])<<8 | int(c.buf[5])
		total := c.payloadLen + proto.FrameOverhead
		if total >= len(c.buf) {
			c.bigFrames++
		} else {
			c.bigFrames = 0
		}
		if total > len(c.buf) {
			if !c.extend(total) {
				// Oversized announcement or allocation refused:
				// drop this frame, keep scanning for the next.
				c.restart()
				pass.status = StatusMemoryFault
			}
		}
		return nil
	}

	if c.built == 6+c.payloadLen+3 {
		return c.finishFrame(pass)
	}
	return nil
}

// finishFrame validates the assembled frame and hands it to the sink.
func (c *Codec) finishFrame(pass *parsePass) []byte {
	end := 6 + c.payloadLen
	if c.buf[end+1] != proto.Footer1 || c.buf[end+2] != proto.Footer2 {
		return c.failFrame()
	}

	var sum uint16
	for _, v := range c.buf[:end] {
		sum += uint16(v)
	}
	if c.buf[end] != byte(sum&0xFF) {
		return c.failFrame()
	}

	frame := c.sink.Alloc(2 + c.payloadLen)
	if frame == nil {
		pass.status = StatusMemoryFault
		c.restart()
		return nil
	}
	frame[0] = c.buf[2]
	frame[1] = c.buf[3]
	copy(frame[2:], c.buf[6:end])

	if c.sink.SaveFrame(frame) {
		pass.status = StatusFrameOK
		pass.finished++
	} else {
		pass.status = StatusQueueFull
	}
	c.restart()
	return nil
}

// failFrame handles a bad footer or checksum: the two header bytes are
// dropped and everything after them is replayed as fresh input.
func (c *Codec) failFrame() []byte {
	replay := make([]byte, c.built-2)
	copy(replay, c.buf[2:c.built])
	c.restart()
	return replay
}

// extend grows the building buffer to size, preserving the assembled bytes.
func (c *Codec) extend(size int) bool {
	if size > constants.MaxParserBufferSize {
		return false
	}
	grown := c.sink.Alloc(size)
	if grown == nil {
		return false
	}
	copy(grown, c.buf[:c.built])
	c.sink.Free(c.buf)
	c.buf = grown
	return true
}

// restart clears the in-progress frame. The buffer shrinks back to its
// starting size unless the big-frame hysteresis is holding it open.
func (c *Codec) restart() {
	c.head1 = false
	c.head2 = false
	c.built = 0
	c.payloadLen = 0

	if c.bigFrames < constants.BigFrameShrinkThreshold || c.buf == nil {
		if c.buf != nil {
			c.sink.Free(c.buf)
		}
		c.buf = c.sink.Alloc(constants.StartingParserBufferSize)
	}
}

// BuildFrame frames payload with the given control and command words. The
// returned buffer is sink-owned memory of length len(payload)+9; the
// caller takes ownership. Returns false when allocation is refused or no
// sink is bound.
func (c *Codec) BuildFrame(payload []byte, ctrl, cmd byte) ([]byte, bool) {
	if c.sink == nil {
		return nil, false
	}
	frame := c.sink.Alloc(len(payload) + proto.FrameOverhead)
	if frame == nil {
		return nil, false
	}
	frame[0] = proto.Header1
	frame[1] = proto.Header2
	frame[2] = ctrl
	frame[3] = cmd
	n := uint16(len(payload))
	frame[4] = byte(n >> 8)
	frame[5] = byte(n)
	copy(frame[6:], payload)

	var sum uint16
	for _, v := range frame[:6+len(payload)] {
		sum += uint16(v)
	}
	frame[6+len(payload)] = byte(sum & 0xFF)
	frame[7+len(payload)] = proto.Footer1
	frame[8+len(payload)] = proto.Footer2
	return frame, true
}
