package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-mmwave/internal/constants"
)

// testSink is an in-memory Sink with optional failure injection.
type testSink struct {
	frames     [][]byte
	inUse      int
	allocCap   int  // refuse allocations above this size (0 = no cap)
	refuseNext int  // refuse the next N allocations
	refuseSave bool // reject every SaveFrame
}

func (s *testSink) Alloc(size int) []byte {
	if s.refuseNext > 0 {
		s.refuseNext--
		return nil
	}
	if s.allocCap > 0 && size > s.allocCap {
		return nil
	}
	s.inUse += size
	return make([]byte, size)
}

func (s *testSink) Free(buf []byte) {
	s.inUse -= len(buf)
}

func (s *testSink) SaveFrame(frame []byte) bool {
	if s.refuseSave {
		s.Free(frame)
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func newTestCodec(t *testing.T, sink Sink) *Codec {
	t.Helper()
	c := New()
	c.Bind(sink)
	require.NoError(t, c.Init())
	return c
}

// encode builds the wire form of a frame.
func encode(ctrl, cmd byte, payload []byte) []byte {
	frame := []byte{0x53, 0x59, ctrl, cmd, byte(len(payload) >> 8), byte(len(payload))}
	frame = append(frame, payload...)
	var sum uint16
	for _, b := range frame {
		sum += uint16(b)
	}
	return append(frame, byte(sum&0xFF), 0x54, 0x43)
}

func TestInitRequiresSink(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Init(), ErrNotBound)
	assert.Equal(t, StatusNotBound, c.ParseData([]byte{0x53}))
}

func TestParseHeartbeatFrame(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	status := c.ParseData([]byte{0x53, 0x59, 0x01, 0x01, 0x00, 0x01, 0x0F, 0xBE, 0x54, 0x43})
	assert.Equal(t, StatusFrameOK, status)
	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0x01, 0x01, 0x0F}, sink.frames[0])
}

func TestParseTwoAdjacentFrames(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	data := append(encode(0x01, 0x01, []byte{0x0F}), encode(0x01, 0x02, []byte{0x01})...)
	status := c.ParseData(data)
	assert.Equal(t, StatusFrameOK, status)
	require.Len(t, sink.frames, 2)
	assert.Equal(t, []byte{0x01, 0x01, 0x0F}, sink.frames[0])
	assert.Equal(t, []byte{0x01, 0x02, 0x01}, sink.frames[1])
}

func TestParseJunkThenFrame(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	data := append([]byte{0xAA, 0xBB, 0xCC}, encode(0x01, 0x01, []byte{0x0F})...)
	status := c.ParseData(data)
	assert.Equal(t, StatusFrameOK, status)
	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0x01, 0x01, 0x0F}, sink.frames[0])
}

func TestParseJunkOnly(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	assert.Equal(t, StatusNoFrames, c.ParseData([]byte{0xAA, 0xBB, 0xCC, 0x54, 0x43}))
	assert.Empty(t, sink.frames)
}

func TestParseChecksumFailure(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	bad := encode(0x01, 0x01, []byte{0x0F})
	bad[len(bad)-3] = 0xFF
	status := c.ParseData(bad)
	assert.NotEqual(t, StatusFrameOK, status)
	assert.Empty(t, sink.frames)

	// Parser must be ready for the next header.
	assert.Equal(t, StatusFrameOK, c.ParseData(encode(0x01, 0x01, []byte{0x0F})))
	assert.Len(t, sink.frames, 1)
}

func TestParseFooterFailure(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	bad := encode(0x80, 0x01, []byte{0x01})
	bad[len(bad)-1] = 0x00
	c.ParseData(bad)
	assert.Empty(t, sink.frames)

	assert.Equal(t, StatusFrameOK, c.ParseData(encode(0x80, 0x01, []byte{0x01})))
	assert.Len(t, sink.frames, 1)
}

// A frame embedded after a corrupted frame's headers must still be found:
// only the two header bytes are dropped on failure and the rest is
// re-examined.
func TestParseRecoveryFindsEmbeddedFrame(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	good := encode(0x01, 0x01, []byte{0x0F})
	// 53 59 announce a 10-byte payload, but the bytes that follow are a
	// complete good frame and then filler; the announced frame's
	// checksum fails, the parser rewinds past the two header bytes and
	// finds the good frame.
	bad := []byte{0x53, 0x59, 0x01, 0x01, 0x00, 0x0A}
	bad = append(bad, good...)
	bad = append(bad, 0x00, 0x00, 0x00) // fake checksum + footer, all wrong

	status := c.ParseData(bad)
	assert.Equal(t, StatusFrameOK, status)
	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0x01, 0x01, 0x0F}, sink.frames[0])
}

func TestParseEmptyPayloadFrame(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	frame := encode(0x05, 0x0A, nil)
	require.Len(t, frame, 9)
	assert.Equal(t, StatusFrameOK, c.ParseData(frame))
	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0x05, 0x0A}, sink.frames[0])
}

// Feeding a stream byte-by-byte must decode the same frames as feeding it
// in one chunk, including across corrupted-frame recovery.
func TestParseByteAtATimeEquivalence(t *testing.T) {
	var stream []byte
	stream = append(stream, 0xAA, 0x53, 0x11) // junk incl. a lone header byte
	stream = append(stream, encode(0x01, 0x01, []byte{0x0F})...)
	corrupted := encode(0x80, 0x02, []byte{0x02})
	corrupted[7] = 0xEE // breaks the checksum
	stream = append(stream, corrupted...)
	stream = append(stream, encode(0x08, 0x01, []byte{0x2A, 0x03, 0x10, 0x04, 0x0C})...)
	stream = append(stream, encode(0x80, 0x0B, []byte{0x01})...)
	stream = append(stream, 0x53, 0x59, 0x01) // trailing partial frame

	chunkSink := &testSink{}
	chunkCodec := newTestCodec(t, chunkSink)
	chunkCodec.ParseData(stream)

	byteSink := &testSink{}
	byteCodec := newTestCodec(t, byteSink)
	for _, b := range stream {
		byteCodec.ParseData([]byte{b})
	}

	assert.Equal(t, chunkSink.frames, byteSink.frames)
	require.Len(t, chunkSink.frames, 3)
}

func TestParseUnfinishedFrameRetained(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	full := encode(0x01, 0x01, []byte{0x0F})
	assert.Equal(t, StatusUnfinishedFrame, c.ParseData(full[:4]))
	assert.Equal(t, StatusFrameOK, c.ParseData(full[4:]))
	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0x01, 0x01, 0x0F}, sink.frames[0])
}

func TestBuildParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		ctrl    byte
		cmd     byte
		payload []byte
	}{
		{"heartbeat", 0x01, 0x01, []byte{0x0F}},
		{"empty payload", 0x05, 0x0A, nil},
		{"uof report", 0x08, 0x01, []byte{0x2A, 0x03, 0x10, 0x04, 0x0C}},
		{"long payload", 0x02, 0xA4, make([]byte, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &testSink{}
			c := newTestCodec(t, sink)

			wire, ok := c.BuildFrame(tt.payload, tt.ctrl, tt.cmd)
			require.True(t, ok)
			assert.Len(t, wire, len(tt.payload)+9)

			assert.Equal(t, StatusFrameOK, c.ParseData(wire))
			require.Len(t, sink.frames, 1)
			want := append([]byte{tt.ctrl, tt.cmd}, tt.payload...)
			assert.Equal(t, want, sink.frames[0])
		})
	}
}

func TestBuildFrameMatchesKnownBytes(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	wire, ok := c.BuildFrame([]byte{0x0F}, 0x01, 0x01)
	require.True(t, ok)
	assert.Equal(t, []byte{0x53, 0x59, 0x01, 0x01, 0x00, 0x01, 0x0F, 0xBE, 0x54, 0x43}, wire)
}

// Flipping any single bit of a well-formed frame must never yield a frame
// with the same semantic content.
func TestParseBitFlipNeverSilentlyCorrupts(t *testing.T) {
	payload := []byte{0x2A, 0x03, 0x10, 0x04, 0x0C}
	good := encode(0x08, 0x01, payload)
	want := append([]byte{0x08, 0x01}, payload...)

	for i := 0; i < len(good)*8; i++ {
		flipped := make([]byte, len(good))
		copy(flipped, good)
		flipped[i/8] ^= 1 << (i % 8)

		sink := &testSink{}
		c := newTestCodec(t, sink)
		c.ParseData(flipped)
		for _, f := range sink.frames {
			assert.NotEqual(t, want, f, "bit %d flip decoded to the original frame", i)
		}
	}
}

func TestParseQueueFull(t *testing.T) {
	sink := &testSink{refuseSave: true}
	c := newTestCodec(t, sink)

	status := c.ParseData(encode(0x01, 0x01, []byte{0x0F}))
	assert.Equal(t, StatusQueueFull, status)
	assert.Empty(t, sink.frames)
	// The rejected frame buffer must have been freed; only the parser
	// buffer remains accounted.
	assert.Equal(t, constants.StartingParserBufferSize, sink.inUse)
}

func TestParseOversizedPayloadReportsMemoryFault(t *testing.T) {
	sink := &testSink{allocCap: 2048}
	c := newTestCodec(t, sink)

	big := encode(0x02, 0xA1, make([]byte, 4000))
	status := c.ParseData(big)
	assert.Equal(t, StatusMemoryFault, status)
	assert.Empty(t, sink.frames)

	// The stream continues: the next frame still parses.
	assert.Equal(t, StatusFrameOK, c.ParseData(encode(0x01, 0x01, []byte{0x0F})))
	assert.Len(t, sink.frames, 1)
}

func TestParseAnnouncedLengthAtParserCap(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	// A 0xFFFF announcement grows the buffer to exactly
	// MaxParserBufferSize; the parser must accept it and wait for the
	// rest of the frame.
	header := []byte{0x53, 0x59, 0x02, 0xA1, 0xFF, 0xFF}
	status := c.ParseData(header)
	assert.Equal(t, StatusUnfinishedFrame, status)
}

func TestAdaptiveBufferGrowsAndShrinks(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	// A 100-byte payload forces a grow past the 20-byte start size.
	c.ParseData(encode(0x02, 0xA4, make([]byte, 100)))
	require.Len(t, sink.frames, 1)

	// One big frame, then a small one: the buffer shrinks back, so the
	// only accounted memory is the starting-size parser buffer plus the
	// undelivered frames the sink retains.
	c.ParseData(encode(0x01, 0x01, []byte{0x0F}))
	var retained int
	for _, f := range sink.frames {
		retained += len(f)
	}
	assert.Equal(t, constants.StartingParserBufferSize+retained, sink.inUse)
}

func TestBigFrameHysteresisKeepsBuffer(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	big := encode(0x02, 0xA4, make([]byte, 200))
	for i := 0; i < constants.BigFrameShrinkThreshold; i++ {
		assert.Equal(t, StatusFrameOK, c.ParseData(big))
	}
	// After three consecutive big frames the buffer stays grown.
	assert.GreaterOrEqual(t, len(c.buf), 209)

	// A small frame resets the streak and the buffer shrinks again.
	assert.Equal(t, StatusFrameOK, c.ParseData(encode(0x01, 0x01, []byte{0x0F})))
	assert.Equal(t, constants.StartingParserBufferSize, len(c.buf))
}

func TestStopReleasesBuffers(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	c.ParseData(encode(0x01, 0x01, []byte{0x0F}))
	for _, f := range sink.frames {
		sink.Free(f)
	}
	c.Stop()
	assert.Zero(t, sink.inUse)
}

func TestBuildFrameAllocationRefused(t *testing.T) {
	sink := &testSink{}
	c := newTestCodec(t, sink)

	sink.refuseNext = 1
	_, ok := c.BuildFrame([]byte{0x0F}, 0x01, 0x01)
	assert.False(t, ok)
}
