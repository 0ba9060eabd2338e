package mmwave

import (
	"github.com/behrlich/go-mmwave/internal/platform"
	"github.com/behrlich/go-mmwave/internal/proto"
)

// MockPort is an in-memory Port for testing applications against the
// driver without hardware. Bytes pushed with Inject appear on the
// driver's RX path as if the module had sent them; everything the driver
// transmits accumulates for inspection via Written.
type MockPort struct {
	*platform.MemPort
}

// NewMockPort creates an open MockPort.
func NewMockPort() *MockPort {
	return &MockPort{MemPort: platform.NewMemPort()}
}

// InjectFrame frames (ctrl, cmd, payload) and injects the full wire form,
// as if the module had transmitted a well-formed frame.
func (m *MockPort) InjectFrame(ctrl, cmd byte, payload []byte) {
	m.Inject(EncodeFrame(ctrl, cmd, payload))
}

// EncodeFrame builds the wire form of a frame: header, ctrl, cmd,
// big-endian payload length, payload, checksum and footer. It is the
// reference encoding used by tests and by module simulators.
func EncodeFrame(ctrl, cmd byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+proto.FrameOverhead)
	frame = append(frame, proto.Header1, proto.Header2, ctrl, cmd,
		byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	var sum uint16
	for _, b := range frame {
		sum += uint16(b)
	}
	frame = append(frame, byte(sum&0xFF), proto.Footer1, proto.Footer2)
	return frame
}
