package mmwave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var heartbeatWire = []byte{0x53, 0x59, 0x01, 0x01, 0x00, 0x01, 0x0F, 0xBE, 0x54, 0x43}

func newRunningDriver(t *testing.T) (*Driver, *MockPort) {
	t.Helper()
	mock := NewMockPort()
	cfg := DefaultConfig("")
	cfg.Port = mock
	cfg.RxThreshold = 1
	d := New(cfg, nil)
	require.NoError(t, d.Init())
	require.NoError(t, d.Start())
	t.Cleanup(func() {
		if d.State() == StateRunning {
			d.Stop()
		}
		if d.State() == StateStopped || d.State() == StateInit {
			d.Deinit()
		}
	})
	return d, mock
}

func TestLifecycleTransitions(t *testing.T) {
	mock := NewMockPort()
	cfg := DefaultConfig("")
	cfg.Port = mock
	d := New(cfg, nil)

	assert.Equal(t, StateUninit, d.State())
	assert.True(t, IsCode(d.Start(), ErrCodeInvalidState))
	assert.True(t, IsCode(d.Stop(), ErrCodeInvalidState))

	require.NoError(t, d.Init())
	assert.Equal(t, StateInit, d.State())
	assert.True(t, IsCode(d.Init(), ErrCodeInvalidState))

	require.NoError(t, d.Start())
	assert.Equal(t, StateRunning, d.State())
	assert.True(t, IsCode(d.Deinit(), ErrCodeInvalidState))

	require.NoError(t, d.Stop())
	assert.Equal(t, StateStopped, d.State())

	// Stopped -> Running -> Stopped again, then the full teardown.
	require.NoError(t, d.Start())
	require.NoError(t, d.Stop())
	require.NoError(t, d.Deinit())
	assert.Equal(t, StateUninit, d.State())
}

func TestInitRequiresDeviceOrPort(t *testing.T) {
	d := New(Config{}, nil)
	assert.True(t, IsCode(d.Init(), ErrCodeBadArgument))
}

func TestHeartbeatRoundTrip(t *testing.T) {
	d, mock := newRunningDriver(t)

	require.NoError(t, d.InquiryHeartbeat())
	require.Eventually(t, func() bool {
		return len(mock.Written()) == len(heartbeatWire)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, heartbeatWire, mock.Written())

	// The module answers; the driver surfaces one heartbeat response.
	mock.Inject(heartbeatWire)
	res, err := d.PollResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ResponseHeartbeat, res.Type)
	assert.Equal(t, []byte{0x0F}, res.Data)
}

func TestTwoAdjacentFrames(t *testing.T) {
	d, mock := newRunningDriver(t)

	mock.Inject(append(append([]byte{}, heartbeatWire...),
		0x53, 0x59, 0x01, 0x02, 0x00, 0x01, 0x01, 0xB1, 0x54, 0x43))

	res, err := d.PollResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ResponseHeartbeat, res.Type)

	res, err = d.PollResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ResponseModuleReset, res.Type)
}

func TestChecksumFailureYieldsNothing(t *testing.T) {
	d, mock := newRunningDriver(t)

	bad := append([]byte{}, heartbeatWire...)
	bad[7] = 0xFF
	mock.Inject(bad)

	_, err := d.PollResponse(100 * time.Millisecond)
	assert.True(t, IsCode(err, ErrCodeTimeout))

	// The parser recovered and the next frame decodes.
	mock.Inject(heartbeatWire)
	res, err := d.PollResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ResponseHeartbeat, res.Type)
}

func TestJunkThenFrame(t *testing.T) {
	d, mock := newRunningDriver(t)

	mock.Inject(append([]byte{0xAA, 0xBB, 0xCC}, heartbeatWire...))
	res, err := d.PollResponse(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ResponseHeartbeat, res.Type)

	_, err = d.PollResponse(50 * time.Millisecond)
	assert.True(t, IsCode(err, ErrCodeTimeout))
}

func TestUofReportDecode(t *testing.T) {
	d, mock := newRunningDriver(t)

	mock.InjectFrame(0x08, 0x01, []byte{0x2A, 0x03, 0x10, 0x04, 0x0C})

	rep, err := d.PollReport(time.Second)
	require.NoError(t, err)
	require.Equal(t, ReportUof, rep.Kind)
	assert.Equal(t, uint8(42), rep.Uof.ExistenceEnergy)
	assert.Equal(t, float32(1.5), rep.Uof.StaticDistance)
	assert.Equal(t, uint8(16), rep.Uof.MotionEnergy)
	assert.Equal(t, float32(2.0), rep.Uof.MotionDistance)
	assert.Equal(t, float32(1.0), rep.Uof.MotionSpeed)
}

func TestPresenceReportDelivery(t *testing.T) {
	d, mock := newRunningDriver(t)

	mock.InjectFrame(0x80, 0x01, []byte{0x01})
	rep, err := d.PollReport(time.Second)
	require.NoError(t, err)
	assert.Equal(t, ReportPresence, rep.Kind)
	assert.Equal(t, Occupied, rep.Presence)

	mock.InjectFrame(0x80, 0x01, []byte{0x00})
	rep, err = d.PollReport(time.Second)
	require.NoError(t, err)
	assert.Equal(t, Unoccupied, rep.Presence)
}

func TestEventCallbacksFanOut(t *testing.T) {
	d, mock := newRunningDriver(t)

	reports := make(chan Report, 4)
	responses := make(chan Response, 4)
	d.RegisterEventCallbacks(
		func(res Response) { responses <- res },
		func(rep Report) { reports <- rep },
	)

	mock.InjectFrame(0x80, 0x02, []byte{0x02})
	select {
	case rep := <-reports:
		assert.Equal(t, ReportMotion, rep.Kind)
		assert.Equal(t, MotionActive, rep.Motion)
	case <-time.After(time.Second):
		t.Fatal("report callback not invoked")
	}

	mock.Inject(heartbeatWire)
	select {
	case res := <-responses:
		assert.Equal(t, ResponseHeartbeat, res.Type)
	case <-time.After(time.Second):
		t.Fatal("response callback not invoked")
	}

	// The queues receive the events too.
	_, err := d.PollReport(time.Second)
	assert.NoError(t, err)
	_, err = d.PollResponse(time.Second)
	assert.NoError(t, err)
}

func TestModeGateBlocksWithoutWrite(t *testing.T) {
	d, mock := newRunningDriver(t)

	require.Equal(t, ModeStandard, d.Mode())
	err := d.InquiryExistenceEnergy()
	assert.True(t, IsCode(err, ErrCodeBadMode))
	assert.Empty(t, mock.Written())

	// Standard-mode inquiries are blocked the other way around.
	require.NoError(t, d.SetMode(ModeUnderlyingOpen))
	err = d.InquiryPresence()
	assert.True(t, IsCode(err, ErrCodeBadMode))
	assert.Empty(t, mock.Written())
}

func TestOutputSwitchFlipsMode(t *testing.T) {
	d, _ := newRunningDriver(t)

	require.NoError(t, d.InquiryUofOutputSwitchSet(OutputOn))
	assert.Equal(t, ModeUnderlyingOpen, d.Mode())

	// UOF inquiries now pass the gate.
	assert.NoError(t, d.InquiryExistenceEnergy())
	assert.NoError(t, d.InquiryCustomModeSet(CustomMode2))

	require.NoError(t, d.InquiryUofOutputSwitchSet(OutputOff))
	assert.Equal(t, ModeStandard, d.Mode())
	assert.NoError(t, d.InquiryPresence())
}

func TestSetModeRequiresRunning(t *testing.T) {
	mock := NewMockPort()
	cfg := DefaultConfig("")
	cfg.Port = mock
	d := New(cfg, nil)
	require.NoError(t, d.Init())
	defer d.Deinit()

	assert.True(t, IsCode(d.SetMode(ModeUnderlyingOpen), ErrCodeInvalidState))
}

func TestInquiryArgumentValidation(t *testing.T) {
	d, mock := newRunningDriver(t)
	require.NoError(t, d.SetMode(ModeUnderlyingOpen))

	tests := []struct {
		name string
		call func() error
	}{
		{"scene out of range", func() error { return d.InquirySceneSet(SceneMode(0x05)) }},
		{"sensitivity zero", func() error { return d.InquirySensitivitySet(SensitivityNotSet) }},
		{"custom mode zero", func() error { return d.InquiryCustomModeSet(CustomMode(0)) }},
		{"existence thresh high", func() error { return d.InquiryExistenceThreshSet(251) }},
		{"motion thresh negative", func() error { return d.InquiryMotionThreshSet(-1) }},
		{"existence bound high", func() error { return d.InquiryExistenceBoundSet(ExistencePerceptionBound(0x0B)) }},
		{"motion bound zero", func() error { return d.InquiryMotionBoundSet(MotionTriggerBound(0)) }},
		{"trigger time high", func() error { return d.InquiryMotionTriggerTimeSet(1001) }},
		{"still time low", func() error { return d.InquiryMotionToStillTimeSet(999) }},
		{"still time high", func() error { return d.InquiryMotionToStillTimeSet(60001) }},
		{"no person time high", func() error { return d.InquiryCmTimeForNoPersonSet(3600001) }},
		{"switch out of range", func() error { return d.InquiryUofOutputSwitchSet(OutputSwitch(2)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, IsCode(err, ErrCodeBadArgument), "got %v", err)
		})
	}
	assert.Empty(t, mock.Written())
}

func TestCmTimeInquiryPayloadIsBigEndian(t *testing.T) {
	d, mock := newRunningDriver(t)
	require.NoError(t, d.SetMode(ModeUnderlyingOpen))

	require.NoError(t, d.InquiryCmTimeForNoPersonSet(3600000))
	require.Eventually(t, func() bool {
		return len(mock.Written()) == 13
	}, time.Second, 5*time.Millisecond)

	wire := mock.Written()
	// 3600000 ms = 0x0036EE80, big-endian in the four payload bytes.
	assert.Equal(t, []byte{0x00, 0x36, 0xEE, 0x80}, wire[6:10])
	assert.Equal(t, byte(0x08), wire[2])
	assert.Equal(t, byte(0x0E), wire[3])
}

func TestPollTimeout(t *testing.T) {
	d, _ := newRunningDriver(t)

	_, err := d.PollReport(20 * time.Millisecond)
	assert.True(t, IsCode(err, ErrCodeTimeout))
	_, err = d.PollResponse(20 * time.Millisecond)
	assert.True(t, IsCode(err, ErrCodeTimeout))
}

func TestMetricsCountTraffic(t *testing.T) {
	d, mock := newRunningDriver(t)

	require.NoError(t, d.InquiryHeartbeat())
	mock.Inject(heartbeatWire)
	_, err := d.PollResponse(time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := d.Metrics().Snapshot()
		return snap.FramesParsed == 1 && snap.TxFrames == 1 && snap.Responses == 1
	}, time.Second, 5*time.Millisecond)

	snap := d.Metrics().Snapshot()
	assert.Equal(t, uint64(10), snap.RxBytes)
	assert.Equal(t, uint64(10), snap.TxBytes)
}
