package constants

import "time"

// Memory accounting limits for frame and parser buffers
const (
	// MaxSingleAlloc is the largest single allocation the accountant grants (2KB)
	MaxSingleAlloc = 2048

	// MaxTotalAlloc caps the total accounted heap memory (32KB)
	MaxTotalAlloc = 32 * 1024
)

// Parser buffer sizing
const (
	// StartingParserBufferSize is the adaptive buffer's initial capacity.
	// Covers frames with payloads up to 11 bytes without a regrow.
	StartingParserBufferSize = 20

	// MaxParserBufferSize bounds the adaptive buffer: a maximal 65535-byte
	// payload plus the 9 bytes of frame overhead.
	MaxParserBufferSize = 65535 + 9

	// BigFrameShrinkThreshold is the number of consecutive capacity-filling
	// frames after which the parser stops shrinking its buffer on reset.
	// Burst streams of equal-sized large frames would thrash the heap otherwise.
	BigFrameShrinkThreshold = 3
)

// Queue sizing
const (
	// MaxFramesInQueue is the depth of the HAL frame and TX queues
	MaxFramesInQueue = 20

	// EventQueueLen is the default depth of the UART event queue
	EventQueueLen = 20

	// AppEventQueueLen is the depth of the report and response queues
	AppEventQueueLen = 20
)

// Timing bounds for the worker loops
//
// These bounds keep every blocking wait finite so the shutdown handshake
// can make progress: each worker re-checks the dispatcher-ended condition
// after at most one timeout period.
const (
	// RxEventWait is the RX task's bounded wait on the UART event queue
	RxEventWait = 200 * time.Millisecond

	// TxQueueWait is the TX task's bounded wait on the TX queue
	TxQueueWait = 20 * time.Millisecond

	// DecoderQueueWait is the decoder task's bounded wait on the frame queue
	DecoderQueueWait = 20 * time.Millisecond

	// FrameQueuePostWait bounds the save-frame post into the frame queue
	FrameQueuePostWait = 10 * time.Millisecond

	// TxQueuePostWait bounds the send-frame post into the TX queue
	TxQueuePostWait = 20 * time.Millisecond

	// EventPostWait bounds the app-event post into the report/response queues
	EventPostWait = 10 * time.Millisecond

	// AccountantLockWait bounds the memory accountant's mutex acquire
	AccountantLockWait = 20 * time.Millisecond

	// UartReadWait bounds a buffered UART read
	UartReadWait = 20 * time.Millisecond
)

// UART defaults
const (
	// DefaultBaudRate matches the module's factory setting
	DefaultBaudRate = 115200

	// DefaultRxThreshold is the byte count that triggers an RX event
	DefaultRxThreshold = 10

	// DefaultRxBufSize is the RX ring capacity
	DefaultRxBufSize = 1024

	// DefaultTxBufSize is the TX staging capacity
	DefaultTxBufSize = 1024

	// RxChunkSize is the scratch read size of the RX task
	RxChunkSize = 512
)
