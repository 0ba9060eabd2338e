// Package interfaces provides internal interface definitions for go-mmwave.
// These are separate from the public interfaces to avoid circular imports
// between the main package and internal packages.
package interfaces

// Logger interface for optional logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer interface for metrics collection.
// Implementations must be thread-safe as methods are called from the
// RX, TX and decoder loops.
type Observer interface {
	ObserveRxBytes(n int)
	ObserveTxFrame(n int)
	ObserveFrameParsed(n int)
	ObserveFrameDropped(reason string)
	ObserveQueueDrop()
	ObserveAllocRefused()
	ObserveReport()
	ObserveResponse()
}

// Drop reasons passed to ObserveFrameDropped.
const (
	DropChecksum = "checksum"
	DropFooter   = "footer"
	DropLength   = "length"
	DropMemory   = "memory"
	DropQueue    = "queue"
)
