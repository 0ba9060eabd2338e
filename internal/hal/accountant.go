package hal

import (
	"github.com/behrlich/go-mmwave/internal/constants"
	"github.com/behrlich/go-mmwave/internal/platform"
)

// Accountant is the bounded allocator wrapper for frame and parser
// buffers. It enforces a per-allocation cap and a total cap, keeping its
// counter under a mutex with a bounded acquire.
type Accountant struct {
	mu      *platform.TimedMutex
	current int
	peak    int
}

// NewAccountant creates an accountant with nothing outstanding.
func NewAccountant() *Accountant {
	return &Accountant{mu: platform.NewTimedMutex()}
}

// Alloc grants a buffer of exactly size bytes, or nil when the size
// exceeds the single-allocation cap, the total cap would be exceeded, or
// the mutex could not be acquired in time.
func (a *Accountant) Alloc(size int) []byte {
	if size <= 0 || size > constants.MaxSingleAlloc {
		return nil
	}
	if !a.mu.LockTimeout(constants.AccountantLockWait) {
		return nil
	}
	defer a.mu.Unlock()
	if a.current+size > constants.MaxTotalAlloc {
		return nil
	}
	a.current += size
	if a.current > a.peak {
		a.peak = a.current
	}
	return make([]byte, size)
}

// Free returns buf to the accountant. The counter saturates at zero so a
// stray free can never wrap it.
func (a *Accountant) Free(buf []byte) {
	if buf == nil {
		return
	}
	size := len(buf)
	if !a.mu.LockTimeout(constants.AccountantLockWait) {
		return
	}
	defer a.mu.Unlock()
	if a.current < size {
		a.current = 0
	} else {
		a.current -= size
	}
}

// InUse returns the currently accounted byte total.
func (a *Accountant) InUse() int {
	if !a.mu.LockTimeout(constants.AccountantLockWait) {
		return a.current
	}
	defer a.mu.Unlock()
	return a.current
}

// Peak returns the high-water mark of accounted bytes.
func (a *Accountant) Peak() int {
	if !a.mu.LockTimeout(constants.AccountantLockWait) {
		return a.peak
	}
	defer a.mu.Unlock()
	return a.peak
}
