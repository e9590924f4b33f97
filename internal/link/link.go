// Package link defines the transport contract between the operation
// encoders and the physical device network. Implementations live in
// sub-packages.
package link

import (
	"time"

	"github.com/mfranke/soniclink/internal/driver"
)

// Link is a bidirectional channel to the device chain. Send and Receive
// return false for a non-fatal transient miss (a skipped bus cycle) and an
// error for a structural failure such as a closed link.
type Link interface {
	Open() error
	Close() error
	Send(tx *driver.TxDatagram) (bool, error)
	Receive(rx *driver.RxDatagram) (bool, error)
	CycleTicks() uint16
	IsOpen() bool
}

// ErrClosed-style checks stay with the implementations; the contract only
// fixes the cycle period base every implementation derives its cadence from.
const BaseCycleTime = 500 * time.Microsecond

// CyclePeriod converts a cycle tick count into the wall-clock period of one
// bus cycle.
func CyclePeriod(cycleTicks uint16) time.Duration {
	return BaseCycleTime * time.Duration(cycleTicks)
}
