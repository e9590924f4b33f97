package soem

import "time"

// SlaveState mirrors the fieldbus application-layer state machine. The
// error/ack bit shares a position by design: writing it acknowledges the
// error it reports.
type SlaveState uint8

const (
	StateNone        SlaveState = 0x00
	StateInit        SlaveState = 0x01
	StatePreOp       SlaveState = 0x02
	StateSafeOp      SlaveState = 0x04
	StateOperational SlaveState = 0x08
	StateError       SlaveState = 0x10
	StateAck         SlaveState = StateError
)

func (s SlaveState) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateInit:
		return "INIT"
	case StatePreOp:
		return "PRE_OP"
	case StateSafeOp:
		return "SAFE_OP"
	case StateOperational:
		return "OPERATIONAL"
	case StateSafeOp + StateError:
		return "SAFE_OP+ERROR"
	}
	if s&StateError != 0 {
		return (s &^ StateError).String() + "+ERROR"
	}
	return "UNKNOWN"
}

// Bus is the raw fieldbus master underneath the cyclic link. Slave index 0
// addresses the whole segment; individual slaves are 1..SlaveCount. A Bus
// instance owns all master-side network state; the link never touches
// process-wide globals.
type Bus interface {
	// Init binds the master to a network interface.
	Init(ifname string) error
	// Close releases the interface.
	Close()

	// ConfigMap enumerates the segment, maps process data into iomap and
	// returns the number of slaves found.
	ConfigMap(iomap []byte) (int, error)
	// ConfigDC configures distributed clocks across the segment.
	ConfigDC() error

	SlaveCount() int

	// State returns the last known state of a slave (0 = segment).
	State(slave int) SlaveState
	// SetState stages a requested state; WriteState transmits it.
	SetState(slave int, state SlaveState)
	WriteState(slave int)
	// StateCheck polls until the slave reaches the wanted state or the
	// timeout expires, returning the state actually reached.
	StateCheck(slave int, want SlaveState, timeout time.Duration) SlaveState
	// ReadState refreshes the cached states of all slaves.
	ReadState()

	// Reconfig re-runs slave configuration; reports success.
	Reconfig(slave int, timeout time.Duration) bool
	// Recover re-attaches a slave that dropped off the network; reports
	// success.
	Recover(slave int, timeout time.Duration) bool

	IsLost(slave int) bool
	SetLost(slave int, lost bool)

	// DCSync0 enables or disables the distributed-clock sync0 pulse on one
	// slave.
	DCSync0(slave int, activate bool, cycleTime time.Duration)

	// SendProcessData transmits the output half of the io map.
	SendProcessData()
	// ReceiveProcessData collects the input half and returns the working
	// counter of the exchange.
	ReceiveProcessData(timeout time.Duration) int
	// ExpectedWKC returns the segment-wide acknowledgment count of a fully
	// healthy exchange (2*outputs + inputs).
	ExpectedWKC() int
}
