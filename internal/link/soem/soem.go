// Package soem implements the real-time cyclic transport: a periodic
// callback drives one process-data exchange per bus cycle, validates the
// working counter and walks a per-slave recovery state machine on mismatch.
package soem

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mfranke/soniclink/internal/driver"
	"github.com/mfranke/soniclink/internal/link"
	"github.com/mfranke/soniclink/internal/timer"
)

const (
	outputFrameSize = driver.HeaderSize + driver.BodySize
	inputFrameSize  = driver.InputFrameSize

	retTimeout    = 2 * time.Millisecond
	stateTimeout  = 2 * time.Second
	slaveTimeout  = 500 * time.Millisecond
	opPollTimeout = 50 * time.Millisecond
	opPollRetries = 200
)

// ErrLinkClosed is returned by Send/Receive after Close or before Open.
var ErrLinkClosed = errors.New("link is closed")

// NotRespondingError reports a segment that never reached OPERATIONAL within
// the retry budget.
type NotRespondingError struct{}

func (NotRespondingError) Error() string {
	return "one or more slaves are not responding"
}

// SlaveCountError reports an enumeration that found a different number of
// slaves than configured.
type SlaveCountError struct {
	Found, Want int
}

func (e SlaveCountError) Error() string {
	return fmt.Sprintf("found %d slaves, expected %d", e.Found, e.Want)
}

// Config parameterizes a cyclic link.
type Config struct {
	// Ifname is the network interface the master binds to.
	Ifname string
	// NumDevices is the expected device count on the segment.
	NumDevices int
	// CycleTicks scales the base bus cycle; the effective period is
	// CycleTicks * 500 us.
	CycleTicks uint16
	// OnError receives recovery diagnostics. Never called once Close
	// returns. Optional.
	OnError func(msg string)
}

// Link is the cyclic transport over a Bus. A single instance owns its io
// map; the caller must not mutate a datagram concurrently with Send on it.
type Link struct {
	bus Bus
	cfg Config

	ioMu        sync.Mutex
	ioMap       []byte
	expectedWKC int

	open     atomic.Bool
	inFlight atomic.Bool
	timer    *timer.Timer
}

// NewLink builds an unopened link over the given bus.
func NewLink(bus Bus, cfg Config) *Link {
	if cfg.CycleTicks == 0 {
		cfg.CycleTicks = 1
	}
	return &Link{bus: bus, cfg: cfg}
}

// CycleTicks returns the configured bus cycle multiplier.
func (l *Link) CycleTicks() uint16 {
	return l.cfg.CycleTicks
}

// IsOpen reports whether the cyclic exchange is running.
func (l *Link) IsOpen() bool {
	return l.open.Load()
}

// Open initializes the network, brings the whole segment to OPERATIONAL and
// starts the cyclic exchange.
func (l *Link) Open() error {
	if l.open.Load() {
		return nil
	}

	if err := l.bus.Init(l.cfg.Ifname); err != nil {
		return fmt.Errorf("no socket connection on %s: %w", l.cfg.Ifname, err)
	}

	l.ioMap = make([]byte, (outputFrameSize+inputFrameSize)*l.cfg.NumDevices)
	found, err := l.bus.ConfigMap(l.ioMap)
	if err != nil {
		return fmt.Errorf("slave enumeration failed: %w", err)
	}
	if found != l.cfg.NumDevices {
		return SlaveCountError{Found: found, Want: l.cfg.NumDevices}
	}

	if err := l.bus.ConfigDC(); err != nil {
		return fmt.Errorf("distributed clock setup failed: %w", err)
	}

	l.bus.StateCheck(0, StateSafeOp, 4*stateTimeout)

	l.bus.SetState(0, StateOperational)
	l.bus.SendProcessData()
	l.bus.ReceiveProcessData(retTimeout)
	l.bus.WriteState(0)

	state := l.bus.StateCheck(0, StateOperational, opPollTimeout)
	for chk := opPollRetries; chk > 0 && state != StateOperational; chk-- {
		state = l.bus.StateCheck(0, StateOperational, opPollTimeout)
	}
	if state != StateOperational {
		return NotRespondingError{}
	}

	cycle := link.CyclePeriod(l.cfg.CycleTicks)
	for slave := 1; slave <= l.cfg.NumDevices; slave++ {
		l.bus.DCSync0(slave, true, cycle)
	}

	l.expectedWKC = l.bus.ExpectedWKC()
	l.open.Store(true)

	t, err := timer.Start(&cyclicCallback{link: l}, cycle)
	if err != nil {
		l.open.Store(false)
		return err
	}
	l.timer = t

	return nil
}

// Close stops the cyclic exchange, silences the outputs and returns the
// segment to INIT.
func (l *Link) Close() error {
	if !l.open.Load() {
		return nil
	}
	l.open.Store(false)

	// Zero the whole output image so the devices fall silent on the final
	// cycles.
	l.ioMu.Lock()
	for i := range l.ioMap[:outputFrameSize*l.cfg.NumDevices] {
		l.ioMap[i] = 0
	}
	l.ioMu.Unlock()

	if l.timer != nil {
		l.timer.Close()
		l.timer = nil
	}

	for slave := 1; slave <= l.cfg.NumDevices; slave++ {
		l.bus.DCSync0(slave, false, 0)
	}

	l.bus.SetState(0, StateInit)
	l.bus.WriteState(0)
	l.bus.StateCheck(0, StateInit, stateTimeout)
	l.bus.Close()

	return nil
}

// Send copies the datagram into the output io map. Each device block is
// body first, header second; header-only datagrams replicate the header
// into every block and leave the bodies untouched.
func (l *Link) Send(tx *driver.TxDatagram) (bool, error) {
	if !l.open.Load() {
		return false, ErrLinkClosed
	}

	l.ioMu.Lock()
	defer l.ioMu.Unlock()

	data := tx.Data()
	header := data[:driver.HeaderSize]
	for i := 0; i < l.cfg.NumDevices; i++ {
		block := l.ioMap[outputFrameSize*i : outputFrameSize*(i+1)]
		if i < tx.NumBodies {
			body := data[driver.HeaderSize+driver.BodySize*i : driver.HeaderSize+driver.BodySize*(i+1)]
			copy(block[:driver.BodySize], body)
		}
		copy(block[driver.BodySize:], header)
	}

	return true, nil
}

// Receive overlays the input io map onto the reply datagram.
func (l *Link) Receive(rx *driver.RxDatagram) (bool, error) {
	if !l.open.Load() {
		return false, ErrLinkClosed
	}

	l.ioMu.Lock()
	defer l.ioMu.Unlock()

	if err := rx.Overlay(l.ioMap[outputFrameSize*l.cfg.NumDevices:]); err != nil {
		return false, err
	}
	return true, nil
}

// cyclicCallback is the per-tick exchange. The inFlight flag skips a tick
// that lands while the previous one is still running.
type cyclicCallback struct {
	link *Link
}

func (c *cyclicCallback) Tick() {
	l := c.link
	if !l.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer l.inFlight.Store(false)

	if !l.open.Load() {
		return
	}

	l.ioMu.Lock()
	l.bus.SendProcessData()
	wkc := l.bus.ReceiveProcessData(retTimeout)
	l.ioMu.Unlock()

	if wkc != l.expectedWKC {
		l.recover()
	}
}

// recover walks every slave not in OPERATIONAL and applies the escalating
// remedy ladder: ack a SAFE_OP+ERROR slave, promote a SAFE_OP slave,
// reconfigure a slave in deeper error, recover a lost slave. Failures are
// reported through the diagnostic callback; the cyclic loop keeps running
// regardless.
func (l *Link) recover() {
	l.bus.ReadState()

	var msg string
	healthy := true
	for slave := 1; slave <= l.bus.SlaveCount(); slave++ {
		state := l.bus.State(slave)
		if state != StateOperational {
			healthy = false
			switch {
			case state == StateSafeOp+StateError:
				msg += fmt.Sprintf("ERROR : slave %d is in SAFE_OP + ERROR, attempting ack\n", slave)
				l.bus.SetState(slave, StateSafeOp+StateAck)
				l.bus.WriteState(slave)
			case state == StateSafeOp:
				msg += fmt.Sprintf("ERROR : slave %d is in SAFE_OP, change to OPERATIONAL\n", slave)
				l.bus.SetState(slave, StateOperational)
				l.bus.WriteState(slave)
			case state > StateNone:
				if l.bus.Reconfig(slave, slaveTimeout) {
					l.bus.SetLost(slave, false)
					msg += fmt.Sprintf("MESSAGE : slave %d reconfigured\n", slave)
				}
			case !l.bus.IsLost(slave):
				l.bus.StateCheck(slave, StateOperational, retTimeout)
				if l.bus.State(slave) == StateNone {
					l.bus.SetLost(slave, true)
					msg += fmt.Sprintf("ERROR : slave %d lost\n", slave)
				}
			}
		}
		if l.bus.IsLost(slave) {
			if l.bus.State(slave) == StateNone {
				if l.bus.Recover(slave, slaveTimeout) {
					l.bus.SetLost(slave, false)
					msg += fmt.Sprintf("MESSAGE : slave %d recovered\n", slave)
				}
			} else {
				l.bus.SetLost(slave, false)
				msg += fmt.Sprintf("MESSAGE : slave %d found\n", slave)
			}
		}
	}

	if !healthy && l.cfg.OnError != nil && msg != "" {
		l.cfg.OnError(msg)
	}
}
