package soem

import (
	"fmt"
	"sync"
	"time"

	"github.com/mfranke/soniclink/internal/driver"
)

// SimBus is an in-memory Bus backed by a minimal device model: every slave
// acknowledges each exchange by echoing the header's message id into its
// reply slot. It exists for loopback operation and tests; the production
// bus binds the same interface to the native master driver.
type SimBus struct {
	slaveCount int

	mu     sync.Mutex
	iomap  []byte
	states []SlaveState
	staged []SlaveState
	lost   []bool
	inited bool
}

// NewSimBus builds a simulated segment with the given slave count.
func NewSimBus(slaveCount int) *SimBus {
	b := &SimBus{
		slaveCount: slaveCount,
		states:     make([]SlaveState, slaveCount+1),
		staged:     make([]SlaveState, slaveCount+1),
		lost:       make([]bool, slaveCount+1),
	}
	for i := range b.states {
		b.states[i] = StateInit
	}
	return b
}

func (b *SimBus) Init(ifname string) error {
	if ifname == "" {
		return fmt.Errorf("no interface name")
	}
	b.inited = true
	return nil
}

func (b *SimBus) Close() {
	b.inited = false
}

func (b *SimBus) ConfigMap(iomap []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	want := (outputFrameSize + inputFrameSize) * b.slaveCount
	if len(iomap) < want {
		return 0, fmt.Errorf("io map too small: %d < %d", len(iomap), want)
	}
	b.iomap = iomap
	for i := range b.states {
		b.states[i] = StateSafeOp
	}
	return b.slaveCount, nil
}

func (b *SimBus) ConfigDC() error { return nil }

func (b *SimBus) SlaveCount() int { return b.slaveCount }

func (b *SimBus) State(slave int) SlaveState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[slave]
}

func (b *SimBus) SetState(slave int, state SlaveState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staged[slave] = state
}

func (b *SimBus) WriteState(slave int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A healthy simulated slave accepts any requested transition; the ack
	// bit acknowledges back to the base state.
	apply := func(i int) {
		b.states[i] = b.staged[i] &^ StateAck
	}
	if slave == 0 {
		for i := range b.states {
			b.staged[i] = b.staged[0]
			apply(i)
		}
		return
	}
	apply(slave)
}

func (b *SimBus) StateCheck(slave int, want SlaveState, timeout time.Duration) SlaveState {
	return b.State(slave)
}

func (b *SimBus) ReadState() {}

func (b *SimBus) Reconfig(slave int, timeout time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[slave] = StateOperational
	return true
}

func (b *SimBus) Recover(slave int, timeout time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[slave] = StateOperational
	return true
}

func (b *SimBus) IsLost(slave int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lost[slave]
}

func (b *SimBus) SetLost(slave int, lost bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lost[slave] = lost
}

func (b *SimBus) DCSync0(slave int, activate bool, cycleTime time.Duration) {}

// SendProcessData runs the device model: each slave reads the header copied
// into its output block and acknowledges the message id.
func (b *SimBus) SendProcessData() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.iomap == nil {
		return
	}
	inputBase := outputFrameSize * b.slaveCount
	for i := 0; i < b.slaveCount; i++ {
		// The header sits after the body inside each output block.
		msgID := b.iomap[outputFrameSize*i+driver.BodySize]
		b.iomap[inputBase+i*inputFrameSize] = 0
		b.iomap[inputBase+i*inputFrameSize+1] = msgID
	}
}

func (b *SimBus) ReceiveProcessData(timeout time.Duration) int {
	return b.ExpectedWKC()
}

func (b *SimBus) ExpectedWKC() int {
	// One output and one input mailbox per slave.
	return 3 * b.slaveCount
}
