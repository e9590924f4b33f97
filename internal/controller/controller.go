// Package controller sequences high-level operations into wire frames: it
// owns the message-id rotation, the shared datagram pair, and the chunked
// send loops for modulation and spatio-temporal sequences.
package controller

import (
	"fmt"
	"time"

	"github.com/mfranke/soniclink/internal/driver"
	"github.com/mfranke/soniclink/internal/firmware"
	"github.com/mfranke/soniclink/internal/gain"
	"github.com/mfranke/soniclink/internal/geometry"
	"github.com/mfranke/soniclink/internal/link"
	"github.com/mfranke/soniclink/internal/modulation"
	"github.com/mfranke/soniclink/internal/sequence"
)

// DefaultCheckTrials bounds how many bus cycles a send waits for every
// device to acknowledge before reporting the frame unconfirmed.
const DefaultCheckTrials = 50

// Controller drives a device chain over an open link. Methods report
// (false, nil) when the devices did not confirm the frame within the trial
// budget and a non-nil error for structural failures; a confirmed exchange
// is (true, nil).
//
// A Controller is single-writer: all methods must be called from one
// goroutine.
type Controller struct {
	// Legacy selects the combined 8-bit phase+duty encoding. Split 16-bit
	// frames are used when false.
	Legacy bool
	// CheckTrials is the per-frame acknowledgment budget in bus cycles.
	// Zero sends fire-and-forget.
	CheckTrials int

	geo  *geometry.Geometry
	link link.Link
	tx   *driver.TxDatagram
	rx   *driver.RxDatagram

	msgID         uint8
	forceFan      bool
	readsFPGAInfo bool
}

// Open connects the controller to the device chain and opens the link.
func Open(geo *geometry.Geometry, l link.Link) (*Controller, error) {
	if err := l.Open(); err != nil {
		return nil, fmt.Errorf("open link: %w", err)
	}
	return &Controller{
		Legacy:      true,
		CheckTrials: DefaultCheckTrials,
		geo:         geo,
		link:        l,
		tx:          driver.NewTxDatagram(geo.NumDevices()),
		rx:          driver.NewRxDatagram(geo.NumDevices()),
		msgID:       driver.MsgBegin,
	}, nil
}

// Geometry returns the device layout this controller drives.
func (c *Controller) Geometry() *geometry.Geometry {
	return c.geo
}

// nextMsgID rotates through the application message-id band, skipping the
// ids reserved for diagnostic reads.
func (c *Controller) nextMsgID() uint8 {
	c.msgID++
	if c.msgID > driver.MsgEnd || c.msgID < driver.MsgBegin {
		c.msgID = driver.MsgBegin
	}
	return c.msgID
}

// waitMsgProcessed polls the reply datagram until every device echoes the
// message id or the trial budget runs out.
func (c *Controller) waitMsgProcessed(msgID uint8, trials int) (bool, error) {
	period := link.CyclePeriod(c.link.CycleTicks())
	for i := 0; i < trials; i++ {
		ok, err := c.link.Receive(c.rx)
		if err != nil {
			return false, err
		}
		if ok && c.rx.IsMsgProcessed(msgID) {
			return true, nil
		}
		time.Sleep(period)
	}
	return false, nil
}

// transmit applies the sticky header toggles, pushes the encoded datagram
// out and waits for the acknowledgment round-trip.
func (c *Controller) transmit(msgID uint8) (bool, error) {
	driver.ForceFan(c.tx, c.forceFan)
	driver.ReadsFPGAInfo(c.tx, c.readsFPGAInfo)
	return c.transmitRaw(msgID)
}

// transmitRaw sends without touching the header flags. Diagnostic reads use
// it directly because their flag bytes are fixed raw values.
func (c *Controller) transmitRaw(msgID uint8) (bool, error) {
	ok, err := c.link.Send(c.tx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if c.CheckTrials <= 0 {
		return true, nil
	}
	return c.waitMsgProcessed(msgID, c.CheckTrials)
}

// Clear resets every device to its power-on state.
func (c *Controller) Clear() (bool, error) {
	driver.Clear(c.tx)
	return c.transmitRaw(driver.MsgClear)
}

// Synchronize distributes the ultrasound period to every transducer and
// schedules a network-wide start on the distributed clock.
func (c *Controller) Synchronize() (bool, error) {
	cycles := make([][]uint16, c.geo.NumDevices())
	for i := range cycles {
		dev := make([]uint16, driver.NumTransInUnit)
		for j := range dev {
			dev[j] = driver.MaxCycle
		}
		cycles[i] = dev
	}

	msgID := c.nextMsgID()
	if err := driver.Sync(msgID, c.link.CycleTicks(), cycles, c.tx); err != nil {
		return false, err
	}
	return c.transmit(msgID)
}

// ConfigSilencer sets the output smoothing filter cycle and step.
func (c *Controller) ConfigSilencer(cycle, step uint16) (bool, error) {
	msgID := c.nextMsgID()
	if err := driver.ConfigSilencer(msgID, cycle, step, c.tx); err != nil {
		return false, err
	}
	return c.transmit(msgID)
}

// SendGain computes a static drive pattern and writes it to the devices. In
// split mode the phase frame goes out before the duty frame so the
// transducers never run a new amplitude against a stale phase.
func (c *Controller) SendGain(g gain.Gain) (bool, error) {
	drives, err := g.Calc(c.geo)
	if err != nil {
		return false, err
	}
	return c.sendDrives(drives)
}

func (c *Controller) sendDrives(drives []driver.Drive) (bool, error) {
	if c.Legacy {
		msgID := c.nextMsgID()
		if err := driver.NormalLegacy(msgID, drives, c.tx); err != nil {
			return false, err
		}
		return c.transmit(msgID)
	}

	msgID := c.nextMsgID()
	if err := driver.NormalPhase(msgID, drives, c.tx); err != nil {
		return false, err
	}
	if ok, err := c.transmit(msgID); err != nil || !ok {
		return ok, err
	}

	msgID = c.nextMsgID()
	if err := driver.NormalDuty(msgID, drives, c.tx); err != nil {
		return false, err
	}
	return c.transmit(msgID)
}

// Stop silences every transducer while keeping the devices synchronized.
func (c *Controller) Stop() (bool, error) {
	return c.SendGain(gain.Null{})
}

// SendModulation uploads a modulation waveform in header-sized chunks.
func (c *Controller) SendModulation(m modulation.Modulation) (bool, error) {
	data, err := m.Calc()
	if err != nil {
		return false, err
	}

	sent := 0
	for {
		isFirst := sent == 0
		max := driver.ModBodyDataSize
		if isFirst {
			max = driver.ModHeadDataSize
		}
		n := len(data) - sent
		if n > max {
			n = max
		}
		isLast := sent+n == len(data)

		msgID := c.nextMsgID()
		if err := driver.Modulation(msgID, data[sent:sent+n], isFirst, m.SamplingFreqDiv(), isLast, c.tx); err != nil {
			return false, err
		}
		if ok, err := c.transmit(msgID); err != nil || !ok {
			return ok, err
		}
		sent += n
		if isLast {
			return true, nil
		}
	}
}

// SendPointSequence streams a focus-point sequence. Points are given in
// global coordinates; each device receives them transformed into its local
// frame. The sequence's sent counter advances only after the chunk is
// confirmed, so a failed send can be retried from where it stopped.
func (c *Controller) SendPointSequence(seq *sequence.PointSequence, soundSpeed float64) (bool, error) {
	for !seq.Finished() {
		isFirst := seq.Sent() == 0
		max := driver.PointSTMBodyDataSize
		if isFirst {
			max = driver.PointSTMHeadDataSize
		}
		n := seq.Remaining()
		if n > max {
			n = max
		}
		chunk := seq.Points()[seq.Sent() : seq.Sent()+n]
		isLast := seq.Remaining() == n

		points := make([][]driver.SeqFocus, c.geo.NumDevices())
		for d := range points {
			dev := c.geo.Device(d)
			local := make([]driver.SeqFocus, n)
			for i, cp := range chunk {
				p := dev.ToLocal(cp.Pos)
				local[i] = driver.NewSeqFocus(p.X, p.Y, p.Z, cp.Duty)
			}
			points[d] = local
		}

		msgID := c.nextMsgID()
		if err := driver.PointSTM(msgID, points, isFirst, seq.SamplingFreqDiv(), soundSpeed, isLast, c.tx); err != nil {
			return false, err
		}
		if ok, err := c.transmit(msgID); err != nil || !ok {
			return ok, err
		}
		seq.Advance(n)
	}
	return true, nil
}

// SendGainSequence streams a gain sequence: a metadata-only head frame
// followed by one frame per stored gain (two in duty+phase mode, which
// still counts as a single step).
func (c *Controller) SendGainSequence(seq *sequence.GainSequence) (bool, error) {
	if seq.Size() == 0 {
		return false, fmt.Errorf("gain sequence is empty")
	}
	for !seq.Finished() {
		isFirst := seq.Sent() == 0
		isLast := seq.Remaining() == 1

		var drives []driver.Drive
		if !isFirst {
			drives = seq.Gains()[seq.Sent()-1]
		}

		ok, err := c.sendGainSTMFrame(seq.Mode(), drives, isFirst, seq.SamplingFreqDiv(), isLast)
		if err != nil || !ok {
			return ok, err
		}
		seq.Advance(1)
	}
	return true, nil
}

func (c *Controller) sendGainSTMFrame(mode sequence.GainMode, drives []driver.Drive, isFirst bool, freqDiv uint32, isLast bool) (bool, error) {
	if c.Legacy {
		msgID := c.nextMsgID()
		if err := driver.GainSTMLegacy(msgID, drives, isFirst, freqDiv, isLast, c.tx); err != nil {
			return false, err
		}
		return c.transmit(msgID)
	}

	switch mode {
	case sequence.DutyPhaseFull:
		msgID := c.nextMsgID()
		if err := driver.GainSTMNormalPhase(msgID, drives, isFirst, freqDiv, false, c.tx); err != nil {
			return false, err
		}
		if ok, err := c.transmit(msgID); err != nil || !ok {
			return ok, err
		}
		if isFirst {
			// The head frame carries no drives and needs no duty half.
			return true, nil
		}
		msgID = c.nextMsgID()
		if err := driver.GainSTMNormalDuty(msgID, drives, false, freqDiv, isLast, c.tx); err != nil {
			return false, err
		}
		return c.transmit(msgID)
	case sequence.PhaseFull:
		msgID := c.nextMsgID()
		if err := driver.GainSTMNormalPhase(msgID, drives, isFirst, freqDiv, isLast, c.tx); err != nil {
			return false, err
		}
		return c.transmit(msgID)
	case sequence.DutyOnly:
		msgID := c.nextMsgID()
		if err := driver.GainSTMNormalDuty(msgID, drives, isFirst, freqDiv, isLast, c.tx); err != nil {
			return false, err
		}
		return c.transmit(msgID)
	}
	return false, fmt.Errorf("unknown gain mode %v", mode)
}

// SetForceFan overrides the device cooling fans on every following frame.
func (c *Controller) SetForceFan(v bool) {
	c.forceFan = v
}

// SetReadsFPGAInfo makes every following reply carry the FPGA status word
// in place of the acknowledgment byte.
func (c *Controller) SetReadsFPGAInfo(v bool) {
	c.readsFPGAInfo = v
}

// FPGAInfo returns the latest FPGA status word of each device. Requires
// SetReadsFPGAInfo(true) and at least one frame since.
func (c *Controller) FPGAInfo() ([]uint8, error) {
	if !c.readsFPGAInfo {
		return nil, fmt.Errorf("reads FPGA info is not enabled")
	}
	if ok, err := c.link.Receive(c.rx); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("link did not deliver a reply")
	}
	infos := make([]uint8, c.rx.NumDevices())
	for i := range infos {
		infos[i] = c.rx.Message(i).Ack
	}
	return infos, nil
}

// FirmwareInfoList reads the CPU and FPGA version words plus the FPGA
// feature bits from every device.
func (c *Controller) FirmwareInfoList() ([]firmware.Info, error) {
	cpu, err := c.readDiagnostic(driver.CPUVersion, driver.MsgRdCPUVersion)
	if err != nil {
		return nil, fmt.Errorf("read cpu version: %w", err)
	}
	fpga, err := c.readDiagnostic(driver.FPGAVersion, driver.MsgRdFPGAVersion)
	if err != nil {
		return nil, fmt.Errorf("read fpga version: %w", err)
	}
	fn, err := c.readDiagnostic(driver.FPGAFunctions, driver.MsgRdFPGAFunction)
	if err != nil {
		return nil, fmt.Errorf("read fpga functions: %w", err)
	}

	infos := make([]firmware.Info, c.geo.NumDevices())
	for i := range infos {
		infos[i] = firmware.Info{
			Index:            i,
			CPUVersionNum:    cpu[i],
			FPGAVersionNum:   fpga[i],
			FPGAFunctionBits: fn[i],
		}
	}
	return infos, nil
}

// readDiagnostic runs one fixed-flag read and collects the per-device ack
// byte once every device has echoed the diagnostic message id.
func (c *Controller) readDiagnostic(encode func(*driver.TxDatagram), msgID uint8) ([]uint8, error) {
	encode(c.tx)
	trials := c.CheckTrials
	if trials <= 0 {
		trials = DefaultCheckTrials
	}
	ok, err := c.link.Send(c.tx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("link dropped the diagnostic frame")
	}
	confirmed, err := c.waitMsgProcessed(msgID, trials)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, fmt.Errorf("device did not answer diagnostic read 0x%02x", msgID)
	}
	out := make([]uint8, c.rx.NumDevices())
	for i := range out {
		out[i] = c.rx.Message(i).Ack
	}
	return out, nil
}

// Close silences the devices, clears them and shuts the link down. Safe to
// call on an already closed controller.
func (c *Controller) Close() error {
	if !c.link.IsOpen() {
		return nil
	}
	if _, err := c.Stop(); err != nil {
		return err
	}
	if _, err := c.Clear(); err != nil {
		return err
	}
	return c.link.Close()
}
