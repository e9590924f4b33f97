package driver

import (
	"encoding/binary"
	"math"
)

// Drive is one transducer's target output before hardware quantization:
// phase in radians and normalized amplitude in [0, 1].
type Drive struct {
	Phase float64
	Amp   float64
}

// LegacyPhase quantizes the phase to the 8-bit legacy encoding.
func (d Drive) LegacyPhase() uint8 {
	return uint8(int(math.Round(d.Phase/(2.0*math.Pi)*256.0)) & 0xFF)
}

// LegacyDuty quantizes the amplitude to the 8-bit legacy duty encoding.
func (d Drive) LegacyDuty() uint8 {
	return uint8(math.Round(510.0 * math.Asin(clampAmp(d.Amp)) / math.Pi))
}

// Duty quantizes the amplitude to a 16-bit duty in FPGA clock ticks.
func (d Drive) Duty() uint16 {
	return uint16(math.Round(float64(MaxCycle) * math.Asin(clampAmp(d.Amp)) / math.Pi))
}

// PhaseFull quantizes the phase to a 16-bit value relative to the ultrasound
// cycle.
func (d Drive) PhaseFull() uint16 {
	p := int(math.Round(d.Phase / (2.0 * math.Pi) * float64(MaxCycle)))
	p %= MaxCycle
	if p < 0 {
		p += MaxCycle
	}
	return uint16(p)
}

func clampAmp(amp float64) float64 {
	if amp < 0 {
		return 0
	}
	if amp > 1 {
		return 1
	}
	return amp
}

// SeqFocus is one packed focus point of a point STM sequence: three 18-bit
// signed fixed-point coordinates (PointSTMFixedNumUnit mm per LSB) and an
// 8-bit duty shift, packed into four 16-bit words.
type SeqFocus struct {
	buf [4]uint16
}

// NewSeqFocus packs a device-local position given in millimetres.
func NewSeqFocus(x, y, z float64, dutyShift uint8) SeqFocus {
	var f SeqFocus
	f.Set(toFixedNum(x), toFixedNum(y), toFixedNum(z), dutyShift)
	return f
}

func toFixedNum(mm float64) int32 {
	return int32(math.Round(mm / PointSTMFixedNumUnit))
}

// Set packs already-quantized 18-bit coordinates.
func (f *SeqFocus) Set(x, y, z int32, dutyShift uint8) {
	f.buf[0] = uint16(x & 0xFFFF)
	f.buf[1] = uint16((y<<2)&0xFFFC) | uint16((x>>30)&0x0002) | uint16((x>>16)&0x0001)
	f.buf[2] = uint16((z<<4)&0xFFF0) | uint16((y>>28)&0x0008) | uint16((y>>14)&0x0007)
	f.buf[3] = uint16(uint16(dutyShift)<<6)&0x3FC0 | uint16((z>>26)&0x0020) | uint16((z>>12)&0x001F)
}

const seqFocusBytes = 8

func (f SeqFocus) put(b []byte) {
	for i, w := range f.buf {
		binary.LittleEndian.PutUint16(b[i*2:], w)
	}
}

// Body is a mutable view of one device's payload block. Which interpretation
// is active is decided by the header flags at encode time; the block itself
// carries no tag.
type Body struct {
	b []byte
}

// SetSyncCycles writes one ultrasound cycle count per transducer.
func (b Body) SetSyncCycles(cycles []uint16) {
	for i, c := range cycles {
		binary.LittleEndian.PutUint16(b.b[i*2:], c)
	}
}

// SyncCycleAt reads back the i-th transducer's cycle count.
func (b Body) SyncCycleAt(i int) uint16 {
	return binary.LittleEndian.Uint16(b.b[i*2:])
}

// SetLegacyDrives writes the combined 8-bit phase + 8-bit duty encoding.
func (b Body) SetLegacyDrives(drives []Drive) {
	for i, d := range drives {
		b.b[i*2] = d.LegacyPhase()
		b.b[i*2+1] = d.LegacyDuty()
	}
}

// LegacyDriveAt reads back the i-th transducer's legacy phase and duty.
func (b Body) LegacyDriveAt(i int) (phase, duty uint8) {
	return b.b[i*2], b.b[i*2+1]
}

// SetDuties writes the 16-bit duty encoding.
func (b Body) SetDuties(drives []Drive) {
	for i, d := range drives {
		binary.LittleEndian.PutUint16(b.b[i*2:], d.Duty())
	}
}

// DutyAt reads back the i-th transducer's 16-bit duty.
func (b Body) DutyAt(i int) uint16 {
	return binary.LittleEndian.Uint16(b.b[i*2:])
}

// SetPhases writes the 16-bit phase encoding.
func (b Body) SetPhases(drives []Drive) {
	for i, d := range drives {
		binary.LittleEndian.PutUint16(b.b[i*2:], d.PhaseFull())
	}
}

// PhaseAt reads back the i-th transducer's 16-bit phase.
func (b Body) PhaseAt(i int) uint16 {
	return binary.LittleEndian.Uint16(b.b[i*2:])
}

// PointSTMHead is the body interpretation of an STM_BEGIN point STM frame:
// entry count, one-time sampling divisor and sound speed, then a capped run
// of packed focus points.
type PointSTMHead struct {
	b []byte
}

// PointSTMHead returns the head-chunk point STM view of the body.
func (b Body) PointSTMHead() PointSTMHead {
	return PointSTMHead{b.b}
}

func (h PointSTMHead) SetSize(size uint16) {
	binary.LittleEndian.PutUint16(h.b[0:2], size)
}

func (h PointSTMHead) Size() uint16 {
	return binary.LittleEndian.Uint16(h.b[0:2])
}

func (h PointSTMHead) SetFreqDiv(div uint32) {
	binary.LittleEndian.PutUint32(h.b[2:6], div)
}

func (h PointSTMHead) FreqDiv() uint32 {
	return binary.LittleEndian.Uint32(h.b[2:6])
}

// SetSoundSpeed writes the ×1024 fixed-point sound speed.
func (h PointSTMHead) SetSoundSpeed(speed uint32) {
	binary.LittleEndian.PutUint32(h.b[6:10], speed)
}

func (h PointSTMHead) SoundSpeed() uint32 {
	return binary.LittleEndian.Uint32(h.b[6:10])
}

// SetPoints writes up to PointSTMHeadDataSize packed focus points.
func (h PointSTMHead) SetPoints(points []SeqFocus) {
	for i, p := range points {
		p.put(h.b[10+i*seqFocusBytes:])
	}
}

// PointSTMBody is the body interpretation of a follow-up point STM frame:
// entry count then focus points only.
type PointSTMBody struct {
	b []byte
}

// PointSTMBody returns the follow-up-chunk point STM view of the body.
func (b Body) PointSTMBody() PointSTMBody {
	return PointSTMBody{b.b}
}

func (p PointSTMBody) SetSize(size uint16) {
	binary.LittleEndian.PutUint16(p.b[0:2], size)
}

func (p PointSTMBody) Size() uint16 {
	return binary.LittleEndian.Uint16(p.b[0:2])
}

// SetPoints writes up to PointSTMBodyDataSize packed focus points.
func (p PointSTMBody) SetPoints(points []SeqFocus) {
	for i, pt := range points {
		pt.put(p.b[2+i*seqFocusBytes:])
	}
}

// GainSTMHead is the body interpretation of an STM_BEGIN gain STM frame. The
// head frame carries only the sampling divisor; drive data starts with the
// next frame.
type GainSTMHead struct {
	b []byte
}

// GainSTMHead returns the head-chunk gain STM view of the body.
func (b Body) GainSTMHead() GainSTMHead {
	return GainSTMHead{b.b}
}

func (h GainSTMHead) SetFreqDiv(div uint32) {
	binary.LittleEndian.PutUint32(h.b[0:4], div)
}

func (h GainSTMHead) FreqDiv() uint32 {
	return binary.LittleEndian.Uint32(h.b[0:4])
}

// GainSTMBody returns the follow-up-chunk gain STM view of the body, which
// carries one full drive block in the selected encoding.
func (b Body) GainSTMBody() Body {
	return b
}
