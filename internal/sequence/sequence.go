// Package sequence provides the client-side staging buffers for
// spatio-temporal modulation. Buffers accumulate entries until flushed chunk
// by chunk through the streaming encoders; the buffer, not the encoder, is
// authoritative for how much has been sent.
package sequence

import (
	"fmt"
	"math"

	"github.com/mfranke/soniclink/internal/driver"
	"github.com/mfranke/soniclink/internal/gain"
	"github.com/mfranke/soniclink/internal/geometry"
)

// GainMode selects which gain STM encoder variant a gain sequence is flushed
// with.
type GainMode int

const (
	// DutyPhaseFull streams each gain as a phase frame followed by a duty
	// frame in the split encoding.
	DutyPhaseFull GainMode = iota
	// PhaseFull streams phase frames only.
	PhaseFull
	// DutyOnly streams duty frames only.
	DutyOnly
)

func (m GainMode) String() string {
	switch m {
	case DutyPhaseFull:
		return "duty+phase"
	case PhaseFull:
		return "phase"
	case DutyOnly:
		return "duty"
	}
	return fmt.Sprintf("GainMode(%d)", int(m))
}

// ControlPoint is one entry of a point sequence: a focal position and the
// output duty at that instant.
type ControlPoint struct {
	Pos  geometry.Vector3
	Duty uint8
}

// PointSequence is an append-only buffer of control points replayed by the
// hardware at the sampling frequency.
type PointSequence struct {
	points  []ControlPoint
	freqDiv uint32
	sent    int
}

// NewPointSequence returns an empty point sequence at the minimum allowed
// sampling divisor.
func NewPointSequence() *PointSequence {
	return &PointSequence{freqDiv: driver.STMSamplingFreqDivMin}
}

// AddPoint appends one control point, failing when the hardware buffer
// ceiling would be exceeded.
func (s *PointSequence) AddPoint(p ControlPoint) error {
	if len(s.points)+1 > driver.PointSTMBufSizeMax {
		return fmt.Errorf("point sequence buffer overflow (max %d)", driver.PointSTMBufSizeMax)
	}
	s.points = append(s.points, p)
	return nil
}

// AddPoints appends a batch of control points.
func (s *PointSequence) AddPoints(points []ControlPoint) error {
	if len(s.points)+len(points) > driver.PointSTMBufSizeMax {
		return fmt.Errorf("point sequence buffer overflow (max %d)", driver.PointSTMBufSizeMax)
	}
	s.points = append(s.points, points...)
	return nil
}

// Points returns the staged control points.
func (s *PointSequence) Points() []ControlPoint { return s.points }

// Size returns the number of staged points.
func (s *PointSequence) Size() int { return len(s.points) }

// Sent returns how many points have been flushed.
func (s *PointSequence) Sent() int { return s.sent }

// Advance records that n more points have been flushed.
func (s *PointSequence) Advance(n int) { s.sent += n }

// Remaining returns how many points are still unflushed.
func (s *PointSequence) Remaining() int { return s.Size() - s.sent }

// Finished reports whether the whole sequence has been flushed.
func (s *PointSequence) Finished() bool { return s.Remaining() == 0 }

// SamplingFreqDiv returns the sampling frequency divisor.
func (s *PointSequence) SamplingFreqDiv() uint32 { return s.freqDiv }

// SetSamplingFreqDiv overrides the sampling frequency divisor.
func (s *PointSequence) SetSamplingFreqDiv(div uint32) { s.freqDiv = div }

// SamplingFreq returns the point replay rate in Hz.
func (s *PointSequence) SamplingFreq() float64 {
	return float64(driver.FPGAClkFreq) / float64(s.freqDiv)
}

// SetFreq picks the sampling divisor so the whole sequence repeats at
// approximately freq Hz, and returns the actually achievable frequency.
func (s *PointSequence) SetFreq(freq float64) float64 {
	if len(s.points) == 0 || freq <= 0 {
		return 0
	}
	div := math.Round(float64(driver.FPGAClkFreq) / (freq * float64(len(s.points))))
	if div < float64(driver.STMSamplingFreqDivMin) {
		div = float64(driver.STMSamplingFreqDivMin)
	}
	if div > math.MaxUint32 {
		div = math.MaxUint32
	}
	s.freqDiv = uint32(div)
	return s.Freq()
}

// Freq returns the repetition frequency of the whole sequence.
func (s *PointSequence) Freq() float64 {
	if len(s.points) == 0 {
		return 0
	}
	return s.SamplingFreq() / float64(len(s.points))
}

// GainSequence is an append-only buffer of pre-computed drive snapshots, one
// full drive array per entry. Gains are computed against the geometry at
// append time so a failing gain stages nothing.
type GainSequence struct {
	gains   [][]driver.Drive
	mode    GainMode
	freqDiv uint32
	sent    int
}

// NewGainSequence returns an empty gain sequence in the given mode at the
// minimum allowed sampling divisor.
func NewGainSequence(mode GainMode) *GainSequence {
	return &GainSequence{mode: mode, freqDiv: driver.STMSamplingFreqDivMin}
}

// AddGain computes g against the geometry and stages the resulting drive
// snapshot.
func (s *GainSequence) AddGain(g gain.Gain, geo *geometry.Geometry) error {
	if len(s.gains)+1 > driver.GainSTMBufSizeMax {
		return fmt.Errorf("gain sequence buffer overflow (max %d)", driver.GainSTMBufSizeMax)
	}
	drives, err := g.Calc(geo)
	if err != nil {
		return fmt.Errorf("gain calculation failed: %w", err)
	}
	if len(drives) != geo.NumTransducers() {
		return driver.DeviceCountError{Want: geo.NumDevices(), Got: len(drives) / driver.NumTransInUnit}
	}
	s.gains = append(s.gains, drives)
	return nil
}

// Gains returns the staged drive snapshots.
func (s *GainSequence) Gains() [][]driver.Drive { return s.gains }

// Mode returns the gain mode the sequence must be flushed with.
func (s *GainSequence) Mode() GainMode { return s.mode }

// Size returns the number of staged gains.
func (s *GainSequence) Size() int { return len(s.gains) }

// Sent returns how many flush frames have been consumed. The head frame
// counts as one, so a fully flushed sequence has sent == size+1 frames in
// single-frame-per-gain modes.
func (s *GainSequence) Sent() int { return s.sent }

// Advance records that n more frames have been flushed.
func (s *GainSequence) Advance(n int) { s.sent += n }

// Remaining returns how many frames are still to flush, including the
// metadata-only head frame.
func (s *GainSequence) Remaining() int { return s.Size() + 1 - s.sent }

// Finished reports whether the whole sequence has been flushed.
func (s *GainSequence) Finished() bool { return s.Remaining() == 0 }

// SamplingFreqDiv returns the sampling frequency divisor.
func (s *GainSequence) SamplingFreqDiv() uint32 { return s.freqDiv }

// SetSamplingFreqDiv overrides the sampling frequency divisor.
func (s *GainSequence) SetSamplingFreqDiv(div uint32) { s.freqDiv = div }
