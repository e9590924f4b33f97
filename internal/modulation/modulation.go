// Package modulation stages amplitude modulation waveforms for upload. A
// modulation is sampled once into raw duty bytes; the controller streams the
// bytes to the devices in head/body chunks.
package modulation

import (
	"fmt"
	"math"

	"github.com/mfranke/soniclink/internal/driver"
)

// Modulation produces a sampled waveform and the sampling divisor the
// devices replay it with.
type Modulation interface {
	Calc() ([]byte, error)
	SamplingFreqDiv() uint32
}

// SamplingFreq converts a divisor into the resulting sampling frequency.
func SamplingFreq(div uint32) float64 {
	return float64(driver.FPGAClkFreq) / float64(div)
}

// Static holds the output at a constant modulation level.
type Static struct {
	Duty    uint8
	freqDiv uint32
}

// NewStatic returns a full-level static modulation.
func NewStatic() *Static {
	return &Static{Duty: 0xFF, freqDiv: 40960}
}

func (s *Static) Calc() ([]byte, error) {
	// Two samples are the smallest buffer the firmware accepts.
	return []byte{s.Duty, s.Duty}, nil
}

func (s *Static) SamplingFreqDiv() uint32 { return s.freqDiv }

// Sine is a sine amplitude modulation at an integer frequency in Hz.
type Sine struct {
	Freq   int
	Amp    float64
	Offset float64

	freqDiv uint32
}

// NewSine returns a full-swing sine modulation.
func NewSine(freq int) *Sine {
	return &Sine{Freq: freq, Amp: 1.0, Offset: 0.5, freqDiv: 40960}
}

func (s *Sine) Calc() ([]byte, error) {
	if s.Freq <= 0 {
		return nil, fmt.Errorf("sine frequency %d must be positive", s.Freq)
	}

	fs := SamplingFreq(s.freqDiv)
	freq := float64(s.Freq)
	if freq > fs/2 {
		return nil, fmt.Errorf("sine frequency %d exceeds Nyquist limit %f", s.Freq, fs/2)
	}

	// Sample one full period of the waveform.
	n := int(math.Round(fs / freq))
	buf := make([]byte, n)
	for i := range buf {
		amp := s.Amp/2.0*math.Sin(2.0*math.Pi*float64(i)/float64(n)) + s.Offset
		if amp > 1 {
			amp = 1
		}
		if amp < 0 {
			amp = 0
		}
		// Duty transfer: full amplitude maps to full duty via asin.
		buf[i] = uint8(math.Round(510.0 * math.Asin(amp) / math.Pi))
	}
	return buf, nil
}

func (s *Sine) SamplingFreqDiv() uint32 { return s.freqDiv }
