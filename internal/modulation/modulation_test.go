package modulation

import (
	"testing"

	"github.com/mfranke/soniclink/internal/driver"
)

func TestStatic(t *testing.T) {
	m := NewStatic()

	buf, err := m.Calc()
	if err != nil {
		t.Fatalf("calc failed: %v", err)
	}
	if len(buf) != 2 || buf[0] != 0xFF || buf[1] != 0xFF {
		t.Errorf("unexpected buffer: % x", buf)
	}
	if m.SamplingFreqDiv() < driver.ModSamplingFreqDivMin {
		t.Errorf("default divisor %d below hardware minimum", m.SamplingFreqDiv())
	}
}

func TestSinePeriod(t *testing.T) {
	m := NewSine(200)

	buf, err := m.Calc()
	if err != nil {
		t.Fatalf("calc failed: %v", err)
	}
	// 4 kHz sampling, 200 Hz sine: 20 samples per period.
	if len(buf) != 20 {
		t.Errorf("expected 20 samples, got %d", len(buf))
	}

	var min, max byte = 0xFF, 0
	for _, b := range buf {
		if b < min {
			min = b
		}
		if b > max {
			max = b
		}
	}
	if max != 0xFF {
		t.Errorf("full-swing sine should reach full duty, max %d", max)
	}
	if min != 0 {
		t.Errorf("full-swing sine should reach zero duty, min %d", min)
	}
}

func TestSineInvalidFreq(t *testing.T) {
	if _, err := NewSine(0).Calc(); err == nil {
		t.Error("expected error for zero frequency")
	}
	if _, err := NewSine(3000).Calc(); err == nil {
		t.Error("expected error above Nyquist limit")
	}
}
