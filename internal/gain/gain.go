// Package gain computes per-transducer drive arrays from a geometry
// snapshot. Gains are the pluggable half of static drive and gain STM
// commands; the driver package only ever sees the flat drive array they
// produce.
package gain

import (
	"fmt"
	"math"

	"github.com/mfranke/soniclink/internal/driver"
	"github.com/mfranke/soniclink/internal/geometry"
)

// Wavelength of the 40 kHz carrier in air, millimetres.
const Wavelength = 8.5

// Gain computes one flat drive array (one entry per transducer across all
// devices) for the given geometry. Calc may fail; nothing is staged on
// failure.
type Gain interface {
	Calc(geo *geometry.Geometry) ([]driver.Drive, error)
}

// Focus drives every transducer in phase toward a single focal point.
type Focus struct {
	Pos geometry.Vector3
	Amp float64
}

// NewFocus returns a full-amplitude focus gain.
func NewFocus(pos geometry.Vector3) *Focus {
	return &Focus{Pos: pos, Amp: 1.0}
}

func (f *Focus) Calc(geo *geometry.Geometry) ([]driver.Drive, error) {
	if f.Amp < 0 || f.Amp > 1 {
		return nil, fmt.Errorf("focus amplitude %f is out of range [0, 1]", f.Amp)
	}

	drives := make([]driver.Drive, 0, geo.NumTransducers())
	for i := 0; i < geo.NumDevices(); i++ {
		dev := geo.Device(i)
		for j := 0; j < driver.NumTransInUnit; j++ {
			t := dev.Transducer(j)
			d := t.Sub(f.Pos)
			dist := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
			phase := 2.0 * math.Pi * math.Mod(dist/Wavelength, 1.0)
			drives = append(drives, driver.Drive{Phase: phase, Amp: f.Amp})
		}
	}
	return drives, nil
}

// Uniform drives every transducer with the same phase and amplitude.
type Uniform struct {
	Amp   float64
	Phase float64
}

func (u *Uniform) Calc(geo *geometry.Geometry) ([]driver.Drive, error) {
	if u.Amp < 0 || u.Amp > 1 {
		return nil, fmt.Errorf("uniform amplitude %f is out of range [0, 1]", u.Amp)
	}

	drives := make([]driver.Drive, geo.NumTransducers())
	for i := range drives {
		drives[i] = driver.Drive{Phase: u.Phase, Amp: u.Amp}
	}
	return drives, nil
}

// Null silences every transducer. Used to stop output without dropping the
// link.
type Null struct{}

func (Null) Calc(geo *geometry.Geometry) ([]driver.Drive, error) {
	return make([]driver.Drive, geo.NumTransducers()), nil
}
