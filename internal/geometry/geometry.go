package geometry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mfranke/soniclink/internal/driver"
)

// Vector3 is a position in millimetres, global frame.
type Vector3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Device is one transducer-array unit in the bus chain: an origin in the
// global frame plus the positions of its transducers.
type Device struct {
	Origin     Vector3
	transducer []Vector3
}

// Transducer returns the global position of the i-th transducer.
func (d *Device) Transducer(i int) Vector3 {
	return d.transducer[i]
}

// ToLocal translates a global position into the device frame.
func (d *Device) ToLocal(p Vector3) Vector3 {
	return p.Sub(d.Origin)
}

// Geometry holds the device chain. The transducer grid per unit is fixed by
// the hardware: an 18 by 14 raster with three mounting holes skipped.
type Geometry struct {
	devices []Device
}

// New builds a geometry with one device per given origin, in bus order.
func New(origins []Vector3) *Geometry {
	g := &Geometry{devices: make([]Device, len(origins))}
	for i, o := range origins {
		g.devices[i] = Device{Origin: o, transducer: unitTransducers(o)}
	}
	return g
}

// isMissingTransducer reports the three raster positions without a
// transducer.
func isMissingTransducer(x, y int) bool {
	return y == 1 && (x == 1 || x == 2 || x == 16)
}

func unitTransducers(origin Vector3) []Vector3 {
	t := make([]Vector3, 0, driver.NumTransInUnit)
	for y := 0; y < driver.NumTransY; y++ {
		for x := 0; x < driver.NumTransX; x++ {
			if isMissingTransducer(x, y) {
				continue
			}
			t = append(t, origin.Add(Vector3{
				X: float64(x) * driver.TransSpacingMM,
				Y: float64(y) * driver.TransSpacingMM,
			}))
		}
	}
	return t
}

// NumDevices returns the device count.
func (g *Geometry) NumDevices() int {
	return len(g.devices)
}

// NumTransducers returns the transducer count across all devices.
func (g *Geometry) NumTransducers() int {
	return len(g.devices) * driver.NumTransInUnit
}

// Device returns the i-th device.
func (g *Geometry) Device(i int) *Device {
	return &g.devices[i]
}

// Center returns the arithmetic center of all transducers.
func (g *Geometry) Center() Vector3 {
	var c Vector3
	for i := range g.devices {
		for _, t := range g.devices[i].transducer {
			c = c.Add(t)
		}
	}
	n := float64(g.NumTransducers())
	return Vector3{c.X / n, c.Y / n, c.Z / n}
}

// deviceMap is the on-disk YAML format: a list of device origins in bus
// order.
type deviceMap struct {
	Devices []struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
		Z float64 `yaml:"z"`
	} `yaml:"devices"`
}

// LoadFile reads a device-map YAML file and builds the geometry.
func LoadFile(path string) (*Geometry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device map %s: %v", path, err)
	}
	return Load(raw)
}

// Load builds the geometry from device-map YAML bytes.
func Load(raw []byte) (*Geometry, error) {
	var m deviceMap
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse device map: %v", err)
	}
	if len(m.Devices) == 0 {
		return nil, fmt.Errorf("device map lists no devices")
	}

	origins := make([]Vector3, len(m.Devices))
	for i, d := range m.Devices {
		origins[i] = Vector3{d.X, d.Y, d.Z}
	}
	return New(origins), nil
}
