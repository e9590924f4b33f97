package gain

import (
	"math"
	"testing"

	"github.com/mfranke/soniclink/internal/driver"
	"github.com/mfranke/soniclink/internal/geometry"
)

func TestFocusCalc(t *testing.T) {
	geo := geometry.New([]geometry.Vector3{{}})

	g := NewFocus(geometry.Vector3{X: 90, Y: 70, Z: 150})
	drives, err := g.Calc(geo)
	if err != nil {
		t.Fatalf("calc failed: %v", err)
	}
	if len(drives) != geo.NumTransducers() {
		t.Fatalf("expected %d drives, got %d", geo.NumTransducers(), len(drives))
	}

	for i, d := range drives {
		if d.Amp != 1.0 {
			t.Fatalf("drive %d: expected full amplitude, got %f", i, d.Amp)
		}
		if d.Phase < 0 || d.Phase >= 2*math.Pi {
			t.Fatalf("drive %d: phase %f outside [0, 2pi)", i, d.Phase)
		}
	}
}

func TestFocusAmpOutOfRange(t *testing.T) {
	geo := geometry.New([]geometry.Vector3{{}})
	g := &Focus{Pos: geometry.Vector3{Z: 150}, Amp: 1.5}
	if _, err := g.Calc(geo); err == nil {
		t.Error("expected error for amplitude above 1")
	}
}

func TestUniformCalc(t *testing.T) {
	geo := geometry.New([]geometry.Vector3{{}, {X: 192}})

	g := &Uniform{Amp: 0.5, Phase: math.Pi}
	drives, err := g.Calc(geo)
	if err != nil {
		t.Fatalf("calc failed: %v", err)
	}
	if len(drives) != 2*driver.NumTransInUnit {
		t.Fatalf("expected %d drives, got %d", 2*driver.NumTransInUnit, len(drives))
	}
	for _, d := range drives {
		if d.Amp != 0.5 || d.Phase != math.Pi {
			t.Fatalf("unexpected drive: %+v", d)
		}
	}
}

func TestNullCalc(t *testing.T) {
	geo := geometry.New([]geometry.Vector3{{}})
	drives, err := Null{}.Calc(geo)
	if err != nil {
		t.Fatalf("calc failed: %v", err)
	}
	for _, d := range drives {
		if d.Amp != 0 {
			t.Fatal("null gain must produce zero amplitude")
		}
	}
}
