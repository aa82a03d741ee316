package vehicle

import (
	"math"
	"testing"
)

func TestSmoother_FirstSampleSeeds(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25})

	if y := s.Update("rpm", 3000); y != 3000 {
		t.Errorf("first sample: expected 3000, got %v", y)
	}
}

func TestSmoother_EMAStep(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25})

	s.Update("rpm", 1000)
	y := s.Update("rpm", 2000)
	// 0.25*2000 + 0.75*1000 = 1250
	if y != 1250 {
		t.Errorf("expected 1250, got %v", y)
	}
}

func TestSmoother_ConvergesWithoutOvershoot(t *testing.T) {
	s := NewSmoother(map[string]float64{"speed": 0.15})

	s.Update("speed", 0)
	var y float64
	for i := 0; i < 100; i++ {
		prev := y
		y = s.Update("speed", 120)
		if y > 120 {
			t.Fatalf("step %d: overshoot to %v", i, y)
		}
		if y < prev {
			t.Fatalf("step %d: non-monotonic %v -> %v", i, prev, y)
		}
	}
	if math.Abs(y-120) > 1 {
		t.Errorf("expected convergence within 1 unit, got %v", y)
	}
}

func TestSmoother_ConstantInputIsIdentity(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25})

	for i := 0; i < 10; i++ {
		if y := s.Update("rpm", 3000); y != 3000 {
			t.Fatalf("step %d: expected 3000, got %v", i, y)
		}
	}
}

func TestSmoother_PassThrough(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25})

	s.Update("fuel", 10)
	if y := s.Update("fuel", 90); y != 90 {
		t.Errorf("unconfigured channel must pass through, got %v", y)
	}
}

func TestSmoother_InvalidAlphaIgnored(t *testing.T) {
	s := NewSmoother(map[string]float64{"a": 0, "b": -0.5, "c": 1.5})

	for _, ch := range []string{"a", "b", "c"} {
		s.Update(ch, 1)
		if y := s.Update(ch, 100); y != 100 {
			t.Errorf("channel %s: invalid alpha should pass through, got %v", ch, y)
		}
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25})

	s.Update("rpm", 1000)
	s.Reset("rpm")
	if y := s.Update("rpm", 5000); y != 5000 {
		t.Errorf("expected reseed after reset, got %v", y)
	}
}

func TestSmoother_IndependentChannels(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25, "fuel": 0.5})

	s.Update("rpm", 1000)
	s.Update("fuel", 40)

	if y := s.Update("rpm", 2000); y != 1250 {
		t.Errorf("rpm: expected 1250, got %v", y)
	}
	if y := s.Update("fuel", 60); y != 50 {
		t.Errorf("fuel: expected 50, got %v", y)
	}
}

func TestSmoother_Designated(t *testing.T) {
	s := NewSmoother(map[string]float64{"rpm": 0.25, "bad": 1.5})

	if !s.Designated("rpm") {
		t.Error("rpm should be designated")
	}
	if s.Designated("fuel") {
		t.Error("fuel should not be designated")
	}
	if s.Designated("bad") {
		t.Error("out of range alpha should not designate the channel")
	}
}
