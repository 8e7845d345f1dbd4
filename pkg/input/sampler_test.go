package input

import (
	"sync"
	"testing"

	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

func TestSampler_KeyBindings(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		expected vehicle.InputState
	}{
		{"nothing", nil, vehicle.InputState{}},
		{"w", []string{"w"}, vehicle.InputState{Forward: true}},
		{"upper case W", []string{"W"}, vehicle.InputState{Forward: true}},
		{"arrow up", []string{"ArrowUp"}, vehicle.InputState{Forward: true}},
		{"s and a", []string{"S", "a"}, vehicle.InputState{Backward: true, Left: true}},
		{"arrow right", []string{"ARROWRIGHT"}, vehicle.InputState{Right: true}},
		{"unbound key", []string{"q"}, vehicle.InputState{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(nil)
			for _, key := range tt.keys {
				s.Press(key)
			}
			if got := s.Snapshot(); got != tt.expected {
				t.Errorf("Snapshot() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestSampler_PressReportsBinding(t *testing.T) {
	s := NewSampler(nil)
	if !s.Press("d") {
		t.Error("Press(d) reported unbound")
	}
	if s.Press("x") {
		t.Error("Press(x) reported bound")
	}
}

func TestSampler_ReleaseIsCaseInsensitive(t *testing.T) {
	s := NewSampler(nil)
	s.Press("w")
	s.Release("W")
	if got := s.Snapshot(); got.Forward {
		t.Error("forward still held after releasing W")
	}
}

func TestSampler_TwoKeysSameAction(t *testing.T) {
	s := NewSampler(nil)
	s.Press("w")
	s.Press("ArrowUp")
	s.Release("w")
	if !s.Snapshot().Forward {
		t.Error("forward released while ArrowUp still held")
	}
	s.Release("arrowup")
	if s.Snapshot().Forward {
		t.Error("forward held after both keys released")
	}
}

func TestSampler_SetAndApply(t *testing.T) {
	s := NewSampler(nil)
	s.Set(Left, true)
	s.Set(Action(42), true)
	if got := s.Snapshot(); got != (vehicle.InputState{Left: true}) {
		t.Errorf("Snapshot() = %+v", got)
	}

	s.Apply(vehicle.InputState{Forward: true, Right: true})
	if got := s.Snapshot(); got != (vehicle.InputState{Forward: true, Left: true, Right: true}) {
		t.Errorf("Snapshot() after Apply = %+v", got)
	}

	s.Press("a")
	s.ReleaseAll()
	if got := s.Snapshot(); got != (vehicle.InputState{}) {
		t.Errorf("Snapshot() after ReleaseAll = %+v", got)
	}
}

func TestSampler_SourcesDoNotClearEachOther(t *testing.T) {
	tests := []struct {
		name     string
		write    func(s *Sampler)
		expected vehicle.InputState
	}{
		{"buttons released keep script", func(s *Sampler) {
			s.Apply(vehicle.InputState{Forward: true, Left: true})
			for _, a := range []Action{Forward, Backward, Left, Right} {
				s.Set(a, false)
			}
		}, vehicle.InputState{Forward: true, Left: true}},
		{"script released keeps buttons", func(s *Sampler) {
			s.Set(Backward, true)
			s.Apply(vehicle.InputState{Right: true})
			s.Apply(vehicle.InputState{})
		}, vehicle.InputState{Backward: true}},
		{"script released keeps keys", func(s *Sampler) {
			s.Press("D")
			s.Apply(vehicle.InputState{Right: true, Forward: true})
			s.Apply(vehicle.InputState{})
		}, vehicle.InputState{Right: true}},
		{"sources combine", func(s *Sampler) {
			s.Press("w")
			s.Set(Left, true)
			s.Apply(vehicle.InputState{Backward: true})
		}, vehicle.InputState{Forward: true, Backward: true, Left: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(nil)
			tt.write(s)
			if got := s.Snapshot(); got != tt.expected {
				t.Errorf("Snapshot() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestSampler_CustomBindings(t *testing.T) {
	s := NewSampler(map[string]Action{"I": Forward, "K": Backward})
	s.Press("i")
	if !s.Snapshot().Forward {
		t.Error("custom binding not honoured")
	}
	if s.Press("w") {
		t.Error("default binding present in custom sampler")
	}
}

func TestSampler_Concurrent(t *testing.T) {
	s := NewSampler(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Press("w")
				s.Release("w")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	if s.Snapshot().Forward {
		t.Error("forward held after all releases")
	}
}

func TestAction_StringRoundTrip(t *testing.T) {
	for _, a := range []Action{Forward, Backward, Left, Right} {
		got, ok := ParseAction(a.String())
		if !ok || got != a {
			t.Errorf("ParseAction(%q) = %v, %v", a.String(), got, ok)
		}
	}
	if Action(9).String() != "unknown" {
		t.Error("unexpected name for invalid action")
	}
}
