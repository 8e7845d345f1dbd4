package engo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opd-ai/go-drivesim/pkg/input"
	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

type fakeButtons struct {
	down    map[string]bool
	pressed map[string]bool
}

func (f fakeButtons) Down(name string) bool        { return f.down[name] }
func (f fakeButtons) JustPressed(name string) bool { return f.pressed[name] }

type fakeControls struct {
	next   int
	resets int
	err    error
}

func (f *fakeControls) NextTrack(context.Context) (string, error) {
	f.next++
	return "silverstone", f.err
}

func (f *fakeControls) Reset(context.Context) { f.resets++ }

func newTestInputSystem(buttons fakeButtons, controls *fakeControls) (*InputSystem, *input.Sampler, *int) {
	sampler := input.NewSampler(nil)
	is := NewInputSystem(context.Background(), sampler, controls, nil)
	is.buttons = buttons
	quits := 0
	is.quit = func() { quits++ }
	return is, sampler, &quits
}

func TestInputSystem_DriveButtons(t *testing.T) {
	tests := []struct {
		name     string
		down     map[string]bool
		expected vehicle.InputState
	}{
		{"none", nil, vehicle.InputState{}},
		{"forward", map[string]bool{ButtonForward: true}, vehicle.InputState{Forward: true}},
		{"reverse and right", map[string]bool{ButtonBackward: true, ButtonRight: true}, vehicle.InputState{Backward: true, Right: true}},
		{"all", map[string]bool{ButtonForward: true, ButtonBackward: true, ButtonLeft: true, ButtonRight: true},
			vehicle.InputState{Forward: true, Backward: true, Left: true, Right: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, sampler, _ := newTestInputSystem(fakeButtons{down: tt.down}, &fakeControls{})
			is.Update(1.0 / 60)
			if got := sampler.Snapshot(); got != tt.expected {
				t.Errorf("Snapshot() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestInputSystem_ReleasesButtons(t *testing.T) {
	buttons := fakeButtons{down: map[string]bool{ButtonForward: true}}
	is, sampler, _ := newTestInputSystem(buttons, &fakeControls{})
	is.Update(0)
	buttons.down[ButtonForward] = false
	is.Update(0)
	if sampler.Snapshot().Forward {
		t.Error("forward still held after button release")
	}
}

func TestInputSystem_Commands(t *testing.T) {
	controls := &fakeControls{}
	is, _, quits := newTestInputSystem(fakeButtons{pressed: map[string]bool{
		ButtonNextTrack: true,
		ButtonReset:     true,
		ButtonQuit:      true,
	}}, controls)

	is.Update(0)
	if controls.next != 1 || controls.resets != 1 || *quits != 1 {
		t.Errorf("next=%d resets=%d quits=%d, expected 1 each", controls.next, controls.resets, *quits)
	}
}

func TestInputSystem_NextTrackErrorIsLogged(t *testing.T) {
	controls := &fakeControls{err: errors.New("no barriers")}
	is, _, _ := newTestInputSystem(fakeButtons{pressed: map[string]bool{ButtonNextTrack: true}}, controls)
	is.Update(0)
	if controls.next != 1 {
		t.Errorf("NextTrack calls = %d", controls.next)
	}
}

func TestInputSystem_PollKeepsScriptedInput(t *testing.T) {
	buttons := fakeButtons{down: map[string]bool{}}
	is, sampler, _ := newTestInputSystem(buttons, &fakeControls{})

	sampler.Apply(vehicle.InputState{Forward: true, Left: true})
	is.Update(1.0 / 60)
	if got := sampler.Snapshot(); got != (vehicle.InputState{Forward: true, Left: true}) {
		t.Fatalf("Snapshot() after poll = %+v, expected scripted forward and left", got)
	}

	buttons.down[ButtonRight] = true
	is.Update(1.0 / 60)
	if got := sampler.Snapshot(); got != (vehicle.InputState{Forward: true, Left: true, Right: true}) {
		t.Errorf("Snapshot() with key held = %+v", got)
	}

	sampler.Apply(vehicle.InputState{})
	is.Update(1.0 / 60)
	if got := sampler.Snapshot(); got != (vehicle.InputState{Right: true}) {
		t.Errorf("Snapshot() after script ends = %+v, expected held right only", got)
	}
}

func TestInputSystem_ScriptPlaysAlongsidePolling(t *testing.T) {
	is, sampler, _ := newTestInputSystem(fakeButtons{}, &fakeControls{})
	script, err := input.ParseScript("forward:1s")
	if err != nil {
		t.Fatalf("ParseScript() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- script.Play(ctx, sampler) }()

	deadline := time.Now().Add(time.Second)
	for !sampler.Snapshot().Forward && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		is.Update(1.0 / 60)
	}
	if !sampler.Snapshot().Forward {
		t.Error("scripted forward lost while the input system polls")
	}

	cancel()
	<-done
	if sampler.Snapshot().Forward {
		t.Error("scripted forward still held after the script stopped")
	}
}
