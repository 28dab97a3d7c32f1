package bridge

import (
	"errors"
	"testing"

	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

func TestSnapshotFromLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []uhf.LineState
		want  StatusSnapshot
	}{
		{"no lines", nil, StatusSnapshot{}},
		{
			"one active per kind",
			[]uhf.LineState{
				{Name: "IN1", Kind: uhf.LineInput, Active: false},
				{Name: "IN2", Kind: uhf.LineInput, Active: true},
				{Name: "OUT1", Kind: uhf.LineOutput, Active: true},
				{Name: "ANT1", Kind: uhf.LineAntenna, Active: true},
			},
			allOn,
		},
		{
			"inactive lines",
			[]uhf.LineState{
				{Name: "IN1", Kind: uhf.LineInput},
				{Name: "OUT1", Kind: uhf.LineOutput},
				{Name: "ANT1", Kind: uhf.LineAntenna, Active: true},
			},
			StatusSnapshot{Antenna: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SnapshotFromLines(tt.lines); got != tt.want {
				t.Errorf("SnapshotFromLines() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToggleSource(t *testing.T) {
	s := NewToggleSource()
	s.Reset()

	if snap, ok := s.Initial(); !ok || snap != allOn {
		t.Fatalf("Initial() = %+v, %v", snap, ok)
	}
	for i, want := range []StatusSnapshot{outOnly, inAnt, outOnly} {
		if got, _ := s.Next(); got != want {
			t.Errorf("Next() #%d = %+v, want %+v", i+1, got, want)
		}
	}

	s.Reset()
	if got, _ := s.Next(); got != outOnly {
		t.Errorf("Next() after Reset = %+v, want %+v", got, outOnly)
	}
}

func TestPollingSource(t *testing.T) {
	mock := uhf.NewMockDriver()
	mock.Lines = []uhf.LineState{
		{Name: "IN1", Kind: uhf.LineInput, Active: true},
		{Name: "ANT1", Kind: uhf.LineAntenna, Active: true},
	}
	session := uhf.NewSession(func() (uhf.Driver, error) { return mock, nil }, quietLogger)
	src := NewPollingSource(session, quietLogger)

	if _, ok := src.Initial(); ok {
		t.Error("Initial() produced a snapshot")
	}

	t.Run("not initialized skips", func(t *testing.T) {
		if _, ok := src.Next(); ok {
			t.Error("Next() before init produced a snapshot")
		}
		if n := mock.CallCount("ReadInputStatus"); n != 0 {
			t.Errorf("driver polled %d times before init", n)
		}
	})

	if _, err := session.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	t.Run("forwards lines", func(t *testing.T) {
		snap, ok := src.Next()
		if !ok {
			t.Fatal("Next() skipped a successful poll")
		}
		if want := (StatusSnapshot{Input: true, Antenna: true}); snap != want {
			t.Errorf("Next() = %+v, want %+v", snap, want)
		}
	})

	t.Run("error skips", func(t *testing.T) {
		mock.StatusError = errors.New("link down")
		defer func() { mock.StatusError = nil }()
		if _, ok := src.Next(); ok {
			t.Error("Next() produced a snapshot on poll error")
		}
	})
}

func TestBroadcaster_PollingSourceStream(t *testing.T) {
	mock := uhf.NewMockDriver()
	mock.Lines = []uhf.LineState{{Name: "OUT1", Kind: uhf.LineOutput, Active: true}}
	session := uhf.NewSession(func() (uhf.Driver, error) { return mock, nil }, quietLogger)
	if _, err := session.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	b, clock := newTestBroadcaster(NewPollingSource(session, quietLogger))
	sink, ch := channelSink()
	id, err := b.Subscribe(sink)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer b.Unsubscribe(id)

	expectNoSnapshot(t, ch)
	clock.Advance(testInterval)
	expectSnapshot(t, ch, StatusSnapshot{Output: true})

	if err := session.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	clock.Advance(testInterval)
	expectNoSnapshot(t, ch)
}
