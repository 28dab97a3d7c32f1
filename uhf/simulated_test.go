package uhf

import (
	"regexp"
	"testing"
)

var fakeTagPattern = regexp.MustCompile(`^FAKE_TAG_\d{4}$`)

func TestSimulatedDriver_InventorySingleTag(t *testing.T) {
	d := NewSimulatedDriver(4)

	for i := 0; i < 100; i++ {
		tag, err := d.InventorySingleTag()
		if err != nil {
			t.Fatalf("InventorySingleTag() error: %v", err)
		}
		if tag == nil {
			t.Fatal("InventorySingleTag() returned no tag")
		}
		if !fakeTagPattern.MatchString(tag.EPC) {
			t.Fatalf("EPC %q does not match %s", tag.EPC, fakeTagPattern)
		}
	}
}

func TestSimulatedDriver_RandomRangeBounds(t *testing.T) {
	tests := []struct {
		name string
		roll int
		want string
	}{
		{"lowest", 0, "FAKE_TAG_1000"},
		{"highest", 8999, "FAKE_TAG_9999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSimulatedDriver(1)
			d.randIntN = func(n int) int {
				if n != 9000 {
					t.Fatalf("randIntN called with %d, want 9000", n)
				}
				return tt.roll
			}
			tag, _ := d.InventorySingleTag()
			if tag.EPC != tt.want {
				t.Errorf("EPC = %q, want %q", tag.EPC, tt.want)
			}
		})
	}
}

func TestSimulatedDriver_AcceptsEverything(t *testing.T) {
	d := NewSimulatedDriver(4)

	if ok, err := d.Init(); !ok || err != nil {
		t.Fatalf("Init() = %v, %v", ok, err)
	}
	if ok, err := d.WriteEPC("", ""); !ok || err != nil {
		t.Errorf("WriteEPC(empty) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := d.SetAntennaPower(2, PowerDisabledDBm); !ok || err != nil {
		t.Errorf("SetAntennaPower() = %v, %v", ok, err)
	}
	if got := d.Power(2); got != PowerDisabledDBm {
		t.Errorf("Power(ANT2) = %d, want %d", got, PowerDisabledDBm)
	}
	if ok, err := d.StartInventory(); !ok || err != nil {
		t.Errorf("StartInventory() = %v, %v", ok, err)
	}
	if ok, err := d.StopInventory(); !ok || err != nil {
		t.Errorf("StopInventory() = %v, %v", ok, err)
	}
	if err := d.Release(); err != nil {
		t.Errorf("Release() error: %v", err)
	}
	if err := d.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}
}

func TestSimulatedDriver_OutputsReflectInStatus(t *testing.T) {
	d := NewSimulatedDriver(4)

	if err := d.SetOutput(2, true); err != nil {
		t.Fatalf("SetOutput(2) error: %v", err)
	}
	if err := d.SetOutput(3, true); err == nil {
		t.Error("SetOutput(3) expected error for missing channel")
	}

	lines, err := d.ReadInputStatus()
	if err != nil {
		t.Fatalf("ReadInputStatus() error: %v", err)
	}

	got := make(map[string]bool)
	for _, l := range lines {
		got[l.Name] = l.Active
	}
	if got["OUT1"] || !got["OUT2"] {
		t.Errorf("outputs = OUT1:%v OUT2:%v, want false/true", got["OUT1"], got["OUT2"])
	}
	if !got["ANT1"] {
		t.Error("expected ANT1 to be reported connected")
	}
}

func TestSimulatedDriver_ListAntennas(t *testing.T) {
	d := NewSimulatedDriver(0)
	ants, err := d.ListAntennas()
	if err != nil {
		t.Fatalf("ListAntennas() error: %v", err)
	}
	if len(ants) != 4 {
		t.Fatalf("ListAntennas() returned %d, want default of 4", len(ants))
	}
	for i, a := range ants {
		if int(a.ID) != i+1 || a.PowerDBm != PowerEnabledDBm {
			t.Errorf("antenna %d = %+v", i, a)
		}
	}
}
