package reader18

import (
	"bytes"
	"testing"
)

// response builds a reader response frame for tests.
func response(command, status byte, data ...byte) []byte {
	return Encode(DefaultAddress, command, append([]byte{status}, data...))
}

// bitwiseMCRF4XX is a reference implementation used to cross-check the table.
func bitwiseMCRF4XX(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func TestChecksum(t *testing.T) {
	if got := Checksum([]byte("123456789")); got != 0x6F91 {
		t.Errorf("Checksum(check string) = 0x%04X, want 0x6F91", got)
	}

	inputs := [][]byte{
		{0x04, 0x00, 0x21},
		{0x04, 0xFF, 0x0F},
		{0x05, 0x00, 0x2F, 0x1E},
	}
	for _, in := range inputs {
		if got, want := Checksum(in), bitwiseMCRF4XX(in); got != want {
			t.Errorf("Checksum(% X) = 0x%04X, want 0x%04X", in, got, want)
		}
	}
}

func TestEncode(t *testing.T) {
	packet := GetReaderInfo(DefaultAddress)
	if len(packet) != 5 {
		t.Fatalf("GetReaderInfo length = %d, want 5", len(packet))
	}
	if packet[0] != 0x04 || packet[1] != 0x00 || packet[2] != CmdGetReaderInfo {
		t.Errorf("header = % X, want 04 00 21", packet[:3])
	}
	crc := bitwiseMCRF4XX(packet[:3])
	if packet[3] != byte(crc) || packet[4] != byte(crc>>8) {
		t.Errorf("CRC bytes = % X, want low byte first of 0x%04X", packet[3:], crc)
	}
	if !Valid(packet) {
		t.Error("Valid() rejected an encoded packet")
	}
}

func TestValidRejectsCorruption(t *testing.T) {
	packet := InventorySingle(DefaultAddress)
	packet[2] ^= 0x01
	if Valid(packet) {
		t.Error("Valid() accepted a packet with a flipped bit")
	}
	if Valid(packet[:3]) {
		t.Error("Valid() accepted a truncated packet")
	}
}

func TestDecode(t *testing.T) {
	t.Run("two frames with trailing partial", func(t *testing.T) {
		first := response(CmdSetOutputPower, StatusSuccess)
		second := response(CmdGetGPIO, StatusSuccess, GPIOIn1|GPIOOut2)
		partial := response(CmdGetReaderInfo, StatusSuccess, 1, 2, 3)[:4]

		stream := append(append(append([]byte{}, first...), second...), partial...)
		frames, rest := Decode(stream)

		if len(frames) != 2 {
			t.Fatalf("decoded %d frames, want 2", len(frames))
		}
		if frames[0].Command != CmdSetOutputPower || frames[1].Command != CmdGetGPIO {
			t.Errorf("commands = 0x%02X, 0x%02X", frames[0].Command, frames[1].Command)
		}
		if !bytes.Equal(frames[1].Data, []byte{GPIOIn1 | GPIOOut2}) {
			t.Errorf("GPIO data = % X", frames[1].Data)
		}
		if !bytes.Equal(rest, partial) {
			t.Errorf("rest = % X, want % X", rest, partial)
		}
	})

	t.Run("resync after garbage", func(t *testing.T) {
		good := response(CmdSetAntennaMux, StatusSuccess)
		stream := append([]byte{0x01, 0x02, 0x03}, good...)

		frames, rest := Decode(stream)
		if len(frames) != 1 || frames[0].Command != CmdSetAntennaMux {
			t.Fatalf("frames = %+v, want one antenna-mux frame", frames)
		}
		if len(rest) != 0 {
			t.Errorf("rest = % X, want empty", rest)
		}
	})

	t.Run("corrupt crc yields no frame", func(t *testing.T) {
		bad := response(CmdSetGPIO, StatusSuccess, 0x04)
		bad[len(bad)-1] ^= 0xFF

		frames, _ := Decode(bad)
		if len(frames) != 0 {
			t.Fatalf("frames = %+v, want none", frames)
		}
	})
}

func TestSetOutputPower(t *testing.T) {
	if _, err := SetOutputPower(DefaultAddress, 31); err == nil {
		t.Error("SetOutputPower(31) expected range error")
	}
	packet, err := SetOutputPower(DefaultAddress, 30)
	if err != nil {
		t.Fatalf("SetOutputPower(30) error: %v", err)
	}
	if packet[3] != 30 {
		t.Errorf("power byte = %d, want 30", packet[3])
	}
}

func TestSetGPIOMasksInputs(t *testing.T) {
	packet := SetGPIO(DefaultAddress, 0xFF)
	if packet[3] != GPIOOut1|GPIOOut2 {
		t.Errorf("GPIO byte = 0x%02X, want only output bits", packet[3])
	}
}

func TestWriteEPC(t *testing.T) {
	current := []byte{0xE2, 0x00, 0x00, 0x17}
	next := []byte{0x30, 0x00, 0x11, 0x22, 0x33, 0x44}
	pwd := [4]byte{0, 0, 0, 0}

	packet, err := WriteEPC(DefaultAddress, current, next, pwd)
	if err != nil {
		t.Fatalf("WriteEPC() error: %v", err)
	}
	if !Valid(packet) || packet[2] != CmdWriteData {
		t.Fatalf("packet % X is not a valid write-data command", packet)
	}

	payload := packet[3 : len(packet)-2]
	wantPrefix := []byte{4, 2, 0xE2, 0x00, 0x00, 0x17, BankEPC, 0x01, 0x18, 0x00}
	if !bytes.HasPrefix(payload, wantPrefix) {
		t.Errorf("payload prefix = % X, want % X", payload[:len(wantPrefix)], wantPrefix)
	}
	if !bytes.HasSuffix(payload, append(next, pwd[:]...)) {
		t.Errorf("payload suffix = % X", payload)
	}

	tests := []struct {
		name    string
		current []byte
		next    []byte
	}{
		{"empty current", nil, next},
		{"empty next", current, nil},
		{"odd current", []byte{0x01, 0x02, 0x03}, next},
		{"odd next", current, []byte{0x01}},
		{"too long", current, make([]byte, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := WriteEPC(DefaultAddress, tt.current, tt.next, pwd); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseSingleInventory(t *testing.T) {
	epc := []byte{0xE2, 0x00, 0x00, 0x17, 0x22, 0x11}

	tests := []struct {
		name      string
		frame     []byte
		wantFound bool
		wantErr   bool
	}{
		{"tag found", response(CmdInventorySingle, StatusInventoryDone, append([]byte{0x01, 0x01, byte(len(epc))}, epc...)...), true, false},
		{"no tag", response(CmdInventorySingle, StatusNoTagOrTimeout), false, false},
		{"zero count", response(CmdInventorySingle, StatusInventoryDone, 0x01, 0x00, 0x00), false, false},
		{"antenna error", response(CmdInventorySingle, StatusAntennaError), false, true},
		{"truncated epc", response(CmdInventorySingle, StatusInventoryDone, 0x01, 0x01, 0x0C, 0xE2), false, true},
		{"wrong command", response(CmdGetGPIO, StatusSuccess, 0x00), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, _ := Decode(tt.frame)
			if len(frames) != 1 {
				t.Fatalf("decoded %d frames", len(frames))
			}
			res, found, err := ParseSingleInventory(frames[0])
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if found && !bytes.Equal(res.EPC, epc) {
				t.Errorf("EPC = % X, want % X", res.EPC, epc)
			}
		})
	}
}

func TestParseReaderInfo(t *testing.T) {
	frames, _ := Decode(response(CmdGetReaderInfo, StatusSuccess, 0x03, 0x10, 0x08, 0x03, 0x3E, 0x00, 0x1E, 0x0A))
	info, err := ParseReaderInfo(frames[0])
	if err != nil {
		t.Fatalf("ParseReaderInfo() error: %v", err)
	}
	if info.Version != 0x0310 || info.PowerDBm != 30 || info.ScanTime100 != 10 {
		t.Errorf("info = %+v", info)
	}

	frames, _ = Decode(response(CmdGetReaderInfo, StatusSuccess, 0x03))
	if _, err := ParseReaderInfo(frames[0]); err == nil {
		t.Error("expected error for short payload")
	}
}

func TestExpect(t *testing.T) {
	frames, _ := Decode(response(CmdSetWorkMode, StatusCmdError))
	if err := Expect(frames[0], CmdSetWorkMode); err == nil {
		t.Error("Expect() accepted a failure status")
	}
	if err := Expect(frames[0], CmdSetGPIO); err == nil {
		t.Error("Expect() accepted a mismatched command")
	}
}
