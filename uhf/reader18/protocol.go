// Package reader18 encodes and decodes the UHFReader18 serial frame
// protocol spoken by common fixed UHF readers over RS-232 and TCP.
//
// Every frame is Len(1) Adr(1) Cmd(1) Data(n) CRC_L(1) CRC_H(1), where Len
// counts every byte after itself and the CRC is CRC-16/MCRF4XX over
// Len..Data. Response frames carry a status byte as the first data byte.
package reader18

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

// Command codes.
const (
	CmdWriteData       byte = 0x03
	CmdInventorySingle byte = 0x0F
	CmdGetReaderInfo   byte = 0x21
	CmdSetOutputPower  byte = 0x2F
	CmdSetWorkMode     byte = 0x35
	CmdSetAntennaMux   byte = 0x3F
	CmdSetGPIO         byte = 0x46
	CmdGetGPIO         byte = 0x47
)

// Response status codes.
const (
	StatusSuccess        byte = 0x00
	StatusInventoryDone  byte = 0x01
	StatusAntennaError   byte = 0xF8
	StatusNoTagOrTimeout byte = 0xFB
	StatusCmdError       byte = 0xFE
	StatusCRCError       byte = 0xFF
)

// Reader addresses.
const (
	DefaultAddress   byte = 0x00
	BroadcastAddress byte = 0xFF
)

// Work modes for CmdSetWorkMode.
const (
	WorkModeAnswer byte = 0x00
	WorkModeActive byte = 0x01
)

// Memory banks for CmdWriteData.
const (
	BankReserved byte = 0x00
	BankEPC      byte = 0x01
	BankTID      byte = 0x02
	BankUser     byte = 0x03
)

// GPIO bit layout for CmdSetGPIO and CmdGetGPIO.
const (
	GPIOIn1  byte = 1 << 0
	GPIOIn2  byte = 1 << 1
	GPIOOut1 byte = 1 << 2
	GPIOOut2 byte = 1 << 3
)

const minFrameLen = 5 // Len Adr Cmd CRC_L CRC_H

var crcTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Checksum returns the CRC-16/MCRF4XX of b.
func Checksum(b []byte) uint16 {
	return crc16.Checksum(b, crcTable)
}

// Frame is one decoded response.
type Frame struct {
	Address byte
	Command byte
	Status  byte
	Data    []byte
}

// Encode builds the wire bytes for a command.
func Encode(address, command byte, payload []byte) []byte {
	packet := make([]byte, 0, len(payload)+minFrameLen)
	packet = append(packet, byte(len(payload)+4), address, command)
	packet = append(packet, payload...)
	return binary.LittleEndian.AppendUint16(packet, Checksum(packet))
}

// Valid reports whether packet is exactly one frame with a correct CRC.
func Valid(packet []byte) bool {
	if len(packet) < minFrameLen || int(packet[0])+1 != len(packet) {
		return false
	}
	body := packet[:len(packet)-2]
	return binary.LittleEndian.Uint16(packet[len(packet)-2:]) == Checksum(body)
}

// Decode extracts every complete response frame from stream and returns
// the bytes left over for the next read. Garbage and corrupt frames are
// skipped one byte at a time until the stream resynchronizes.
func Decode(stream []byte) (frames []Frame, rest []byte) {
	buf := stream
	for len(buf) >= minFrameLen+1 {
		total := int(buf[0]) + 1
		if total < minFrameLen+1 {
			buf = buf[1:]
			continue
		}
		if total > len(buf) {
			break
		}
		if !Valid(buf[:total]) {
			buf = buf[1:]
			continue
		}

		data := make([]byte, total-minFrameLen-1)
		copy(data, buf[4:total-2])
		frames = append(frames, Frame{
			Address: buf[1],
			Command: buf[2],
			Status:  buf[3],
			Data:    data,
		})
		buf = buf[total:]
	}

	rest = make([]byte, len(buf))
	copy(rest, buf)
	return frames, rest
}

// GetReaderInfo queries firmware version, type and power.
func GetReaderInfo(address byte) []byte {
	return Encode(address, CmdGetReaderInfo, nil)
}

// InventorySingle runs one inventory round returning at most one tag.
func InventorySingle(address byte) []byte {
	return Encode(address, CmdInventorySingle, nil)
}

// SetOutputPower sets transmit power in dBm (0-30).
func SetOutputPower(address byte, dbm int) ([]byte, error) {
	if dbm < 0 || dbm > 30 {
		return nil, fmt.Errorf("output power %d dBm out of range 0-30", dbm)
	}
	return Encode(address, CmdSetOutputPower, []byte{byte(dbm)}), nil
}

// SetAntennaMux enables the antennas whose bits are set in mask, bit 0 for
// ANT1 through bit 7 for ANT8.
func SetAntennaMux(address, mask byte) []byte {
	return Encode(address, CmdSetAntennaMux, []byte{mask})
}

// SetWorkMode switches between answer mode (host polls) and active mode
// (reader inventories on its own and pushes EPC frames).
func SetWorkMode(address, mode byte) []byte {
	// Mode, mode state, inventory bank (EPC), first word, word count, tag hold time.
	return Encode(address, CmdSetWorkMode, []byte{mode, 0x00, BankEPC, 0x00, 0x01, 0x00})
}

// SetGPIO drives the output lines; only GPIOOut1 and GPIOOut2 are honoured.
func SetGPIO(address, bits byte) []byte {
	return Encode(address, CmdSetGPIO, []byte{bits & (GPIOOut1 | GPIOOut2)})
}

// GetGPIO samples the input and output lines.
func GetGPIO(address byte) []byte {
	return Encode(address, CmdGetGPIO, nil)
}

// WriteEPC rewrites the EPC of the tag whose EPC is current. It writes the
// PC word together with the new EPC so the EPC length may change. Both EPCs
// must be a whole number of 16-bit words.
func WriteEPC(address byte, current, next []byte, password [4]byte) ([]byte, error) {
	if len(current) == 0 || len(current)%2 != 0 {
		return nil, fmt.Errorf("current EPC must be a non-empty whole number of words, got %d bytes", len(current))
	}
	if len(next) == 0 || len(next)%2 != 0 {
		return nil, fmt.Errorf("new EPC must be a non-empty whole number of words, got %d bytes", len(next))
	}
	if len(next) > 62 {
		return nil, fmt.Errorf("new EPC of %d bytes exceeds 31 words", len(next))
	}

	words := len(next) / 2
	pc := uint16(words) << 11

	payload := make([]byte, 0, 2+len(current)+3+2+len(next)+4)
	payload = append(payload, byte(words+1), byte(len(current)/2))
	payload = append(payload, current...)
	payload = append(payload, BankEPC, 0x01) // word 1 is the PC word
	payload = binary.BigEndian.AppendUint16(payload, pc)
	payload = append(payload, next...)
	payload = append(payload, password[:]...)
	return Encode(address, CmdWriteData, payload), nil
}

// Expect checks that f answers command and carries a success status.
func Expect(f Frame, command byte) error {
	if f.Command != command {
		return fmt.Errorf("unexpected response to command 0x%02X: got 0x%02X", command, f.Command)
	}
	if f.Status != StatusSuccess {
		return fmt.Errorf("command 0x%02X failed with status 0x%02X", command, f.Status)
	}
	return nil
}

// SingleInventory is a decoded CmdInventorySingle response.
type SingleInventory struct {
	Antenna  byte
	TagCount int
	EPC      []byte
}

// ParseSingleInventory decodes a CmdInventorySingle response. found is
// false, with no error, when the reader saw no tag.
func ParseSingleInventory(f Frame) (result SingleInventory, found bool, err error) {
	if f.Command != CmdInventorySingle {
		return SingleInventory{}, false, fmt.Errorf("not a single-inventory frame: 0x%02X", f.Command)
	}
	switch f.Status {
	case StatusNoTagOrTimeout:
		return SingleInventory{}, false, nil
	case StatusInventoryDone, StatusSuccess:
	default:
		return SingleInventory{}, false, fmt.Errorf("single inventory failed with status 0x%02X", f.Status)
	}

	// Ant(1) Num(1) EPCLen(1) EPC(n)
	if len(f.Data) < 3 {
		return SingleInventory{}, false, nil
	}
	count := int(f.Data[1])
	epcLen := int(f.Data[2])
	if count == 0 || epcLen == 0 {
		return SingleInventory{}, false, nil
	}
	if len(f.Data) < 3+epcLen {
		return SingleInventory{}, false, fmt.Errorf("single inventory EPC length %d exceeds payload", epcLen)
	}

	epc := make([]byte, epcLen)
	copy(epc, f.Data[3:3+epcLen])
	return SingleInventory{Antenna: f.Data[0], TagCount: count, EPC: epc}, true, nil
}

// ReaderInfo is a decoded CmdGetReaderInfo response.
type ReaderInfo struct {
	Version     uint16
	Type        byte
	Protocols   byte
	MaxFreq     byte
	MinFreq     byte
	PowerDBm    byte
	ScanTime100 byte
}

// ParseReaderInfo decodes a CmdGetReaderInfo response.
func ParseReaderInfo(f Frame) (ReaderInfo, error) {
	if err := Expect(f, CmdGetReaderInfo); err != nil {
		return ReaderInfo{}, err
	}
	if len(f.Data) < 8 {
		return ReaderInfo{}, fmt.Errorf("reader info payload too short: %d bytes", len(f.Data))
	}
	return ReaderInfo{
		Version:     binary.BigEndian.Uint16(f.Data[0:2]),
		Type:        f.Data[2],
		Protocols:   f.Data[3],
		MaxFreq:     f.Data[4],
		MinFreq:     f.Data[5],
		PowerDBm:    f.Data[6],
		ScanTime100: f.Data[7],
	}, nil
}

// ParseGPIO decodes a CmdGetGPIO or CmdSetGPIO response into its bit field.
func ParseGPIO(f Frame) (byte, error) {
	if f.Command != CmdGetGPIO && f.Command != CmdSetGPIO {
		return 0, fmt.Errorf("not a GPIO frame: 0x%02X", f.Command)
	}
	if f.Status != StatusSuccess {
		return 0, fmt.Errorf("GPIO command failed with status 0x%02X", f.Status)
	}
	if len(f.Data) < 1 {
		return 0, nil
	}
	return f.Data[0], nil
}
