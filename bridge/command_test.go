package bridge

import (
	"encoding/json"
	"testing"
)

func TestCommand_String(t *testing.T) {
	cmd := NewCommand(CmdWriteTag, map[string]any{
		"s":   "E200",
		"n":   json.Number("42"),
		"bad": 12.5,
		"nil": nil,
	})

	tests := []struct {
		key  string
		want string
	}{
		{"s", "E200"},
		{"n", "42"},
		{"bad", "def"},
		{"nil", "def"},
		{"missing", "def"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := cmd.String(tt.key, "def"); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestCommand_Int(t *testing.T) {
	cmd := NewCommand(CmdSetRfPower, map[string]any{
		"int":     3,
		"float":   float64(2),
		"frac":    1.5,
		"number":  json.Number("7"),
		"string":  "5",
		"garbage": "five",
		"bool":    true,
	})

	tests := []struct {
		key  string
		want int
	}{
		{"int", 3},
		{"float", 2},
		{"frac", -1},
		{"number", 7},
		{"string", 5},
		{"garbage", -1},
		{"bool", -1},
		{"missing", -1},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := cmd.Int(tt.key, -1); got != tt.want {
				t.Errorf("Int(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestCommand_Bool(t *testing.T) {
	cmd := NewCommand(CmdSetRfPower, map[string]any{
		"t":      true,
		"f":      false,
		"str":    "false",
		"number": 1,
	})

	tests := []struct {
		key  string
		want bool
	}{
		{"t", true},
		{"f", false},
		{"str", false},
		{"number", true},
		{"missing", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := cmd.Bool(tt.key, true); got != tt.want {
				t.Errorf("Bool(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestCommand_NilArgs(t *testing.T) {
	cmd := NewCommand(CmdReadTag, nil)
	if cmd.Has(ArgAntenna) {
		t.Error("Has() = true on nil args")
	}
	if got := cmd.Int(ArgAntenna, 1); got != 1 {
		t.Errorf("Int() = %d, want default", got)
	}
}
