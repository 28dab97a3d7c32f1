// Package bridge turns discrete commands into reader operations and streams
// reader status to a single listener. It is transport agnostic: the server
// package carries commands and snapshots over WebSocket and HTTP.
package bridge

import (
	"encoding/json"
	"strconv"
)

// Command names understood by the dispatcher.
const (
	CmdInitializeReader        = "initializeReader"
	CmdReadTag                 = "readTag"
	CmdReadSingleTag           = "readSingleTag"
	CmdWriteTag                = "writeTag"
	CmdWriteTagData            = "writeTagData"
	CmdSetAntennaConfiguration = "setAntennaConfiguration"
	CmdSetRfPower              = "setRfPower"
	CmdReadGpioValues          = "readGpioValues"
	CmdReleaseReader           = "releaseReader"
	CmdOutput1On               = "output1On"
	CmdOutput1Off              = "output1Off"
	CmdOutput2On               = "output2On"
	CmdOutput2Off              = "output2Off"
	CmdStartReading            = "startReading"
	CmdStopReading             = "stopReading"
)

// Argument keys.
const (
	ArgCurrentEPC = "currentEpc"
	ArgNewEPC     = "newEpc"
	ArgTagID      = "tagId"
	ArgAntenna    = "antenna"
	ArgEnabled    = "enabled"
)

// Command is one named invocation with its arguments.
type Command struct {
	Name string
	Args map[string]any
}

// NewCommand builds a Command; args may be nil.
func NewCommand(name string, args map[string]any) Command {
	return Command{Name: name, Args: args}
}

// Has reports whether key was supplied.
func (c Command) Has(key string) bool {
	_, ok := c.Args[key]
	return ok
}

// String returns the string argument key, or def if it is missing or not a string.
func (c Command) String(key, def string) string {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return def
	}
}

// Int returns the integer argument key. JSON numbers and numeric strings
// are accepted; anything else yields def.
func (c Command) Int(key string, def int) int {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if n != float64(int(n)) {
			return def
		}
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}

// Bool returns the boolean argument key, or def if it is missing or malformed.
func (c Command) Bool(key string, def bool) bool {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}
