package protocol

// Response and event type constants
const (
	TypeResult         = "result"
	TypeError          = "error"
	TypeNotImplemented = "notImplemented"
	TypeStatus         = "status"
)

// Endpoint paths advertised to clients.
const (
	PathMethodChannel = "/ws"
	PathStatusChannel = "/ws/status"
	PathCommand       = "/api/v1/command"
	PathHealth        = "/api/v1/health"
)

// StatusMessage is pushed on the status channel for every snapshot.
type StatusMessage struct {
	Type    string        `json:"type"`
	Payload StatusPayload `json:"payload"`
}

// StatusPayload mirrors the reader's digital line summary.
type StatusPayload struct {
	Input   bool `json:"input"`
	Output  bool `json:"output"`
	Antenna bool `json:"antenna"`
}

// NewStatusMessage wraps a line summary as a status event.
func NewStatusMessage(input, output, antenna bool) StatusMessage {
	return StatusMessage{
		Type:    TypeStatus,
		Payload: StatusPayload{Input: input, Output: output, Antenna: antenna},
	}
}

// Result builds a successful response.
func Result(id, command string, value any, note string) CommandResponse {
	return CommandResponse{ID: id, Type: TypeResult, Command: command, Success: true, Value: value, Note: note}
}

// Error builds a failed response.
func Error(id, command, code, message string) CommandResponse {
	return CommandResponse{
		ID:      id,
		Type:    TypeError,
		Command: command,
		Error:   &ErrorBody{Code: code, Message: message},
	}
}

// NotImplemented builds the response for an unknown command.
func NotImplemented(id, command string) CommandResponse {
	return CommandResponse{
		ID:      id,
		Type:    TypeNotImplemented,
		Command: command,
		Error:   &ErrorBody{Code: ErrCodeNotImplemented, Message: "command " + command + " is not implemented"},
	}
}
