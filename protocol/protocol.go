// Package protocol defines the JSON messages exchanged with UHF agent
// clients. It is importable without pulling in server dependencies.
package protocol

// CommandRequest is one command sent over the method channel or posted to
// the HTTP command endpoint.
type CommandRequest struct {
	// ID correlates the response. The server assigns one when it is empty.
	ID string `json:"id,omitempty"`

	// Command is the reader command name, e.g. "readTag" or "setRfPower".
	Command string `json:"command"`

	// Arguments holds the named command arguments, e.g. "currentEpc".
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CommandResponse answers exactly one CommandRequest.
type CommandResponse struct {
	ID      string     `json:"id,omitempty"`
	Type    string     `json:"type"`
	Command string     `json:"command,omitempty"`
	Success bool       `json:"success"`
	Value   any        `json:"value,omitempty"`
	Note    string     `json:"note,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes why a command failed.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorBody.Code
const (
	ErrCodeNativeException = "NATIVE_EXCEPTION"
	ErrCodeNotImplemented  = "NOT_IMPLEMENTED"
	ErrCodeParseError      = "PARSE_ERROR"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
)

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Mode       string `json:"mode"`
	Session    string `json:"session"`
	Reader     string `json:"reader,omitempty"`
	Streaming  bool   `json:"streaming"`
	Subscribed bool   `json:"subscribed"`
}
