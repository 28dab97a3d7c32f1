package protocol

import (
	"encoding/json"
	"testing"
)

func TestCommandResponse_JSON(t *testing.T) {
	tests := []struct {
		name string
		resp CommandResponse
		want string
	}{
		{
			"result keeps false value",
			Result("1", "writeTag", false, ""),
			`{"id":"1","type":"result","command":"writeTag","success":true,"value":false}`,
		},
		{
			"result keeps empty string",
			Result("2", "readTag", "", ""),
			`{"id":"2","type":"result","command":"readTag","success":true,"value":""}`,
		},
		{
			"result with note",
			Result("3", "setRfPower", false, "no antenna named \"ANT99\""),
			`{"id":"3","type":"result","command":"setRfPower","success":true,"value":false,"note":"no antenna named \"ANT99\""}`,
		},
		{
			"error",
			Error("4", "readTag", ErrCodeNativeException, "Native exception: boom"),
			`{"id":"4","type":"error","command":"readTag","success":false,"error":{"code":"NATIVE_EXCEPTION","message":"Native exception: boom"}}`,
		},
		{
			"not implemented",
			NotImplemented("5", "foo"),
			`{"id":"5","type":"notImplemented","command":"foo","success":false,"error":{"code":"NOT_IMPLEMENTED","message":"command foo is not implemented"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got  %s\nwant %s", data, tt.want)
			}
		})
	}
}

func TestCommandRequest_Decode(t *testing.T) {
	var req CommandRequest
	raw := `{"id":"abc","command":"setRfPower","arguments":{"antenna":2,"enabled":false}}`
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if req.ID != "abc" || req.Command != "setRfPower" {
		t.Errorf("request = %+v", req)
	}
	if req.Arguments["antenna"] != float64(2) || req.Arguments["enabled"] != false {
		t.Errorf("arguments = %v", req.Arguments)
	}
}

func TestStatusMessage_JSON(t *testing.T) {
	data, err := json.Marshal(NewStatusMessage(true, false, true))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"type":"status","payload":{"input":true,"output":false,"antenna":true}}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}
