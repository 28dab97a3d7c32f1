package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dotside-studios/davi-uhf-agent/bridge"
	"github.com/dotside-studios/davi-uhf-agent/buildinfo"
	"github.com/dotside-studios/davi-uhf-agent/protocol"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// toResponse renders a dispatch result for the wire.
func toResponse(id, command string, res bridge.Result) protocol.CommandResponse {
	switch {
	case res.OK():
		return protocol.Result(id, command, res.Value, res.Note)
	case res.IsNotImplemented():
		return protocol.NotImplemented(id, command)
	default:
		return protocol.Error(id, command, string(res.Failure.Kind), res.Failure.Message)
	}
}

// execute runs one decoded request through the dispatcher.
func (s *Server) execute(r *http.Request, req protocol.CommandRequest) protocol.CommandResponse {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if strings.TrimSpace(req.Command) == "" {
		return protocol.Error(req.ID, "", protocol.ErrCodeInvalidRequest, "command is required")
	}
	res := s.config.Dispatcher.Dispatch(r.Context(), bridge.NewCommand(req.Command, req.Arguments))
	return toResponse(req.ID, req.Command, res)
}

// handleCommand runs one command over plain HTTP (POST /api/v1/command).
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req protocol.CommandRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.Error("", "", protocol.ErrCodeParseError, "Invalid message format"))
		return
	}

	resp := s.execute(r, req)
	status := http.StatusOK
	switch resp.Type {
	case protocol.TypeNotImplemented:
		status = http.StatusNotFound
	case protocol.TypeError:
		if resp.Error.Code == protocol.ErrCodeInvalidRequest {
			status = http.StatusBadRequest
		} else {
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, resp)
}

// handleHealth reports the agent and reader state (GET /api/v1/health).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := protocol.HealthResponse{
		Status:  "ok",
		Version: buildinfo.Version,
		Mode:    s.config.Mode,
	}
	if d := s.config.Dispatcher; d != nil {
		resp.Session = d.Session().State().String()
		resp.Reader = d.Session().DriverName()
	}
	if st := s.config.Status; st != nil {
		resp.Streaming = st.Active()
		resp.Subscribed = st.HasSubscriber()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCACert serves the local CA so clients can trust the wss endpoint.
func (s *Server) handleCACert(w http.ResponseWriter, r *http.Request) {
	data, err := s.config.CACert()
	if err != nil {
		s.logger.Printf("Reading CA certificate failed: %v", err)
		http.Error(w, "CA certificate not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", "attachment; filename=\"davi-uhf-agent-ca.pem\"")
	w.Write(data)
}
