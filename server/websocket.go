package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dotside-studios/davi-uhf-agent/bridge"
	"github.com/dotside-studios/davi-uhf-agent/protocol"
)

// handleMethodChannel serves GET /ws. Requests on one connection are
// answered one at a time, in order.
func (s *Server) handleMethodChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}

	id := uuid.NewString()
	s.track(conn, "method/"+id)
	s.logger.Printf("Method channel %s connected from %s", id, r.RemoteAddr)

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("Method channel %s panic: %v", id, rec)
		}
		s.untrack(conn)
		conn.Close()
		s.logger.Printf("Method channel %s disconnected", id)
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req protocol.CommandRequest
		dec := json.NewDecoder(bytes.NewReader(message))
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			s.logger.Printf("Failed to parse WebSocket message: %v", err)
			if err := conn.WriteJSON(protocol.Error("", "", protocol.ErrCodeParseError, "Invalid message format")); err != nil {
				return
			}
			continue
		}

		resp := s.execute(r.WithContext(s.ctx), req)
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Printf("Method channel %s write error: %v", id, err)
			return
		}
	}
}

// handleStatusChannel serves GET /ws/status. Only one client may hold the
// status stream; others get 409 Conflict until it disconnects.
func (s *Server) handleStatusChannel(w http.ResponseWriter, r *http.Request) {
	if s.config.Status == nil {
		http.Error(w, "Status stream not available", http.StatusNotFound)
		return
	}

	events := make(chan bridge.StatusSnapshot, statusBuffer)
	subID, err := s.config.Status.Subscribe(func(snap bridge.StatusSnapshot) {
		select {
		case events <- snap:
		default:
			s.logger.Printf("Status client too slow, dropped %+v", snap)
		}
	})
	if errors.Is(err, bridge.ErrSubscriberAttached) {
		s.logger.Printf("Status channel rejected for %s: stream already claimed", r.RemoteAddr)
		http.Error(w, "Status stream already claimed by another client", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Status.Unsubscribe(subID)
		s.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}

	s.track(conn, "status/"+subID)
	s.logger.Printf("Status channel %s connected from %s", subID, r.RemoteAddr)

	done := make(chan struct{})
	go s.writeStatus(conn, events, done)

	// Reads only detect the peer closing; clients send nothing here.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.config.Status.Unsubscribe(subID)
	close(done)
	s.untrack(conn)
	conn.Close()
	s.logger.Printf("Status channel %s disconnected", subID)
}

func (s *Server) writeStatus(conn *websocket.Conn, events <-chan bridge.StatusSnapshot, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case snap := <-events:
			msg := protocol.NewStatusMessage(snap.Input, snap.Output, snap.Antenna)
			if err := conn.WriteJSON(msg); err != nil {
				// Closing unblocks the read loop, which unsubscribes.
				conn.Close()
				return
			}
		}
	}
}
