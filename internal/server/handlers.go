package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quocvuong92/ai-shell/internal/bridge"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// MsgNoCommand answers a request without a command
const MsgNoCommand = "No command provided"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ExecuteRequest is the body of POST /execute and of every WebSocket frame
type ExecuteRequest struct {
	Command string `json:"command"`
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	CurrentDir string `json:"current_dir"`
	Prompt     string `json:"prompt"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	respondJSON(w, s.execute(r, req.Command), http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, StatusResponse{
		CurrentDir: s.status.WorkingDir(),
		Prompt:     s.status.Prompt(),
	}, http.StatusOK)
}

// handleWebSocket answers each frame with one envelope frame
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Fields{"error": err.Error()})
		return
	}
	defer conn.Close()

	clientLog := s.logger.WithFields(logging.Fields{"client_id": uuid.NewString()})
	clientLog.Debug("websocket connected")
	defer clientLog.Debug("websocket disconnected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req ExecuteRequest
		var env bridge.Envelope
		if err := json.Unmarshal(data, &req); err != nil {
			env = bridge.Envelope{Succeeded: false, Output: "invalid request: " + err.Error()}
		} else {
			env = s.execute(r, req.Command)
		}

		if err := conn.WriteJSON(env); err != nil {
			clientLog.Warn("websocket write failed", logging.Fields{"error": err.Error()})
			break
		}
	}
}

func (s *Server) execute(r *http.Request, command string) bridge.Envelope {
	if strings.TrimSpace(command) == "" {
		return bridge.Envelope{Succeeded: false, Output: MsgNoCommand, Command: command}
	}
	return s.bridge.Submit(r.Context(), command)
}
