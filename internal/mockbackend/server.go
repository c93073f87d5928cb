// Package mockbackend is an in-process stand-in for the DeepWiki service.
// It serves the chat WebSocket, the streaming HTTP fallback and the two
// read-only project endpoints.
package mockbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/deepwiki-chat/utils"
)

// Config controls the canned behaviour of a Server.
type Config struct {
	// Reply returns the text frames sent back for a chat request.
	// EchoReply is used when nil.
	Reply func(payload []byte) []string
	// Binary frames are written before the text reply.
	Binary [][]byte
	// KeepOpen leaves the chat socket open after the reply until the client closes it.
	KeepOpen bool
	// Drop tears down the TCP connection right after the reply, without a close frame.
	Drop bool
	// StreamStatus makes the HTTP stream endpoint fail with this status when >= 400.
	StreamStatus int
	// Projects is served as JSON by /api/processed_projects. nil serves [].
	Projects any
	// Structures maps a local path to the JSON served by /local_repo/structure.
	Structures map[string]any
}

// Server implements http.Handler.
type Server struct {
	cfg    Config
	router chi.Router

	mu         sync.Mutex
	requests   [][]byte
	handshakes []http.Header
}

// New builds a Server with its routes.
func New(cfg Config) *Server {
	if cfg.Reply == nil {
		cfg.Reply = EchoReply
	}
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(utils.ChatPath, s.handleChatWS)
	r.Post("/chat/completions/stream", s.handleStream)
	r.Get("/api/processed_projects", s.handleProjects)
	r.Get("/local_repo/structure", s.handleStructure)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns every chat payload received so far, in arrival order.
func (s *Server) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.requests))
	copy(out, s.requests)
	return out
}

// Handshakes returns the request headers of every chat upgrade so far.
func (s *Server) Handshakes() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]http.Header, len(s.handshakes))
	copy(out, s.handshakes)
	return out
}

func (s *Server) record(payload []byte) {
	s.mu.Lock()
	s.requests = append(s.requests, append([]byte(nil), payload...))
	s.mu.Unlock()
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.handshakes = append(s.handshakes, r.Header.Clone())
	s.mu.Unlock()

	conn, err := utils.UpgradeWebSocket(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[mock] websocket upgrade failed")
		return
	}
	defer conn.Close()

	_, payload, err := conn.ReadMessage()
	if err != nil {
		if !utils.IsCloseError(err) {
			log.Warn().Err(err).Msg("[mock] read chat request")
		}
		return
	}
	s.record(payload)
	log.Info().Int("size", len(payload)).Msg("[mock] chat request received")

	for _, frame := range s.cfg.Binary {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			log.Warn().Err(err).Msg("[mock] write binary frame")
			return
		}
	}
	for _, frame := range s.cfg.Reply(payload) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			log.Warn().Err(err).Msg("[mock] write reply frame")
			return
		}
	}

	if s.cfg.Drop {
		_ = conn.UnderlyingConn().Close()
		return
	}
	if !s.cfg.KeepOpen {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	}

	// Drain until the close handshake completes; gorilla answers the peer's close frame.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if s.cfg.StreamStatus >= 400 {
		writeDetail(w, s.cfg.StreamStatus, http.StatusText(s.cfg.StreamStatus))
		return
	}
	if !json.Valid(body) {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.record(body)

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, chunk := range s.cfg.Reply(body) {
		if _, err := io.WriteString(w, chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.cfg.Projects
	if projects == nil {
		projects = []any{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeDetail(w, http.StatusBadRequest, "No path provided")
		return
	}
	structure, ok := s.cfg.Structures[path]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Directory not found: "+path)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

// EchoReply answers with the last user message, one word per frame.
func EchoReply(payload []byte) []string {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return []string{"Error: invalid request"}
	}

	var last string
	for _, m := range req.Messages {
		if m.Role == "user" {
			last = m.Content
		}
	}
	words := strings.Fields(last)
	frames := make([]string, len(words))
	for i, word := range words {
		if i < len(words)-1 {
			word += " "
		}
		frames[i] = word
	}
	return frames
}

// Frames returns a Reply that always sends the given frames.
func Frames(frames ...string) func([]byte) []string {
	return func([]byte) []string { return frames }
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
