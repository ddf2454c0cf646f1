// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// HTTP and WebSocket surface for remote prototyping sessions

package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/progress"
	"github.com/prototyp3d/prototyp3d/internal/prototyper"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

// session is one prototyping run and its progress history, keyed by an
// opaque id. Runs on the same session are serialized.
type session struct {
	id      string
	runMu   sync.Mutex // serializes pipeline runs
	tracker *progress.Tracker
	proto   *prototyper.Prototyper

	mu     sync.Mutex // guards run state below
	done   bool
	result *prototyper.RunResult
	runErr error
}

// Server exposes the coordinator over HTTP. Sessions own disjoint
// workspaces; there is no process-global coordinator state.
type Server struct {
	gw       llm.Client
	baseOpts prototyper.Options

	mu       sync.Mutex
	sessions map[string]*session

	upgrader websocket.Upgrader
}

// New creates a server. baseOpts supplies the per-session defaults
// (base dir, template, debug configuration); Sink is replaced by each
// session's own tracker.
func New(gw llm.Client, baseOpts prototyper.Options) *Server {
	return &Server{
		gw:       gw,
		baseOpts: baseOpts,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with all API routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.POST("/prototype", s.handlePrototype)
	api.POST("/iterate", s.handleIterate)
	api.GET("/progress", s.handleProgress)
	api.GET("/ws", s.handleWebSocket)
	return router
}

// Run serves until the listener fails
func (s *Server) Run(addr string) error {
	slog.Info("server listening", "addr", addr)
	return s.Router().Run(addr)
}

type prototypeRequest struct {
	Goal  string `json:"goal" binding:"required"`
	Name  string `json:"name"`
	Async bool   `json:"async"`
}

type iterateRequest struct {
	Goal      string `json:"goal" binding:"required"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Async     bool   `json:"async"`
}

func (s *Server) newSession(name string) *session {
	tracker := progress.NewTracker()

	opts := s.baseOpts
	opts.Sink = tracker

	sess := &session{
		id:      uuid.NewString(),
		tracker: tracker,
		proto:   prototyper.New(s.gw, "", name, opts),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *Server) lookup(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// run executes one pipeline under the session lock
func (sess *session) run(ctx context.Context, goal string, policy workspace.SetupPolicy) {
	sess.runMu.Lock()
	defer sess.runMu.Unlock()

	sess.mu.Lock()
	sess.done = false
	sess.mu.Unlock()

	sess.proto.SetGoal(goal)
	result, err := sess.proto.Execute(ctx, policy)

	sess.mu.Lock()
	sess.result = result
	sess.runErr = err
	sess.done = true
	sess.mu.Unlock()
}

// handlePrototype creates a workspace from the template and runs the
// full pipeline. Synchronous by default; async returns the session id
// immediately for progress streaming.
func (s *Server) handlePrototype(c *gin.Context) {
	var req prototypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	sess := s.newSession(req.Name)
	s.dispatch(c, sess, req.Goal, workspace.RecreateFromTemplate, req.Async)
}

// handleIterate re-runs the pipeline against an existing workspace
func (s *Server) handleIterate(c *gin.Context) {
	var req iterateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	var sess *session
	switch {
	case req.SessionID != "":
		existing, ok := s.lookup(req.SessionID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session: " + req.SessionID})
			return
		}
		sess = existing
	case req.Name != "":
		sess = s.newSession(req.Name)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "iterate requires session_id or name"})
		return
	}

	s.dispatch(c, sess, req.Goal, workspace.ReuseExisting, req.Async)
}

func (s *Server) dispatch(c *gin.Context, sess *session, goal string, policy workspace.SetupPolicy, async bool) {
	if async {
		go sess.run(context.Background(), goal, policy)
		c.JSON(http.StatusAccepted, gin.H{
			"session_id": sess.id,
			"name":       sess.proto.Name(),
		})
		return
	}

	sess.run(c.Request.Context(), goal, policy)

	sess.mu.Lock()
	result, runErr := sess.result, sess.runErr
	sess.mu.Unlock()

	if runErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"session_id": sess.id,
			"error":      runErr.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     sess.id,
		"name":           sess.proto.Name(),
		"workspace_path": result.WorkspacePath,
		"outcomes":       result.Outcomes,
	})
}

// handleProgress returns events published after the given sequence
// number (after=-1 or omitted returns the full history)
func (s *Server) handleProgress(c *gin.Context) {
	sess, ok := s.lookup(c.Query("session"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	after := -1
	if raw := c.Query("after"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after must be an integer"})
			return
		}
		after = parsed
	}

	events := sess.tracker.Snapshot(after)
	if events == nil {
		events = []progress.Event{}
	}

	sess.mu.Lock()
	done := sess.done
	var runErr string
	if sess.runErr != nil {
		runErr = sess.runErr.Error()
	}
	sess.mu.Unlock()

	response := gin.H{
		"session_id": sess.id,
		"events":     events,
		"done":       done,
	}
	if runErr != "" {
		response["error"] = runErr
	}
	c.JSON(http.StatusOK, response)
}

// handleWebSocket streams the full history then live events until the
// client disconnects
func (s *Server) handleWebSocket(c *gin.Context) {
	sess, ok := s.lookup(c.Query("session"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	live, cancel := sess.tracker.Subscribe()
	defer cancel()

	lastSeq := -1
	for _, event := range sess.tracker.Snapshot(-1) {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
		lastSeq = event.Seq
	}

	for event := range live {
		if event.Seq <= lastSeq {
			continue // already sent via snapshot
		}
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// Sessions returns how many sessions are registered
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
