package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/config"
	"github.com/bryanchriswhite/kasbah/internal/controller"
	"github.com/bryanchriswhite/kasbah/internal/history"
	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/bryanchriswhite/kasbah/internal/save"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	ctrl      *controller.Controller
	configMgr *config.Manager
	history   *history.Store
	upgrader  websocket.Upgrader
	http      *http.Server

	// Captures outlive the request that started them.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new API server. history may be nil.
func NewServer(ctrl *controller.Controller, configMgr *config.Manager, hist *history.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:    mux.NewRouter(),
		ctrl:      ctrl,
		configMgr: configMgr,
		history:   hist,
		ctx:       ctx,
		cancel:    cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Mode and options
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/mode", s.handleSetMode).Methods("PUT")
	api.HandleFunc("/options", s.handleSetOptions).Methods("PUT")

	// Capture and save flow
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/capture", s.handleDiscard).Methods("DELETE")
	api.HandleFunc("/capture/preview", s.handlePreview).Methods("GET")
	api.HandleFunc("/save", s.handleSave).Methods("POST")

	api.HandleFunc("/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels in-flight captures and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

// HTTP Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode capture.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.ctrl.SetMode(req.Mode); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleSetOptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		capture.Options
		Flash *bool `json:"flash,omitempty"`
	}
	req.Options = s.ctrl.State().Options
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Options.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.ctrl.SetOptions(req.Options); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if req.Flash != nil {
		if err := s.ctrl.SetFlash(*req.Flash); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

type captureResponse struct {
	State   controller.State    `json:"state"`
	Outcome *controller.Outcome `json:"outcome,omitempty"`
	Message string              `json:"message,omitempty"`
}

// handleCapture starts a capture. With ?wait=true it answers once the
// capture has finished.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	done, err := s.ctrl.StartCapture(s.ctx)
	if errors.Is(err, controller.ErrCaptureInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		writeJSON(w, http.StatusAccepted, captureResponse{State: s.ctrl.State()})
		return
	}

	var out controller.Outcome
	select {
	case out = <-done:
	case <-r.Context().Done():
		// The capture carries on; its outcome arrives over /api/events.
		return
	}

	resp := captureResponse{State: s.ctrl.State(), Outcome: &out}
	if out.Err != nil {
		resp.Message = capture.UserMessage(out.Err)
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	width := save.PreviewWidth
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	var buf bytes.Buffer
	if err := save.WriteThumbnail(&buf, s.ctrl.TargetPath(), width); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "no capture to preview", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder   string `json:"folder"`
		Filename string `json:"filename"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	st := s.ctrl.State()
	if st.Pending {
		http.Error(w, controller.ErrCaptureInProgress.Error(), http.StatusConflict)
		return
	}
	if st.Last == nil || st.Last.Err != nil || st.Last.Path == "" {
		http.Error(w, "no capture to save", http.StatusNotFound)
		return
	}

	cfg := s.configMgr.Get()
	folder := req.Folder
	if folder == "" {
		folder = cfg.Save.Folder
	}
	if folder == "" {
		folder = save.DefaultFolder()
	}
	name := req.Filename
	if name == "" {
		name = save.DefaultFilename(st.Last.At)
	}

	dest, err := save.Move(s.ctrl.TargetPath(), folder, name)
	switch {
	case errors.Is(err, save.ErrDestinationExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "no capture to save", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.history != nil && cfg.Save.History {
		entry := &history.Entry{
			Path:           dest,
			Mode:           st.Last.Mode.String(),
			Backend:        st.Last.Backend,
			IncludePointer: st.Last.Options.IncludePointer,
			WindowShadow:   st.Last.Options.WindowShadow,
			DelaySeconds:   st.Last.Options.DelaySeconds,
			CreatedAt:      st.Last.At,
		}
		if err := s.history.Record(entry); err != nil {
			logger.WithComponent("api").Warn().Err(err).Msg("Failed to record capture history")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": dest})
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	if s.ctrl.State().Pending {
		http.Error(w, controller.ErrCaptureInProgress.Error(), http.StatusConflict)
		return
	}
	if err := save.Discard(s.ctrl.TargetPath()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.history.List(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events := s.ctrl.Subscribe()
	defer s.ctrl.Unsubscribe(events)

	// Drain client frames so a close ends the stream.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.ctrl.Unsubscribe(events)
				return
			}
		}
	}()

	initial := controller.Event{Kind: controller.EventState, State: s.ctrl.State()}
	if err := conn.WriteJSON(initial); err != nil {
		log.Debug().Err(err).Msg("WebSocket write failed")
		return
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
		"service": s.ctrl.Availability(ctx).String(),
	})
}
