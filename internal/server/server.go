package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/internal/dnd"
	"github.com/rs/cors"
)

// maxBodySize caps action and drag payloads.
const maxBodySize = 1 << 20

type Server struct {
	store      *board.Store
	reconciler *dnd.Reconciler
	hub        *Hub
	logger     *slog.Logger
	server     *http.Server
}

func NewServer(store *board.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:      store,
		reconciler: dnd.NewReconciler(store, logger),
		hub:        NewHub(logger),
		logger:     logger,
	}
	s.hub.hello = func() Event {
		return Event{Type: "hello", Version: store.Version()}
	}
	store.OnChange(func(ctx context.Context) {
		s.hub.Notify(Event{Type: "changed", Version: store.Version()})
	})
	return s
}

// Handler returns the API routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/boards", s.handleBoards).Methods(http.MethodGet)
	api.HandleFunc("/boards/{id}", s.handleBoard).Methods(http.MethodGet)
	api.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handleTask).Methods(http.MethodGet)
	api.HandleFunc("/actions", s.handleActions).Methods(http.MethodPost)
	api.HandleFunc("/actions/kinds", s.handleActionKinds).Methods(http.MethodGet)
	api.HandleFunc("/drag", s.handleDrag).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.handleWebSocket)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// Start serves the API on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	s.logger.Info("web server listening", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	s.respond(w, map[string]any{
		"boards":           s.store.Boards(),
		"current_board_id": s.store.CurrentBoardID(),
	}, nil)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	b, ok := s.store.Board(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "board not found", http.StatusNotFound)
		return
	}
	s.respond(w, b, nil)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.store.View(), nil)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.store.Stats(), nil)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.store.Task(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	s.respond(w, t, nil)
}

func (s *Server) handleActionKinds(w http.ResponseWriter, r *http.Request) {
	s.respond(w, board.Kinds(), nil)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a, err := board.DecodeAction(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.store.Dispatch(r.Context(), a)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.respond(w, res, nil)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var ev dnd.DragEnd
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&ev); err != nil {
		http.Error(w, "invalid drag event: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.respond(w, s.reconciler.Apply(r.Context(), ev), nil)
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
