package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
	"github.com/rocketscienceinc/bingobattle-backend/internal/pkg"
	"github.com/rocketscienceinc/bingobattle-backend/pkg/handlers"
)

type roomRepo interface {
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
}

type playerRepo interface {
	ListByRoom(ctx context.Context, roomCode string) ([]*entity.Player, error)
}

type Server struct {
	logger  *slog.Logger
	rooms   roomRepo
	players playerRepo
}

func New(logger *slog.Logger, rooms roomRepo, players playerRepo) *Server {
	return &Server{
		logger:  logger,
		rooms:   rooms,
		players: players,
	}
}

func (that *Server) Start(ctx context.Context, port string) error {
	router := chi.NewRouter()
	router.Get("/ping", handlers.PingHandler)
	router.Get("/rooms/{code}", that.roomHandler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

type roomSummary struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Players int    `json:"players"`
	Drawn   int    `json:"drawn"`
	Winner  string `json:"winner,omitempty"`
}

// roomHandler serves a lobby-facing summary: enough to tell whether a code
// is joinable without exposing any player's board.
func (that *Server) roomHandler(w http.ResponseWriter, r *http.Request) {
	code := pkg.NormalizeRoomCode(chi.URLParam(r, "code"))

	room, err := that.rooms.GetByCode(r.Context(), code)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	if err != nil {
		that.logger.Error("failed to get room", "code", code, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	players, err := that.players.ListByRoom(r.Context(), code)
	if err != nil {
		that.logger.Error("failed to list players", "code", code, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	summary := roomSummary{
		Code:    room.Code,
		Status:  room.Status,
		Players: len(players),
		Drawn:   len(room.Drawn),
		Winner:  room.Winner,
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(summary); err != nil {
		that.logger.Error("failed to encode summary", "error", err)
	}
}
