package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/bingobattle-backend/internal/session"
)

type Server struct {
	logger   *slog.Logger
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, sessions *session.Manager) *Server {
	return &Server{
		logger:   logger,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
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

func (that *Server) serveConnection(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveConnection")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer ws.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := &connection{
		server: that,
		ws:     ws,
	}

	log.Info("WebSocket connection established", "remote", req.RemoteAddr)

	conn.readLoop(connCtx)
}

// connection binds one websocket to at most one participant session. The
// write mutex serializes direct replies with the session event pump.
type connection struct {
	server *Server
	ws     *websocket.Conn

	writeMu sync.Mutex
	session *session.Session
}

func (that *connection) readLoop(ctx context.Context) {
	log := that.server.logger.With("method", "readLoop")

	for {
		_, raw, err := that.ws.ReadMessage()
		if err != nil {
			log.Info("connection closed", "error", err)
			return
		}

		var msg Message
		if err = json.Unmarshal(raw, &msg); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		if err = that.dispatch(ctx, &msg); err != nil {
			log.Error("error processing message", "action", msg.Action, "error", err)
		}
	}
}

// pumpEvents forwards session events down the socket until the session's
// event channel closes or the connection context ends.
func (that *connection) pumpEvents(ctx context.Context) {
	log := that.server.logger.With("method", "pumpEvents")

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-that.session.Events():
			if !ok {
				return
			}

			payload := Payload{
				Room:   event.Room,
				Player: event.Player,
				Notice: event.Notice,
			}

			if err := that.send(string(event.Kind), payload); err != nil {
				log.Error("failed to push event", "error", err)
				return
			}
		}
	}
}

func (that *connection) send(action string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err = that.ws.WriteJSON(Message{Action: action, Payload: body}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *connection) sendError(action, notice string) error {
	return that.send(action, Payload{Error: notice})
}
