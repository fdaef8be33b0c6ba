package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
	"github.com/rocketscienceinc/bingobattle-backend/internal/service"
)

type roomRepo interface {
	Update(ctx context.Context, code string, patch entity.RoomPatch) error
	Subscribe(ctx context.Context, code string) (<-chan *entity.Room, error)
	DeleteByCode(ctx context.Context, code string) error
}

type playerRepo interface {
	GetByID(ctx context.Context, roomCode, playerID string) (*entity.Player, error)
	ListByRoom(ctx context.Context, roomCode string) ([]*entity.Player, error)
	Update(ctx context.Context, roomCode, playerID string, patch entity.PlayerPatch) error
	Subscribe(ctx context.Context, roomCode string) (<-chan *entity.Player, error)
	DeleteByRoom(ctx context.Context, roomCode string) error
}

type lobbyService interface {
	CreateRoom(ctx context.Context, hostID, hostName string) (*entity.Room, error)
	JoinRoom(ctx context.Context, code, playerID, playerName string) (*entity.Room, error)
	StartGame(ctx context.Context, code, playerID string) error
}

type itemResolver interface {
	Use(ctx context.Context, roomCode string, actor *entity.Player, room *entity.Room, opponents []*entity.Player, kind string) (*service.ItemOutcome, error)
}

type drawLoop interface {
	Run(ctx context.Context, code string) error
}

type EventKind string

const (
	EventRoomUpdated   EventKind = "room:update"
	EventPlayerUpdated EventKind = "players:update"
	EventGameEnded     EventKind = "game:ended"
	EventNotice        EventKind = "notice"
)

// Event is what a session pushes up to its transport: authoritative room and
// player snapshots, the game-end signal, and transient notices that are
// never persisted.
type Event struct {
	Kind   EventKind      `json:"kind"`
	Room   *entity.Room   `json:"room,omitempty"`
	Player *entity.Player `json:"player,omitempty"`
	Notice string         `json:"notice,omitempty"`
}

// Manager carries the dependencies shared by every participant session.
type Manager struct {
	logger  *slog.Logger
	rooms   roomRepo
	players playerRepo
	lobby   lobbyService
	items   itemResolver
	draw    drawLoop

	stunDuration time.Duration
}

func NewManager(logger *slog.Logger, rooms roomRepo, players playerRepo, lobby lobbyService, items itemResolver, draw drawLoop, stunDuration time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		rooms:   rooms,
		players: players,
		lobby:   lobby,
		items:   items,
		draw:    draw,

		stunDuration: stunDuration,
	}
}

// Session is one participant's view of a room: the local optimistic board,
// the authoritative roster as last pushed by the store, and the host-side
// draw loop when this participant owns it. Actions apply locally first, are
// committed as partial updates, and every conflict is resolved in favor of
// the next authoritative push.
type Session struct {
	*Manager

	playerID   string
	playerName string

	mu           sync.Mutex
	roomCode     string
	isHost       bool
	room         *entity.Room
	board        *entity.Board
	roster       map[string]*entity.Player
	drawRunning  bool
	stunTimerSet bool
	detach       context.CancelFunc

	events chan Event
}

func (that *Manager) NewSession(playerID, playerName string) *Session {
	return &Session{
		Manager: that,

		playerID:   playerID,
		playerName: playerName,

		roster: make(map[string]*entity.Player),
		events: make(chan Event, 64),
	}
}

func (that *Session) PlayerID() string {
	return that.playerID
}

func (that *Session) Events() <-chan Event {
	return that.events
}

// CreateRoom creates a new room with this participant as host and starts
// observing it. The given ctx bounds the observation together with LeaveRoom:
// either one ends the session's writes and subscriptions.
func (that *Session) CreateRoom(ctx context.Context) (*entity.Room, error) {
	room, err := that.lobby.CreateRoom(ctx, that.playerID, that.playerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if err = that.attach(ctx, room); err != nil {
		return nil, err
	}

	return room, nil
}

func (that *Session) JoinRoom(ctx context.Context, code string) (*entity.Room, error) {
	room, err := that.lobby.JoinRoom(ctx, code, that.playerID, that.playerName)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	if err = that.attach(ctx, room); err != nil {
		return nil, err
	}

	return room, nil
}

func (that *Session) StartGame(ctx context.Context) error {
	that.mu.Lock()
	code := that.roomCode
	that.mu.Unlock()

	if err := that.lobby.StartGame(ctx, code, that.playerID); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	return nil
}

// LeaveRoom stops observing the current room. Pending writes are abandoned;
// the room itself lives on for the remaining participants.
func (that *Session) LeaveRoom() {
	that.mu.Lock()
	detach := that.detach
	that.detach = nil
	that.roomCode = ""
	that.isHost = false
	that.room = nil
	that.board = nil
	that.roster = make(map[string]*entity.Player)
	that.drawRunning = false
	that.mu.Unlock()

	if detach != nil {
		detach()
	}
}

func (that *Session) attach(ctx context.Context, room *entity.Room) error {
	// A session observes one room at a time.
	that.LeaveRoom()

	ctx, cancel := context.WithCancel(ctx)

	self, err := that.players.GetByID(ctx, room.Code, that.playerID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to load own player record: %w", err)
	}

	others, err := that.players.ListByRoom(ctx, room.Code)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to load roster: %w", err)
	}

	roomUpdates, err := that.rooms.Subscribe(ctx, room.Code)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to room: %w", err)
	}

	playerUpdates, err := that.players.Subscribe(ctx, room.Code)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to players: %w", err)
	}

	that.mu.Lock()
	that.detach = cancel
	that.roomCode = room.Code
	that.isHost = room.IsHost(that.playerID)
	that.room = room
	that.board = self.Board
	that.roster = make(map[string]*entity.Player, len(others))
	for _, player := range others {
		that.roster[player.ID] = player
	}
	that.mu.Unlock()

	go that.pumpRoom(ctx, roomUpdates)
	go that.pumpPlayers(ctx, playerUpdates)

	return nil
}

// pumpRoom applies authoritative room pushes. The host's session owns the
// draw loop: it starts one goroutine when the room is first observed
// playing, and never a second one.
func (that *Session) pumpRoom(ctx context.Context, updates <-chan *entity.Room) {
	log := that.logger.With("component", "session", "playerID", that.playerID)

	for room := range updates {
		that.mu.Lock()
		previous := that.room
		that.room = room

		startLoop := that.isHost && room.IsPlaying() && !that.drawRunning
		if startLoop {
			that.drawRunning = true
		}

		ended := room.IsEnded() && (previous == nil || !previous.IsEnded())
		discard := ended && that.isHost
		that.mu.Unlock()

		if startLoop {
			go func(code string) {
				if err := that.draw.Run(ctx, code); err != nil {
					log.Error("draw loop failed", "error", err)
				}
			}(room.Code)
		}

		that.emit(ctx, Event{Kind: EventRoomUpdated, Room: room})

		if ended {
			that.emit(ctx, Event{Kind: EventGameEnded, Room: room})
		}

		if discard {
			that.discardRoom(ctx, room.Code)
		}
	}
}

// discardRoom drops a finished room's documents from the store. Subscribers
// already hold the ended snapshot; the host discards once it has observed
// that snapshot itself. A host that disconnects before the end leaves the
// room behind, the same liveness gap the draw loop has.
func (that *Session) discardRoom(ctx context.Context, code string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := that.players.DeleteByRoom(cleanupCtx, code); err != nil {
		that.logger.Error("failed to discard player records", "code", code, "error", err)
	}

	if err := that.rooms.DeleteByCode(cleanupCtx, code); err != nil {
		that.logger.Error("failed to discard room", "code", code, "error", err)
	}
}

// pumpPlayers applies authoritative player pushes. For the session's own
// record the pushed board replaces the optimistic one, and an observed stun
// schedules the reactive recovery write.
func (that *Session) pumpPlayers(ctx context.Context, updates <-chan *entity.Player) {
	for player := range updates {
		that.mu.Lock()
		that.roster[player.ID] = player

		if player.ID == that.playerID {
			if player.Board != nil {
				that.board = player.Board
			}

			if player.IsStunned() && !that.stunTimerSet {
				that.stunTimerSet = true
				that.scheduleStunRecovery(ctx)
			}
		}
		that.mu.Unlock()

		that.emit(ctx, Event{Kind: EventPlayerUpdated, Player: player})
	}
}

// scheduleStunRecovery clears this player's own stun after the configured
// duration if it is still observed. The clearing write races a re-stun that
// lands between the check and the write; that window is accepted, the next
// bomb just schedules a fresh recovery.
func (that *Session) scheduleStunRecovery(ctx context.Context) {
	time.AfterFunc(that.stunDuration, func() {
		that.mu.Lock()
		code := that.roomCode
		self := that.roster[that.playerID]
		stillStunned := self != nil && self.IsStunned()
		that.stunTimerSet = false
		that.mu.Unlock()

		if !stillStunned {
			return
		}

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		status := entity.PlayerNormal
		if err := that.players.Update(writeCtx, code, that.playerID, entity.PlayerPatch{Status: &status}); err != nil {
			that.logger.Error("failed to recover from stun", "playerID", that.playerID, "error", err)
		}
	})
}

// MarkCell validates a cell activation against the local view, marks it
// optimistically and commits the whole board as one partial update. A win
// commits the player's hasWon flag strictly before the room's ended status,
// so no observer sees the game end ahead of the winning board.
func (that *Session) MarkCell(ctx context.Context, idx int) error {
	that.mu.Lock()

	if idx < 0 || idx >= entity.BoardCells {
		that.mu.Unlock()
		return fmt.Errorf("%w: cell %d", entity.ErrCellOutOfRange, idx)
	}

	self := that.roster[that.playerID]
	if self != nil && self.IsStunned() {
		that.mu.Unlock()
		return apperror.ErrPlayerStunned
	}

	if that.room == nil || that.room.CurrentNumber == nil {
		that.mu.Unlock()
		return apperror.ErrNoActiveNumber
	}

	if that.board[idx].Marked {
		that.mu.Unlock()
		return apperror.ErrCellMarked
	}

	if !that.board.Matches(idx, *that.room.CurrentNumber) {
		that.mu.Unlock()
		return apperror.ErrNumberNotCalled
	}

	// Optimistic: locally marked before the store confirms anything.
	that.board[idx].Marked = true

	board := *that.board
	code := that.roomCode
	that.mu.Unlock()

	score := board.CompletedLines()
	patch := entity.PlayerPatch{Board: &board, Score: &score}
	if err := that.players.Update(ctx, code, that.playerID, patch); err != nil {
		// Best effort: keep the optimistic mark, the next authoritative
		// push corrects the view if the write never landed.
		that.logger.Error("failed to commit marked board", "playerID", that.playerID, "error", err)
		return nil
	}

	if board.HasWon() {
		return that.commitWin(ctx, code)
	}

	return nil
}

func (that *Session) commitWin(ctx context.Context, code string) error {
	won := true
	if err := that.players.Update(ctx, code, that.playerID, entity.PlayerPatch{HasWon: &won}); err != nil {
		return fmt.Errorf("failed to commit win flag: %w", err)
	}

	status := entity.StatusEnded
	winner := that.playerName
	if err := that.rooms.Update(ctx, code, entity.RoomPatch{Status: &status, Winner: &winner}); err != nil {
		return fmt.Errorf("failed to end game: %w", err)
	}

	return nil
}

// UseItem resolves an item against the session's current local view. An
// assisted search that finds a cell goes through the same mark-and-commit
// path as a manual click.
func (that *Session) UseItem(ctx context.Context, kind string) error {
	that.mu.Lock()
	code := that.roomCode
	room := that.room

	actor := that.actorSnapshot()
	opponents := make([]*entity.Player, 0, len(that.roster))
	for _, player := range that.roster {
		if player.ID != that.playerID {
			opponents = append(opponents, player)
		}
	}
	that.mu.Unlock()

	if actor == nil || room == nil {
		return apperror.ErrRoomNotPlaying
	}

	outcome, err := that.items.Use(ctx, code, actor, room, opponents, kind)
	if err != nil {
		return fmt.Errorf("failed to use item: %w", err)
	}

	switch outcome.Kind {
	case entity.ItemSearch:
		if outcome.SearchCell < 0 {
			that.emit(ctx, Event{Kind: EventNotice, Notice: "search found nothing"})
			return nil
		}
		return that.MarkCell(ctx, outcome.SearchCell)
	case entity.ItemBomb:
		if outcome.VictimID == "" {
			that.emit(ctx, Event{Kind: EventNotice, Notice: "bomb found no target"})
			return nil
		}
		that.emit(ctx, Event{Kind: EventNotice, Notice: "bomb hit " + outcome.VictimName})
	case entity.ItemShield:
		that.emit(ctx, Event{Kind: EventNotice, Notice: "shield raised"})
	}

	return nil
}

// actorSnapshot is the authoritative self record carrying the local
// optimistic board, so item effects see marks the store has not echoed yet.
// Callers hold the mutex.
func (that *Session) actorSnapshot() *entity.Player {
	self := that.roster[that.playerID]
	if self == nil {
		return nil
	}

	snapshot := *self
	if that.board != nil {
		board := *that.board
		snapshot.Board = &board
	}

	return &snapshot
}

func (that *Session) emit(ctx context.Context, event Event) {
	select {
	case that.events <- event:
	case <-ctx.Done():
	}
}
