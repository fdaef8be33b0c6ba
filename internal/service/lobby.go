package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
	"github.com/rocketscienceinc/bingobattle-backend/internal/pkg"
)

type lobbyRoomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, code string, patch entity.RoomPatch) error
}

type lobbyPlayerRepo interface {
	Put(ctx context.Context, roomCode string, player *entity.Player) error
}

type LobbyService struct {
	logger  *slog.Logger
	rooms   lobbyRoomRepo
	players lobbyPlayerRepo

	codeLength    int
	createRetries int
}

func NewLobbyService(logger *slog.Logger, rooms lobbyRoomRepo, players lobbyPlayerRepo, codeLength, createRetries int) *LobbyService {
	return &LobbyService{
		logger:  logger,
		rooms:   rooms,
		players: players,

		codeLength:    codeLength,
		createRetries: createRetries,
	}
}

// CreateRoom creates a waiting room under a fresh code and joins the creator
// as its host. A code collision is retried transparently with a new code.
func (that *LobbyService) CreateRoom(ctx context.Context, hostID, hostName string) (*entity.Room, error) {
	log := that.logger.With("method", "CreateRoom")

	var room *entity.Room
	for attempt := 0; attempt < that.createRetries; attempt++ {
		candidate := entity.NewRoom(pkg.GenerateRoomCode(that.codeLength), hostID)

		err := that.rooms.Create(ctx, candidate)
		if errors.Is(err, apperror.ErrRoomAlreadyExists) {
			log.Info("room code collision, retrying", "code", candidate.Code)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		room = candidate
		break
	}

	if room == nil {
		return nil, fmt.Errorf("%w: gave up after %d attempts", apperror.ErrRoomAlreadyExists, that.createRetries)
	}

	if err := that.players.Put(ctx, room.Code, entity.NewPlayer(hostID, hostName)); err != nil {
		return nil, fmt.Errorf("failed to join own room: %w", err)
	}

	log.Info("room created", "code", room.Code, "hostID", hostID)

	return room, nil
}

// JoinRoom admits a player into a waiting room with a freshly generated
// board. Joining a playing or ended room is rejected.
func (that *LobbyService) JoinRoom(ctx context.Context, code, playerID, playerName string) (*entity.Room, error) {
	code = pkg.NormalizeRoomCode(code)

	room, err := that.rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if !room.IsWaiting() {
		return nil, fmt.Errorf("%w: status %s", apperror.ErrRoomNotJoinable, room.Status)
	}

	if err = that.players.Put(ctx, code, entity.NewPlayer(playerID, playerName)); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	that.logger.Info("player joined room", "code", code, "playerID", playerID)

	return room, nil
}

// StartGame moves the room to playing and resets the draw pool to the full
// universe, both in one partial update.
func (that *LobbyService) StartGame(ctx context.Context, code, playerID string) error {
	room, err := that.rooms.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if !room.IsHost(playerID) {
		return apperror.ErrNotHost
	}

	if !room.IsWaiting() {
		return fmt.Errorf("%w: status %s", apperror.ErrRoomNotJoinable, room.Status)
	}

	status := entity.StatusPlaying
	patch := entity.RoomPatch{
		Status: &status,
		Pool:   entity.FullPool(),
		Drawn:  []int{},
	}

	if err = that.rooms.Update(ctx, code, patch); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}

	that.logger.Info("game started", "code", code)

	return nil
}
