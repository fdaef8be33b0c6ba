package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
)

// In-memory stand-ins for the redis-backed repositories, with the same
// field-merge semantics.

type fakeRoomStore struct {
	mu         sync.Mutex
	rooms      map[string]*entity.Room
	collisions int
	patches    []entity.RoomPatch
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: make(map[string]*entity.Room)}
}

func (that *fakeRoomStore) Create(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.collisions > 0 {
		that.collisions--
		return fmt.Errorf("%w: code %s", apperror.ErrRoomAlreadyExists, room.Code)
	}

	if _, ok := that.rooms[room.Code]; ok {
		return fmt.Errorf("%w: code %s", apperror.ErrRoomAlreadyExists, room.Code)
	}

	clone := *room
	that.rooms[room.Code] = &clone

	return nil
}

func (that *fakeRoomStore) GetByCode(_ context.Context, code string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: code %s", apperror.ErrRoomNotFound, code)
	}

	clone := *room

	return &clone, nil
}

func (that *fakeRoomStore) Update(_ context.Context, code string, patch entity.RoomPatch) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[code]
	if !ok {
		return fmt.Errorf("%w: code %s", apperror.ErrRoomNotFound, code)
	}

	if patch.Status != nil {
		room.Status = *patch.Status
	}
	if patch.CurrentNumber != nil {
		number := *patch.CurrentNumber
		room.CurrentNumber = &number
	}
	if patch.Drawn != nil {
		room.Drawn = append([]int(nil), patch.Drawn...)
	}
	if patch.Pool != nil {
		room.Pool = append([]int(nil), patch.Pool...)
	}
	if patch.LastDrawAt != nil {
		room.LastDrawAt = *patch.LastDrawAt
	}
	if patch.Winner != nil {
		room.Winner = *patch.Winner
	}

	that.patches = append(that.patches, patch)

	return nil
}

type fakePlayerStore struct {
	mu       sync.Mutex
	players  map[string]map[string]*entity.Player
	consumed []string
}

func newFakePlayerStore() *fakePlayerStore {
	return &fakePlayerStore{players: make(map[string]map[string]*entity.Player)}
}

func (that *fakePlayerStore) Put(_ context.Context, roomCode string, player *entity.Player) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.players[roomCode] == nil {
		that.players[roomCode] = make(map[string]*entity.Player)
	}

	clone := *player
	that.players[roomCode][player.ID] = &clone

	return nil
}

func (that *fakePlayerStore) get(roomCode, playerID string) (*entity.Player, error) {
	player, ok := that.players[roomCode][playerID]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", apperror.ErrPlayerNotFound, playerID)
	}

	return player, nil
}

func (that *fakePlayerStore) Update(_ context.Context, roomCode, playerID string, patch entity.PlayerPatch) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.get(roomCode, playerID)
	if err != nil {
		return err
	}

	if patch.Board != nil {
		board := *patch.Board
		player.Board = &board
	}
	if patch.Status != nil {
		player.Status = *patch.Status
	}
	if patch.ShieldActive != nil {
		player.ShieldActive = *patch.ShieldActive
	}
	if patch.HasWon != nil {
		player.HasWon = *patch.HasWon
	}
	if patch.Score != nil {
		player.Score = *patch.Score
	}

	return nil
}

func (that *fakePlayerStore) ConsumeItem(_ context.Context, roomCode, playerID, kind string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.get(roomCode, playerID)
	if err != nil {
		return 0, err
	}

	if player.Items == nil {
		player.Items = make(map[string]int)
	}
	player.Items[kind]--

	that.consumed = append(that.consumed, kind)

	return player.Items[kind], nil
}

func (that *fakePlayerStore) snapshot(roomCode, playerID string) *entity.Player {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.get(roomCode, playerID)
	if err != nil {
		return nil
	}

	clone := *player

	return &clone
}
