package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
)

const (
	playerFieldName         = "name"
	playerFieldBoard        = "board"
	playerFieldStatus       = "status"
	playerFieldShieldActive = "shield_active"
	playerFieldHasWon       = "has_won"
	playerFieldScore        = "score"

	itemFieldPrefix = "item:"
)

type PlayerRepository interface {
	Put(ctx context.Context, roomCode string, player *entity.Player) error
	GetByID(ctx context.Context, roomCode, playerID string) (*entity.Player, error)
	ListByRoom(ctx context.Context, roomCode string) ([]*entity.Player, error)
	Update(ctx context.Context, roomCode, playerID string, patch entity.PlayerPatch) error
	ConsumeItem(ctx context.Context, roomCode, playerID, kind string) (int, error)
	Subscribe(ctx context.Context, roomCode string) (<-chan *entity.Player, error)
	DeleteByRoom(ctx context.Context, roomCode string) error
}

// dbPlayer keeps one redis hash per player plus a set of member ids per
// room. Item counts live in their own hash fields so ConsumeItem can use
// HIncrBy, which tolerates the read-then-decrement race of a rapid
// double-activation.
type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

func playerKey(roomCode, playerID string) string {
	return "room:" + roomCode + ":player:" + playerID
}

func playerSetKey(roomCode string) string {
	return "room:" + roomCode + ":players"
}

func playersChannel(roomCode string) string {
	return "room:" + roomCode + ":players:events"
}

func (that *dbPlayer) Put(ctx context.Context, roomCode string, player *entity.Player) error {
	board, err := json.Marshal(player.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	fields := map[string]any{
		playerFieldName:         player.Name,
		playerFieldBoard:        string(board),
		playerFieldStatus:       player.Status,
		playerFieldShieldActive: encodeBool(player.ShieldActive),
		playerFieldHasWon:       encodeBool(player.HasWon),
		playerFieldScore:        strconv.Itoa(player.Score),
	}
	for kind, count := range player.Items {
		fields[itemFieldPrefix+kind] = strconv.Itoa(count)
	}

	if err = that.client.HSet(ctx, playerKey(roomCode, player.ID), fields).Err(); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	if err = that.client.SAdd(ctx, playerSetKey(roomCode), player.ID).Err(); err != nil {
		return fmt.Errorf("failed to register player in room: %w", err)
	}

	return that.publish(ctx, roomCode, player.ID)
}

func (that *dbPlayer) GetByID(ctx context.Context, roomCode, playerID string) (*entity.Player, error) {
	values, err := that.client.HGetAll(ctx, playerKey(roomCode, playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: id %s", apperror.ErrPlayerNotFound, playerID)
	}

	return decodePlayer(playerID, values)
}

func (that *dbPlayer) ListByRoom(ctx context.Context, roomCode string) ([]*entity.Player, error) {
	ids, err := that.client.SMembers(ctx, playerSetKey(roomCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room players: %w", err)
	}

	players := make([]*entity.Player, 0, len(ids))
	for _, id := range ids {
		player, err := that.GetByID(ctx, roomCode, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load player %s: %w", id, err)
		}
		players = append(players, player)
	}

	return players, nil
}

func (that *dbPlayer) Update(ctx context.Context, roomCode, playerID string, patch entity.PlayerPatch) error {
	fields := make(map[string]any)

	if patch.Board != nil {
		board, err := json.Marshal(patch.Board)
		if err != nil {
			return fmt.Errorf("failed to marshal board: %w", err)
		}
		fields[playerFieldBoard] = string(board)
	}
	if patch.Status != nil {
		fields[playerFieldStatus] = *patch.Status
	}
	if patch.ShieldActive != nil {
		fields[playerFieldShieldActive] = encodeBool(*patch.ShieldActive)
	}
	if patch.HasWon != nil {
		fields[playerFieldHasWon] = encodeBool(*patch.HasWon)
	}
	if patch.Score != nil {
		fields[playerFieldScore] = strconv.Itoa(*patch.Score)
	}

	if len(fields) == 0 {
		return nil
	}

	if err := that.client.HSet(ctx, playerKey(roomCode, playerID), fields).Err(); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return that.publish(ctx, roomCode, playerID)
}

// ConsumeItem atomically decrements one use of kind and returns the count
// left. The caller checks the remaining count beforehand; debouncing a rapid
// double-activation is the client's responsibility.
func (that *dbPlayer) ConsumeItem(ctx context.Context, roomCode, playerID, kind string) (int, error) {
	left, err := that.client.HIncrBy(ctx, playerKey(roomCode, playerID), itemFieldPrefix+kind, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to consume item: %w", err)
	}

	if err = that.publish(ctx, roomCode, playerID); err != nil {
		return int(left), err
	}

	return int(left), nil
}

func (that *dbPlayer) Subscribe(ctx context.Context, roomCode string) (<-chan *entity.Player, error) {
	sub := that.client.Subscribe(ctx, playersChannel(roomCode))
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to players: %w", err)
	}

	updates := make(chan *entity.Player, 16)

	go func() {
		defer close(updates)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var player entity.Player
				if err := json.Unmarshal([]byte(msg.Payload), &player); err != nil {
					continue
				}

				select {
				case updates <- &player:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

// DeleteByRoom drops every player record of a room together with the member
// set. Used when a finished room is discarded.
func (that *dbPlayer) DeleteByRoom(ctx context.Context, roomCode string) error {
	ids, err := that.client.SMembers(ctx, playerSetKey(roomCode)).Result()
	if err != nil {
		return fmt.Errorf("failed to list room players: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, playerKey(roomCode, id))
	}
	keys = append(keys, playerSetKey(roomCode))

	if err = that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete room players: %w", err)
	}

	return nil
}

func (that *dbPlayer) publish(ctx context.Context, roomCode, playerID string) error {
	player, err := that.GetByID(ctx, roomCode, playerID)
	if err != nil {
		return fmt.Errorf("failed to load player for publish: %w", err)
	}

	payload, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	if err = that.client.Publish(ctx, playersChannel(roomCode), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish player update: %w", err)
	}

	return nil
}

func decodePlayer(playerID string, values map[string]string) (*entity.Player, error) {
	player := &entity.Player{
		ID:     playerID,
		Name:   values[playerFieldName],
		Status: values[playerFieldStatus],
		Items:  make(map[string]int, len(entity.ItemKinds)),
	}

	if raw := values[playerFieldBoard]; raw != "" {
		var board entity.Board
		if err := json.Unmarshal([]byte(raw), &board); err != nil {
			return nil, fmt.Errorf("failed to unmarshal board: %w", err)
		}
		player.Board = &board
	}

	player.ShieldActive = values[playerFieldShieldActive] == "1"
	player.HasWon = values[playerFieldHasWon] == "1"

	if raw := values[playerFieldScore]; raw != "" {
		score, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode score: %w", err)
		}
		player.Score = score
	}

	for _, kind := range entity.ItemKinds {
		raw, ok := values[itemFieldPrefix+kind]
		if !ok {
			continue
		}

		count, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item count: %w", err)
		}
		player.Items[kind] = count
	}

	return player, nil
}

func encodeBool(value bool) string {
	if value {
		return "1"
	}

	return "0"
}
