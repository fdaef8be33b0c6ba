package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
)

const (
	roomFieldHostID        = "host_id"
	roomFieldStatus        = "status"
	roomFieldCurrentNumber = "current_number"
	roomFieldDrawn         = "drawn"
	roomFieldPool          = "pool"
	roomFieldLastDrawAt    = "last_draw_at"
	roomFieldWinner        = "winner"
)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, code string, patch entity.RoomPatch) error
	Subscribe(ctx context.Context, code string) (<-chan *entity.Room, error)
	DeleteByCode(ctx context.Context, code string) error
}

// dbRoom keeps each room as a redis hash so a partial update is a single
// HSet touching only the patched fields, and publishes the committed
// snapshot on the room's channel after every write. Per-document ordering
// follows from publishes being issued in commit order by each writer.
type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(code string) string {
	return "room:" + code
}

func roomChannel(code string) string {
	return "room:" + code + ":events"
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	// HSetNX on host_id doubles as the existence guard: the first creator
	// wins, a racing creator sees ErrRoomAlreadyExists and retries with a
	// fresh code.
	created, err := that.client.HSetNX(ctx, roomKey(room.Code), roomFieldHostID, room.HostID).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: code %s", apperror.ErrRoomAlreadyExists, room.Code)
	}

	fields := map[string]any{
		roomFieldStatus: room.Status,
		roomFieldDrawn:  encodeInts(room.Drawn),
		roomFieldPool:   encodeInts(room.Pool),
	}

	if err = that.client.HSet(ctx, roomKey(room.Code), fields).Err(); err != nil {
		return fmt.Errorf("failed to set room fields: %w", err)
	}

	return that.publish(ctx, room.Code)
}

func (that *dbRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	values, err := that.client.HGetAll(ctx, roomKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: code %s", apperror.ErrRoomNotFound, code)
	}

	return decodeRoom(code, values)
}

func (that *dbRoom) Update(ctx context.Context, code string, patch entity.RoomPatch) error {
	fields := make(map[string]any)

	if patch.Status != nil {
		fields[roomFieldStatus] = *patch.Status
	}
	if patch.CurrentNumber != nil {
		fields[roomFieldCurrentNumber] = strconv.Itoa(*patch.CurrentNumber)
	}
	if patch.Drawn != nil {
		fields[roomFieldDrawn] = encodeInts(patch.Drawn)
	}
	if patch.Pool != nil {
		fields[roomFieldPool] = encodeInts(patch.Pool)
	}
	if patch.LastDrawAt != nil {
		fields[roomFieldLastDrawAt] = patch.LastDrawAt.Format(time.RFC3339Nano)
	}
	if patch.Winner != nil {
		fields[roomFieldWinner] = *patch.Winner
	}

	if len(fields) == 0 {
		return nil
	}

	if err := that.client.HSet(ctx, roomKey(code), fields).Err(); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return that.publish(ctx, code)
}

func (that *dbRoom) Subscribe(ctx context.Context, code string) (<-chan *entity.Room, error) {
	sub := that.client.Subscribe(ctx, roomChannel(code))
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	updates := make(chan *entity.Room, 16)

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

				var room entity.Room
				if err := json.Unmarshal([]byte(msg.Payload), &room); err != nil {
					continue
				}

				select {
				case updates <- &room:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

func (that *dbRoom) DeleteByCode(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

// publish fans the committed snapshot out to every subscriber, the writer
// included.
func (that *dbRoom) publish(ctx context.Context, code string) error {
	room, err := that.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to load room for publish: %w", err)
	}

	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	if err = that.client.Publish(ctx, roomChannel(code), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish room update: %w", err)
	}

	return nil
}

func decodeRoom(code string, values map[string]string) (*entity.Room, error) {
	room := &entity.Room{
		Code:   code,
		HostID: values[roomFieldHostID],
		Status: values[roomFieldStatus],
		Winner: values[roomFieldWinner],
	}

	var err error
	if room.Drawn, err = decodeInts(values[roomFieldDrawn]); err != nil {
		return nil, fmt.Errorf("failed to decode drawn numbers: %w", err)
	}

	if room.Pool, err = decodeInts(values[roomFieldPool]); err != nil {
		return nil, fmt.Errorf("failed to decode pool: %w", err)
	}

	if raw := values[roomFieldCurrentNumber]; raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode current number: %w", err)
		}
		room.CurrentNumber = &number
	}

	if raw := values[roomFieldLastDrawAt]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode last draw time: %w", err)
		}
		room.LastDrawAt = at
	}

	return room, nil
}

func encodeInts(numbers []int) string {
	if numbers == nil {
		numbers = []int{}
	}

	payload, _ := json.Marshal(numbers)

	return string(payload)
}

func decodeInts(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}

	var numbers []int
	if err := json.Unmarshal([]byte(raw), &numbers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal numbers: %w", err)
	}

	return numbers, nil
}
