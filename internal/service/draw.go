package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
)

type drawRoomRepo interface {
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, code string, patch entity.RoomPatch) error
}

// DrawLoop advances a room's shared draw sequence on a fixed interval. It
// must run on exactly one participant's process - the room's host. That is a
// trust assumption, not an enforced guarantee: nothing stops a second copy,
// and if the host process dies the loop simply stops and no one takes over.
type DrawLoop struct {
	logger   *slog.Logger
	rooms    drawRoomRepo
	interval time.Duration
}

func NewDrawLoop(logger *slog.Logger, rooms drawRoomRepo, interval time.Duration) *DrawLoop {
	return &DrawLoop{
		logger:   logger,
		rooms:    rooms,
		interval: interval,
	}
}

// Run ticks until the room leaves playing, the pool runs dry or ctx is
// cancelled. An exhausted pool halts the loop without a commit; the room
// stays playing until a win or a manual end.
func (that *DrawLoop) Run(ctx context.Context, code string) error {
	log := that.logger.With("component", "drawloop", "code", code)

	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("draw loop stopped", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			err := that.DrawNext(ctx, code)
			if errors.Is(err, apperror.ErrPoolExhausted) {
				log.Info("pool exhausted, no further draws")
				return nil
			}

			if errors.Is(err, apperror.ErrRoomNotPlaying) {
				log.Info("room left playing, draw loop done")
				return nil
			}

			if err != nil {
				// Transient store trouble: skip the tick, the next one
				// re-reads authoritative state.
				log.Error("draw tick failed", "error", err)
			}
		}
	}
}

// DrawNext removes one uniformly random number from the pool and commits
// currentNumber, drawn set, pool and timestamp as a single partial update.
func (that *DrawLoop) DrawNext(ctx context.Context, code string) error {
	room, err := that.rooms.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if !room.IsPlaying() {
		return apperror.ErrRoomNotPlaying
	}

	if len(room.Pool) == 0 {
		return apperror.ErrPoolExhausted
	}

	idx := rand.Intn(len(room.Pool)) //nolint:gosec // draw order needs no crypto randomness
	number := room.Pool[idx]

	pool := make([]int, 0, len(room.Pool)-1)
	pool = append(pool, room.Pool[:idx]...)
	pool = append(pool, room.Pool[idx+1:]...)

	now := time.Now().UTC()
	patch := entity.RoomPatch{
		CurrentNumber: &number,
		Drawn:         append(room.Drawn, number),
		Pool:          pool,
		LastDrawAt:    &now,
	}

	if err = that.rooms.Update(ctx, code, patch); err != nil {
		return fmt.Errorf("failed to commit draw: %w", err)
	}

	that.logger.Debug("number drawn", "code", code, "number", number, "left", len(pool))

	return nil
}
