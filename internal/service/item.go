package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
)

type itemPlayerRepo interface {
	Update(ctx context.Context, roomCode, playerID string, patch entity.PlayerPatch) error
	ConsumeItem(ctx context.Context, roomCode, playerID, kind string) (int, error)
}

// ItemOutcome tells the caller what the item did. SearchCell is the cell the
// assisted search found on the actor's own board, or -1.
type ItemOutcome struct {
	Kind       string
	SearchCell int
	VictimID   string
	VictimName string
}

// ItemResolver validates and applies item effects. Every accepted use costs
// exactly one inventory unit, even when the effect finds nothing to act on -
// consuming on no target is part of the observable contract.
type ItemResolver struct {
	logger  *slog.Logger
	players itemPlayerRepo

	shieldDuration time.Duration
}

func NewItemResolver(logger *slog.Logger, players itemPlayerRepo, shieldDuration time.Duration) *ItemResolver {
	return &ItemResolver{
		logger:  logger,
		players: players,

		shieldDuration: shieldDuration,
	}
}

func (that *ItemResolver) Use(ctx context.Context, roomCode string, actor *entity.Player, room *entity.Room, opponents []*entity.Player, kind string) (*ItemOutcome, error) {
	switch kind {
	case entity.ItemSearch, entity.ItemBomb, entity.ItemShield:
	default:
		return nil, fmt.Errorf("%w: %s", apperror.ErrUnknownItem, kind)
	}

	if actor.IsStunned() {
		return nil, apperror.ErrPlayerStunned
	}

	if actor.ItemCount(kind) <= 0 {
		return nil, apperror.ErrItemExhausted
	}

	if _, err := that.players.ConsumeItem(ctx, roomCode, actor.ID, kind); err != nil {
		return nil, fmt.Errorf("failed to consume item: %w", err)
	}

	outcome := &ItemOutcome{Kind: kind, SearchCell: -1}

	switch kind {
	case entity.ItemSearch:
		if room.CurrentNumber != nil {
			outcome.SearchCell = actor.Board.FindUnmarked(*room.CurrentNumber)
		}
	case entity.ItemBomb:
		if err := that.throwBomb(ctx, roomCode, actor, opponents, outcome); err != nil {
			return nil, err
		}
	case entity.ItemShield:
		if err := that.raiseShield(ctx, roomCode, actor); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// throwBomb stuns a uniformly random opponent among those neither stunned
// nor shielded. No eligible target is not an error: the item is already
// spent and nothing else changes.
func (that *ItemResolver) throwBomb(ctx context.Context, roomCode string, actor *entity.Player, opponents []*entity.Player, outcome *ItemOutcome) error {
	targets := make([]*entity.Player, 0, len(opponents))
	for _, opponent := range opponents {
		if opponent.ID == actor.ID {
			continue
		}
		if opponent.IsBombTarget() {
			targets = append(targets, opponent)
		}
	}

	if len(targets) == 0 {
		that.logger.Info("bomb found no target", "code", roomCode, "playerID", actor.ID)
		return nil
	}

	victim := targets[rand.Intn(len(targets))] //nolint:gosec // victim choice needs no crypto randomness

	status := entity.PlayerStunned
	if err := that.players.Update(ctx, roomCode, victim.ID, entity.PlayerPatch{Status: &status}); err != nil {
		return fmt.Errorf("failed to stun player: %w", err)
	}

	outcome.VictimID = victim.ID
	outcome.VictimName = victim.Name

	return nil
}

// raiseShield sets the actor's immunity flag and schedules its expiry. The
// deferred reset is best effort: a failed write is dropped, not retried.
func (that *ItemResolver) raiseShield(ctx context.Context, roomCode string, actor *entity.Player) error {
	active := true
	if err := that.players.Update(ctx, roomCode, actor.ID, entity.PlayerPatch{ShieldActive: &active}); err != nil {
		return fmt.Errorf("failed to raise shield: %w", err)
	}

	playerID := actor.ID
	time.AfterFunc(that.shieldDuration, func() {
		expireCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		inactive := false
		if err := that.players.Update(expireCtx, roomCode, playerID, entity.PlayerPatch{ShieldActive: &inactive}); err != nil {
			that.logger.Error("failed to drop shield", "code", roomCode, "playerID", playerID, "error", err)
		}
	})

	return nil
}
