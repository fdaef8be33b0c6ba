package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/pkg"
)

const (
	actionConnect   = "connect"
	actionRoomNew   = "room:new"
	actionRoomJoin  = "room:join"
	actionRoomStart = "room:start"
	actionRoomLeave = "room:leave"
	actionCellMark  = "cell:mark"
	actionItemUse   = "item:use"
)

func (that *connection) dispatch(ctx context.Context, msg *Message) error {
	var req request
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	if msg.Action == actionConnect {
		return that.handleConnect(ctx, &req)
	}

	if that.session == nil {
		return that.sendError(msg.Action, "connect first")
	}

	switch msg.Action {
	case actionRoomNew:
		return that.handleRoomNew(ctx)
	case actionRoomJoin:
		return that.handleRoomJoin(ctx, &req)
	case actionRoomStart:
		return that.handleRoomStart(ctx)
	case actionRoomLeave:
		return that.handleRoomLeave()
	case actionCellMark:
		return that.handleCellMark(ctx, &req)
	case actionItemUse:
		return that.handleItemUse(ctx, &req)
	default:
		return that.sendError(msg.Action, "unknown action")
	}
}

// handleConnect binds the identity supplied by the client to a fresh
// session. The id is an opaque stable token; a client without one gets a new
// one. The display name is required, matching the login step.
func (that *connection) handleConnect(ctx context.Context, req *request) error {
	log := that.server.logger.With("method", "handleConnect")

	// One identity per socket: a repeat connect would orphan the first
	// session's subscriptions and event pump.
	if that.session != nil {
		return that.sendError(actionConnect, "already connected")
	}

	if req.Player == nil || req.Player.Name == "" {
		return that.sendError(actionConnect, "player name is required")
	}

	playerID := req.Player.ID
	if playerID == "" {
		playerID = pkg.GenerateNewSessionID()
	}

	that.session = that.server.sessions.NewSession(playerID, req.Player.Name)

	go that.pumpEvents(ctx)

	log.Info("player connected", "playerID", playerID)

	return that.send(actionConnect, Payload{Notice: playerID})
}

func (that *connection) handleRoomNew(ctx context.Context) error {
	room, err := that.session.CreateRoom(ctx)
	if err != nil {
		that.server.logger.Error("failed to create room", "error", err)
		return that.sendError(actionRoomNew, "failed to create room")
	}

	return that.send(actionRoomNew, Payload{Room: room})
}

func (that *connection) handleRoomJoin(ctx context.Context, req *request) error {
	if req.Room == nil || req.Room.Code == "" {
		return that.sendError(actionRoomJoin, "room code is required")
	}

	room, err := that.session.JoinRoom(ctx, req.Room.Code)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return that.sendError(actionRoomJoin, "room not found")
	}

	if errors.Is(err, apperror.ErrRoomNotJoinable) {
		return that.sendError(actionRoomJoin, "game already started")
	}

	if err != nil {
		that.server.logger.Error("failed to join room", "error", err)
		return that.sendError(actionRoomJoin, "failed to join room")
	}

	return that.send(actionRoomJoin, Payload{Room: room})
}

func (that *connection) handleRoomStart(ctx context.Context) error {
	err := that.session.StartGame(ctx)
	if errors.Is(err, apperror.ErrNotHost) {
		return that.sendError(actionRoomStart, "only the host can start")
	}

	if err != nil {
		that.server.logger.Error("failed to start game", "error", err)
		return that.sendError(actionRoomStart, "failed to start game")
	}

	return nil
}

func (that *connection) handleRoomLeave() error {
	that.session.LeaveRoom()

	return that.send(actionRoomLeave, Payload{Notice: "left room"})
}

// handleCellMark rejects invalid activations quietly: a stunned player, a
// stale number or an already marked cell produce a notice, never a mutation.
func (that *connection) handleCellMark(ctx context.Context, req *request) error {
	if req.Cell == nil {
		return that.sendError(actionCellMark, "cell is required")
	}

	err := that.session.MarkCell(ctx, *req.Cell)
	switch {
	case errors.Is(err, apperror.ErrPlayerStunned),
		errors.Is(err, apperror.ErrNoActiveNumber),
		errors.Is(err, apperror.ErrCellMarked),
		errors.Is(err, apperror.ErrNumberNotCalled):
		return that.sendError(actionCellMark, err.Error())
	case err != nil:
		that.server.logger.Error("failed to mark cell", "error", err)
		return that.sendError(actionCellMark, "failed to mark cell")
	}

	return nil
}

func (that *connection) handleItemUse(ctx context.Context, req *request) error {
	if req.Item == "" {
		return that.sendError(actionItemUse, "item is required")
	}

	err := that.session.UseItem(ctx, req.Item)
	switch {
	case errors.Is(err, apperror.ErrItemExhausted),
		errors.Is(err, apperror.ErrPlayerStunned),
		errors.Is(err, apperror.ErrUnknownItem):
		return that.sendError(actionItemUse, err.Error())
	case err != nil:
		that.server.logger.Error("failed to use item", "error", err)
		return that.sendError(actionItemUse, "failed to use item")
	}

	return nil
}
