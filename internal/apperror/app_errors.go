package apperror

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomNotJoinable   = errors.New("room is not accepting players")
	ErrRoomNotPlaying    = errors.New("room is not playing")
	ErrNotHost           = errors.New("only the host may do this")

	ErrPlayerNotFound  = errors.New("player not found")
	ErrPlayerStunned   = errors.New("player is stunned")
	ErrNoActiveNumber  = errors.New("no number has been called")
	ErrCellMarked      = errors.New("cell is already marked")
	ErrNumberNotCalled = errors.New("cell value has not been called")
	ErrItemExhausted   = errors.New("no uses of this item left")
	ErrUnknownItem     = errors.New("unknown item kind")

	ErrPoolExhausted = errors.New("draw pool is exhausted")
)
