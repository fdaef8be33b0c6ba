package entity

import "time"

// Patches carry field-level partial updates: only non-nil fields reach the
// store, so concurrent writers touching disjoint fields never overwrite each
// other's work.

type RoomPatch struct {
	Status        *string
	CurrentNumber *int
	Drawn         []int
	Pool          []int
	LastDrawAt    *time.Time
	Winner        *string
}

type PlayerPatch struct {
	Board        *Board
	Status       *string
	ShieldActive *bool
	HasWon       *bool
	Score        *int
}
