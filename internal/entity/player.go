package entity

const (
	PlayerNormal  = "normal"
	PlayerStunned = "stunned"

	// ItemSearch marks the first unmarked cell matching the current number on
	// the user's own board. ItemBomb stuns a random unshielded opponent.
	// ItemShield grants temporary immunity against bombs.
	ItemSearch = "search"
	ItemBomb   = "bomb"
	ItemShield = "shield"

	InitialItemCount = 1
)

var ItemKinds = []string{ItemSearch, ItemBomb, ItemShield}

// Player is one participant's record within a room. Board and Items are
// mutated only by the player's own actions; Status is the one intentional
// multi-writer field (a bomb writes a foreign player's status).
type Player struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Board        *Board         `json:"board"`
	Items        map[string]int `json:"items"`
	Status       string         `json:"status"`
	ShieldActive bool           `json:"shield_active"`
	HasWon       bool           `json:"has_won"`
	Score        int            `json:"score"`
}

func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Board: NewBoard(),
		Items: map[string]int{
			ItemSearch: InitialItemCount,
			ItemBomb:   InitialItemCount,
			ItemShield: InitialItemCount,
		},
		Status: PlayerNormal,
	}
}

func (that *Player) IsStunned() bool {
	return that.Status == PlayerStunned
}

// IsBombTarget reports whether the player may be stunned by an opponent's
// bomb: not already stunned and not shielded.
func (that *Player) IsBombTarget() bool {
	return !that.IsStunned() && !that.ShieldActive
}

func (that *Player) ItemCount(kind string) int {
	if that.Items == nil {
		return 0
	}

	return that.Items[kind]
}
