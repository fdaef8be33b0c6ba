package entity

import "time"

const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"
	StatusEnded   = "ended"
)

// Room is the authoritative shared record for one game session. The
// CurrentNumber/Drawn/Pool triple is written only by the host's draw loop;
// everything else is written through field-level partial updates so
// concurrent writers touching disjoint fields never clobber each other.
type Room struct {
	Code          string    `json:"code"`
	HostID        string    `json:"host_id"`
	Status        string    `json:"status"`
	CurrentNumber *int      `json:"current_number,omitempty"`
	Drawn         []int     `json:"drawn"`
	Pool          []int     `json:"pool"`
	LastDrawAt    time.Time `json:"last_draw_at,omitempty"`
	Winner        string    `json:"winner,omitempty"`
}

func NewRoom(code, hostID string) *Room {
	return &Room{
		Code:   code,
		HostID: hostID,
		Status: StatusWaiting,
		Drawn:  []int{},
		Pool:   []int{},
	}
}

// FullPool returns the freshly reset draw pool 1..75. The pool is reset once,
// on the waiting→playing transition; numbers only ever leave it afterwards.
func FullPool() []int {
	pool := make([]int, MaxNumber)
	for i := range pool {
		pool[i] = i + 1
	}

	return pool
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsEnded() bool {
	return that.Status == StatusEnded
}

func (that *Room) IsHost(playerID string) bool {
	return that.HostID == playerID
}
