package pkg

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// Room codes are short and human-shareable, not unguessable; collisions are
// caught at creation time and retried.
const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateRoomCode(length int) string {
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]) //nolint:gosec // codes are shareable, not secret
	}

	return builder.String()
}

// NormalizeRoomCode maps a human-entered code to its canonical form.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func GenerateNewSessionID() string {
	return uuid.NewString()
}
