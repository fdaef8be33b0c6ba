package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rocketscienceinc/bingobattle-backend/internal/apperror"
	"github.com/rocketscienceinc/bingobattle-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func playingRoom(t *testing.T, rooms *fakeRoomStore, code string) {
	t.Helper()

	room := entity.NewRoom(code, "host-1")
	room.Status = entity.StatusPlaying
	room.Pool = entity.FullPool()
	require.NoError(t, rooms.Create(context.Background(), room))
}

func TestDrawLoop_DrawNext(t *testing.T) {
	ctx := context.Background()

	t.Run("draws stay disjoint and never repeat", func(t *testing.T) {
		// Given: a playing room with a full pool
		rooms := newFakeRoomStore()
		playingRoom(t, rooms, "ABC123")

		loop := NewDrawLoop(testLogger(), rooms, time.Second)

		// When: k numbers are drawn
		const k = 30
		for i := 0; i < k; i++ {
			require.NoError(t, loop.DrawNext(ctx, "ABC123"))
		}

		// Then: |drawn| = k, |pool| = 75-k, and both sets are disjoint
		room, err := rooms.GetByCode(ctx, "ABC123")
		require.NoError(t, err)
		require.Len(t, room.Drawn, k)
		require.Len(t, room.Pool, entity.MaxNumber-k)

		drawn := make(map[int]bool, k)
		for _, number := range room.Drawn {
			require.False(t, drawn[number], "number %d drawn twice", number)
			drawn[number] = true
		}
		for _, number := range room.Pool {
			require.False(t, drawn[number], "number %d in both pool and drawn", number)
		}

		// Then: the current number is the most recent draw
		require.NotNil(t, room.CurrentNumber)
		assert.Equal(t, room.Drawn[len(room.Drawn)-1], *room.CurrentNumber)
		assert.False(t, room.LastDrawAt.IsZero())
	})

	t.Run("empty pool halts without a commit", func(t *testing.T) {
		// Given: a playing room whose pool ran dry
		rooms := newFakeRoomStore()
		room := entity.NewRoom("ABC123", "host-1")
		room.Status = entity.StatusPlaying
		room.Pool = []int{}
		require.NoError(t, rooms.Create(context.Background(), room))

		loop := NewDrawLoop(testLogger(), rooms, time.Second)

		// When: a draw is attempted
		err := loop.DrawNext(ctx, "ABC123")

		// Then: the exhausted-pool condition surfaces and the room stays
		// playing with no new state
		require.ErrorIs(t, err, apperror.ErrPoolExhausted)

		after, err := rooms.GetByCode(ctx, "ABC123")
		require.NoError(t, err)
		assert.True(t, after.IsPlaying())
		assert.Nil(t, after.CurrentNumber)
		assert.Empty(t, rooms.patches)
	})

	t.Run("waiting room draws nothing", func(t *testing.T) {
		rooms := newFakeRoomStore()
		require.NoError(t, rooms.Create(context.Background(), entity.NewRoom("ABC123", "host-1")))

		loop := NewDrawLoop(testLogger(), rooms, time.Second)

		require.ErrorIs(t, loop.DrawNext(ctx, "ABC123"), apperror.ErrRoomNotPlaying)
	})

	t.Run("missing room surfaces not found", func(t *testing.T) {
		loop := NewDrawLoop(testLogger(), newFakeRoomStore(), time.Second)

		require.ErrorIs(t, loop.DrawNext(ctx, "NOPE"), apperror.ErrRoomNotFound)
	})
}

func TestDrawLoop_Run(t *testing.T) {
	t.Run("stops when the room leaves playing", func(t *testing.T) {
		// Given: a playing room and a fast loop
		rooms := newFakeRoomStore()
		playingRoom(t, rooms, "ABC123")

		loop := NewDrawLoop(testLogger(), rooms, 5*time.Millisecond)

		done := make(chan error, 1)
		go func() {
			done <- loop.Run(context.Background(), "ABC123")
		}()

		// When: the room ends mid-game
		time.Sleep(25 * time.Millisecond)
		status := entity.StatusEnded
		require.NoError(t, rooms.Update(context.Background(), "ABC123", entity.RoomPatch{Status: &status}))

		// Then: the loop returns on its own
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("draw loop did not stop")
		}
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		rooms := newFakeRoomStore()
		playingRoom(t, rooms, "ABC123")

		loop := NewDrawLoop(testLogger(), rooms, 5*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- loop.Run(ctx, "ABC123")
		}()

		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("draw loop did not stop")
		}
	})

	t.Run("stops when the pool runs out", func(t *testing.T) {
		// Given: a playing room with a single number left
		rooms := newFakeRoomStore()
		room := entity.NewRoom("ABC123", "host-1")
		room.Status = entity.StatusPlaying
		room.Pool = []int{42}
		require.NoError(t, rooms.Create(context.Background(), room))

		loop := NewDrawLoop(testLogger(), rooms, 5*time.Millisecond)

		done := make(chan error, 1)
		go func() {
			done <- loop.Run(context.Background(), "ABC123")
		}()

		// Then: the last number is drawn, then the loop halts
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("draw loop did not stop")
		}

		after, err := rooms.GetByCode(context.Background(), "ABC123")
		require.NoError(t, err)
		require.NotNil(t, after.CurrentNumber)
		assert.Equal(t, 42, *after.CurrentNumber)
		assert.Empty(t, after.Pool)
		assert.True(t, after.IsPlaying())
	})
}
