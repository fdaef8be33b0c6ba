package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoard(t *testing.T) {
	// Boards are random; run generation enough times to trust the column
	// constraints hold in general, not by luck.
	for i := 0; i < 200; i++ {
		// When: a new board is generated
		board := NewBoard()
		require.NotNil(t, board)

		// Then: the center cell is the wildcard and already marked
		require.Equal(t, WildcardValue, board[WildcardIndex].Value)
		require.True(t, board[WildcardIndex].Marked)

		// Then: every column holds distinct values within its 15-wide range
		for col := 0; col < BoardSize; col++ {
			low := col*ColumnSpan + 1
			high := col*ColumnSpan + ColumnSpan

			seen := make(map[int]bool)
			for row := 0; row < BoardSize; row++ {
				idx := row*BoardSize + col
				if idx == WildcardIndex {
					continue
				}

				cell := board[idx]
				require.False(t, cell.Marked, "non-wildcard cell %d generated marked", idx)
				require.GreaterOrEqual(t, cell.Value, low)
				require.LessOrEqual(t, cell.Value, high)
				require.False(t, seen[cell.Value], "duplicate value %d in column %d", cell.Value, col)
				seen[cell.Value] = true
			}
		}
	}
}

func TestBoard_HasWon(t *testing.T) {
	t.Run("fresh board has not won", func(t *testing.T) {
		// Given: a freshly generated board
		board := NewBoard()

		// Then: the wildcard alone satisfies no line
		assert.False(t, board.HasWon())
		assert.Equal(t, 0, board.CompletedLines())
	})

	t.Run("every line pattern wins when fully marked", func(t *testing.T) {
		for _, line := range WinLines {
			// Given: a board with exactly one pattern marked
			board := NewBoard()
			for _, idx := range line {
				require.NoError(t, board.Mark(idx))
			}

			// Then: the board has won
			assert.True(t, board.HasWon(), "line %v should win", line)
		}
	})

	t.Run("four of five marked is not a win", func(t *testing.T) {
		// Given: the top row marked except its last cell
		board := NewBoard()
		for _, idx := range []int{0, 1, 2, 3} {
			require.NoError(t, board.Mark(idx))
		}

		assert.False(t, board.HasWon())
	})

	t.Run("completed lines counts overlapping patterns", func(t *testing.T) {
		// Given: the middle row and middle column both marked; they share
		// the wildcard
		board := NewBoard()
		for _, idx := range []int{10, 11, 13, 14, 2, 7, 17, 22} {
			require.NoError(t, board.Mark(idx))
		}

		assert.Equal(t, 2, board.CompletedLines())
	})
}

func TestBoard_Mark(t *testing.T) {
	t.Run("marking is one-way", func(t *testing.T) {
		board := NewBoard()

		require.NoError(t, board.Mark(0))
		require.True(t, board[0].Marked)

		// Marking again changes nothing
		require.NoError(t, board.Mark(0))
		require.True(t, board[0].Marked)
	})

	t.Run("out of range is rejected", func(t *testing.T) {
		board := NewBoard()

		assert.ErrorIs(t, board.Mark(-1), ErrCellOutOfRange)
		assert.ErrorIs(t, board.Mark(BoardCells), ErrCellOutOfRange)
	})
}

func TestBoard_FindUnmarked(t *testing.T) {
	// Given: a board with a known value in an unmarked cell
	board := NewBoard()
	value := board[0].Value

	// When: searching for it
	idx := board.FindUnmarked(value)

	// Then: its cell is found; column values are distinct, so marking it
	// leaves nothing else to find
	require.Equal(t, 0, idx)

	require.NoError(t, board.Mark(0))
	assert.Equal(t, -1, board.FindUnmarked(value))

	// A number outside the universe is never found
	assert.Equal(t, -1, board.FindUnmarked(MaxNumber+1))
}

func TestBoard_Matches(t *testing.T) {
	board := NewBoard()

	// A cell matches its own value when called
	assert.True(t, board.Matches(0, board[0].Value))

	// The wildcard matches any call
	assert.True(t, board.Matches(WildcardIndex, 42))

	// A cell does not match a different call
	assert.False(t, board.Matches(0, board[1].Value))

	// Out of range never matches
	assert.False(t, board.Matches(-1, 1))
	assert.False(t, board.Matches(BoardCells, 1))
}
