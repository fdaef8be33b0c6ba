package entity

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	BoardSize  = 5
	BoardCells = BoardSize * BoardSize

	// WildcardIndex is the free center cell; it carries WildcardValue and is
	// marked from generation onward.
	WildcardIndex = 12
	WildcardValue = 0

	ColumnSpan = 15
	MaxNumber  = 75
)

var ErrCellOutOfRange = errors.New("cell index out of range")

// WinLines are the twelve patterns a board can complete: five rows, five
// columns and both diagonals.
var WinLines = [12][5]int{
	{0, 1, 2, 3, 4},
	{5, 6, 7, 8, 9},
	{10, 11, 12, 13, 14},
	{15, 16, 17, 18, 19},
	{20, 21, 22, 23, 24},
	{0, 5, 10, 15, 20},
	{1, 6, 11, 16, 21},
	{2, 7, 12, 17, 22},
	{3, 8, 13, 18, 23},
	{4, 9, 14, 19, 24},
	{0, 6, 12, 18, 24},
	{4, 8, 12, 16, 20},
}

type Cell struct {
	Value  int  `json:"value"`
	Marked bool `json:"marked"`
}

// Board is a player's 5×5 card, stored row-major. Column c holds five
// distinct values from [15c+1, 15c+15]; the center cell is the wildcard.
type Board [BoardCells]Cell

func NewBoard() *Board {
	var board Board

	for col := 0; col < BoardSize; col++ {
		low := col*ColumnSpan + 1

		picked := make(map[int]bool, BoardSize)
		column := make([]int, 0, BoardSize)
		for len(column) < BoardSize {
			num := low + rand.Intn(ColumnSpan) //nolint:gosec // board values need no crypto randomness
			if picked[num] {
				continue
			}
			picked[num] = true
			column = append(column, num)
		}

		for row := 0; row < BoardSize; row++ {
			idx := row*BoardSize + col
			board[idx] = Cell{Value: column[row]}
		}
	}

	board[WildcardIndex] = Cell{Value: WildcardValue, Marked: true}

	return &board
}

// Mark sets the cell at idx marked. Marking is one-way: a marked cell is
// never unmarked.
func (that *Board) Mark(idx int) error {
	if idx < 0 || idx >= BoardCells {
		return fmt.Errorf("%w: cell %d", ErrCellOutOfRange, idx)
	}

	that[idx].Marked = true

	return nil
}

// HasWon reports whether at least one win line is fully marked. It depends
// only on the marked cells, so any holder of the board can recompute it.
func (that *Board) HasWon() bool {
	return that.CompletedLines() > 0
}

// CompletedLines counts fully marked win lines; advisory score only.
func (that *Board) CompletedLines() int {
	completed := 0

	for _, line := range WinLines {
		full := true
		for _, idx := range line {
			if !that[idx].Marked {
				full = false
				break
			}
		}
		if full {
			completed++
		}
	}

	return completed
}

// FindUnmarked returns the index of the first unmarked cell holding value,
// or -1 if no such cell exists.
func (that *Board) FindUnmarked(value int) int {
	for idx, cell := range that {
		if cell.Value == value && !cell.Marked {
			return idx
		}
	}

	return -1
}

// Matches reports whether the cell at idx may be marked against the given
// called number: either its value was just called or it is the wildcard.
func (that *Board) Matches(idx, called int) bool {
	if idx < 0 || idx >= BoardCells {
		return false
	}

	return that[idx].Value == called || that[idx].Value == WildcardValue
}
