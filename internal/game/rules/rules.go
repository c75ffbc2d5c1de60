// Package rules implements move validation and win/draw detection for
// Gomoku. It is pure: no I/O and no state beyond the board passed in.
package rules

// BoardSize is the width and height of the board.
const BoardSize = 15

// WinLength is the number of contiguous stones required to win.
const WinLength = 5

// Cell is the content of one board intersection.
type Cell int8

const (
	Empty Cell = 0
	Black Cell = 1
	White Cell = 2
)

// Board is the full grid of cells. The zero value is an empty board.
// It marshals to the wire format: a 2-D array of integers.
type Board [BoardSize][BoardSize]Cell

// axes are the four scan directions: right, down, down-right, up-right.
// The opposite directions are covered by scanning backwards along each axis.
var axes = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// IsLegalMove reports whether placing a stone at (row, col) is allowed:
// the coordinate is on the board and the cell is empty.
func IsLegalMove(board Board, row, col int) bool {
	if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
		return false
	}
	return board[row][col] == Empty
}

// WithStone returns a copy of board with player's stone placed at (row, col).
func WithStone(board Board, row, col int, player Cell) Board {
	board[row][col] = player
	return board
}

// CheckWin reports whether the stone at (row, col) completes a run of
// WinLength or more contiguous stones of player along any axis.
func CheckWin(board Board, row, col int, player Cell) bool {
	for _, axis := range axes {
		dr, dc := axis[0], axis[1]
		count := 1 // the placed stone itself

		r, c := row+dr, col+dc
		for r >= 0 && r < BoardSize && c >= 0 && c < BoardSize && board[r][c] == player {
			count++
			r += dr
			c += dc
		}

		r, c = row-dr, col-dc
		for r >= 0 && r < BoardSize && c >= 0 && c < BoardSize && board[r][c] == player {
			count++
			r -= dr
			c -= dc
		}

		if count >= WinLength {
			return true
		}
	}
	return false
}

// IsDraw reports whether the board is full. Callers are expected to have
// checked for a win on the placing move first.
func IsDraw(board Board) bool {
	for _, row := range board {
		for _, cell := range row {
			if cell == Empty {
				return false
			}
		}
	}
	return true
}
