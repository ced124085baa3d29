package entity

const (
	CellQuestion = "question"
	CellRest     = "rest"
)

// Cell is one board position. Question cells require a team response;
// rest cells advance the turn without one. Boosted cells multiply the
// scoring deltas applied on them.
type Cell struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Boosted bool   `json:"boosted,omitempty"`
}

func (that Cell) RequiresResponse() bool {
	return that.Kind == CellQuestion
}

type Board struct {
	Size  int    `json:"size"`
	Cells []Cell `json:"cells"`
}

// NewBoard builds a board where every eighth cell is a rest cell and every
// fifth a boosted one, starting from the start cell at index 0.
func NewBoard(size int) *Board {
	cells := make([]Cell, size)
	for i := range cells {
		kind := CellQuestion
		if i%8 == 0 {
			kind = CellRest
		}

		cells[i] = Cell{
			Index:   i,
			Kind:    kind,
			Boosted: i != 0 && i%5 == 0,
		}
	}

	return &Board{Size: size, Cells: cells}
}

func (that *Board) Cell(index int) Cell {
	return that.Cells[((index%that.Size)+that.Size)%that.Size]
}

// Advance computes where a token ends up after moving the given number of
// steps, and how many times it crossed the start boundary on the way. The
// crossing count is derived from the final displacement, not from any
// intermediate step, so pausing and resuming a rendered move cannot double
// or miss a lap.
func (that *Board) Advance(position, steps int) (newPosition, laps int) {
	if steps <= 0 {
		return position, 0
	}

	total := position + steps

	return total % that.Size, total / that.Size
}
