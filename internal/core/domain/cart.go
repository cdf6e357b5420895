package domain

import "sort"

type CartLine struct {
	CartID    int64
	VehicleID int64
	Quantity  int
}

type Cart struct {
	ID     int64
	UserID int64
	Lines  []CartLine
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// SortedLines returns a copy of the lines ordered by ascending vehicle id.
func (c *Cart) SortedLines() []CartLine {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].VehicleID < lines[j].VehicleID
	})
	return lines
}

// Line returns the line for vehicleID, if present.
func (c *Cart) Line(vehicleID int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.VehicleID == vehicleID {
			return l, true
		}
	}
	return CartLine{}, false
}
