package domain

import "sort"

// FIFOLess reports whether a sorts before b in first-in-first-out order:
// oldest manufacturing date first, ties broken by lot number, then batch
// number with nil sorting before non-nil, then id. The final id tiebreak
// makes the order total so repeated runs agree.
func FIFOLess(a, b *LotBatch) bool {
	if !a.ManufacturingDate.Equal(b.ManufacturingDate) {
		return a.ManufacturingDate.Before(b.ManufacturingDate)
	}
	if a.LotNumber != b.LotNumber {
		return a.LotNumber < b.LotNumber
	}
	switch {
	case a.BatchNumber == nil && b.BatchNumber != nil:
		return true
	case a.BatchNumber != nil && b.BatchNumber == nil:
		return false
	case a.BatchNumber != nil && b.BatchNumber != nil && *a.BatchNumber != *b.BatchNumber:
		return *a.BatchNumber < *b.BatchNumber
	}
	return a.ID < b.ID
}

// SortFIFO orders lots for allocation and display
func SortFIFO(lots []*LotBatch) {
	sort.Slice(lots, func(i, j int) bool {
		return FIFOLess(lots[i], lots[j])
	})
}
