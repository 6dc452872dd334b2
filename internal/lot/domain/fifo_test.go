package domain_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
)

func fifoLot(id, lotNumber string, batchNumber *string, manufactured time.Time) *domain.LotBatch {
	return &domain.LotBatch{
		ID:                id,
		LotNumber:         lotNumber,
		BatchNumber:       batchNumber,
		ManufacturingDate: manufactured,
	}
}

func TestSortFIFO_OldestManufacturedFirst(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	lots := []*domain.LotBatch{
		fifoLot("b", "LOT-B", nil, jan2),
		fifoLot("a", "LOT-A", nil, jan1),
	}
	domain.SortFIFO(lots)

	assert.Equal(t, "LOT-A", lots[0].LotNumber)
	assert.Equal(t, "LOT-B", lots[1].LotNumber)
}

func TestSortFIFO_TieBreaks(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b1 := "B1"
	b2 := "B2"

	lots := []*domain.LotBatch{
		fifoLot("4", "LOT-X", &b2, day),
		fifoLot("3", "LOT-X", &b1, day),
		fifoLot("2", "LOT-X", nil, day),
		fifoLot("1", "LOT-A", &b2, day),
	}
	domain.SortFIFO(lots)

	// Lot number first, then nil batch before batches, then batch ascending
	assert.Equal(t, "1", lots[0].ID)
	assert.Equal(t, "2", lots[1].ID)
	assert.Equal(t, "3", lots[2].ID)
	assert.Equal(t, "4", lots[3].ID)
}

func TestSortFIFO_NonDecreasingAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	build := func() []*domain.LotBatch {
		lots := make([]*domain.LotBatch, 0, 50)
		for i := 0; i < 50; i++ {
			var batch *string
			if i%3 == 0 {
				b := string(rune('A' + i%5))
				batch = &b
			}
			lots = append(lots, fifoLot(
				string(rune('a'+i%26))+string(rune('0'+i/26)),
				"LOT-"+string(rune('A'+i%7)),
				batch,
				base.AddDate(0, 0, i%10),
			))
		}
		rng.Shuffle(len(lots), func(i, j int) { lots[i], lots[j] = lots[j], lots[i] })
		return lots
	}

	first := build()
	domain.SortFIFO(first)

	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].ManufacturingDate.Before(first[i-1].ManufacturingDate),
			"manufacturing dates must be non-decreasing at %d", i)
	}

	// Re-shuffling and re-sorting yields the identical order
	second := build()
	domain.SortFIFO(second)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "order diverged at %d", i)
	}
}
