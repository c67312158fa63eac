package book

import (
	"math"
	"sort"
)

// RoundToTick snaps a price to the nearest tick.
func RoundToTick(p float64) float64 {
	return math.Round(p/Tick) * Tick
}

// tickKey derives an integer bucket key from a price. Map lookups never use
// the raw float, so levels that round to the same tick cannot split into
// separate buckets through representation error.
func tickKey(p float64) int {
	return int(math.Round(p / Tick))
}

// Aggregate merges per-venue books into one cross-venue book at tick
// resolution. Nil entries are skipped. The result does not depend on the
// order of the input books.
func Aggregate(books []*NormalizedBook) *AggregatedBook {
	valid := books[:0:0]
	for _, b := range books {
		if b != nil {
			valid = append(valid, b)
		}
	}
	if len(valid) == 0 {
		return &AggregatedBook{Bids: []AggregatedLevel{}, Asks: []AggregatedLevel{}}
	}

	agg := &AggregatedBook{
		Bids: aggregateSide(valid, func(b *NormalizedBook) []NormalizedLevel { return b.Bids }, true),
		Asks: aggregateSide(valid, func(b *NormalizedBook) []NormalizedLevel { return b.Asks }, false),
	}
	finishBook(agg)
	return agg
}

func aggregateSide(books []*NormalizedBook, side func(*NormalizedBook) []NormalizedLevel, descending bool) []AggregatedLevel {
	buckets := make(map[int]map[VenueID]float64)
	for _, b := range books {
		for _, lvl := range side(b) {
			key := tickKey(lvl.Price)
			venues, ok := buckets[key]
			if !ok {
				venues = make(map[VenueID]float64)
				buckets[key] = venues
			}
			venues[b.Venue] += lvl.Size
		}
	}

	levels := make([]AggregatedLevel, 0, len(buckets))
	for key, venues := range buckets {
		var total float64
		for _, size := range venues {
			total += size
		}
		levels = append(levels, AggregatedLevel{
			Price:     float64(key) * Tick,
			TotalSize: total,
			Venues:    venues,
		})
	}

	sortLevels(levels, descending)
	fillCumulative(levels)
	return levels
}

func sortLevels(levels []AggregatedLevel, descending bool) {
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
}

func fillCumulative(levels []AggregatedLevel) {
	var cum float64
	for i := range levels {
		cum += levels[i].TotalSize
		levels[i].CumulativeSize = cum
	}
}

// finishBook derives BestBid/BestAsk/Spread/MidPrice from the sorted sides.
func finishBook(agg *AggregatedBook) {
	if len(agg.Bids) > 0 {
		p := agg.Bids[0].Price
		agg.BestBid = &p
	}
	if len(agg.Asks) > 0 {
		p := agg.Asks[0].Price
		agg.BestAsk = &p
	}

	switch {
	case agg.BestBid != nil && agg.BestAsk != nil:
		agg.Spread = *agg.BestAsk - *agg.BestBid
		agg.MidPrice = (*agg.BestBid + *agg.BestAsk) / 2
	case agg.BestBid != nil:
		agg.MidPrice = *agg.BestBid
	case agg.BestAsk != nil:
		agg.MidPrice = *agg.BestAsk
	}
}
