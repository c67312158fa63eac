package book

// InvertToNo derives the complementary "no" book from an aggregated "yes"
// book. A "no" bid at price p is economically a "yes" ask at 1-p, and a "no"
// ask at p a "yes" bid at 1-p. Sizes and venue contributions carry over
// unchanged; cumulative sums and the derived best/spread/mid fields are
// recomputed per side. An empty book is returned as is.
func InvertToNo(b *AggregatedBook) *AggregatedBook {
	if len(b.Bids) == 0 && len(b.Asks) == 0 {
		return b
	}

	noBids := invertLevels(b.Asks)
	noAsks := invertLevels(b.Bids)
	sortLevels(noBids, true)
	sortLevels(noAsks, false)
	fillCumulative(noBids)
	fillCumulative(noAsks)

	inv := &AggregatedBook{Bids: noBids, Asks: noAsks}
	finishBook(inv)
	return inv
}

func invertLevels(levels []AggregatedLevel) []AggregatedLevel {
	out := make([]AggregatedLevel, len(levels))
	for i, lvl := range levels {
		venues := make(map[VenueID]float64, len(lvl.Venues))
		for v, size := range lvl.Venues {
			venues[v] = size
		}
		out[i] = AggregatedLevel{
			// Re-round to absorb floating error from the complement.
			Price:     RoundToTick(1 - lvl.Price),
			TotalSize: lvl.TotalSize,
			Venues:    venues,
		}
	}
	return out
}
