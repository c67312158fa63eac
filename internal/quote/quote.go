// Package quote walks an aggregated book to fill a dollar notional and
// reports the fills, per-venue allocation and slippage.
package quote

import (
	"sort"

	"crossbook/internal/book"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Fill is shares taken from one venue at one price level.
type Fill struct {
	Venue  book.VenueID `json:"venueId"`
	Price  float64      `json:"price"`
	Shares float64      `json:"shares"`
	Cost   float64      `json:"cost"`
}

// VenueSummary sums a venue's share of the quote.
type VenueSummary struct {
	Venue      book.VenueID `json:"venueId"`
	Shares     float64      `json:"shares"`
	Cost       float64      `json:"cost"`
	Percentage float64      `json:"percentage"`
}

// Result is the outcome of a quote simulation. Ephemeral, recomputed per
// request.
type Result struct {
	TotalShares  float64        `json:"totalShares"`
	TotalCost    float64        `json:"totalCost"`
	AveragePrice float64        `json:"averagePrice"`
	Fills        []Fill         `json:"fills"`
	Venues       []VenueSummary `json:"venueBreakdown"`
	Unfilled     float64        `json:"unfilled"`
	SlippageBps  float64        `json:"slippageBps"`
}

// Quote fills notional dollars against the book. Buys walk the asks
// ascending, sells walk the bids descending. Partial levels are allocated
// across venues pro rata to their contributed size.
func Quote(b *book.AggregatedBook, notional float64, side Side) Result {
	levels := b.Asks
	if side == SideSell {
		levels = b.Bids
	}

	remaining := notional
	fills := []Fill{}

	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}

		levelCost := lvl.TotalSize * lvl.Price

		if remaining >= levelCost {
			for _, venue := range sortedVenues(lvl.Venues) {
				size := lvl.Venues[venue]
				fills = append(fills, Fill{
					Venue:  venue,
					Price:  lvl.Price,
					Shares: size,
					Cost:   size * lvl.Price,
				})
			}
			remaining -= levelCost
			continue
		}

		sharesAtLevel := remaining / lvl.Price
		for _, venue := range sortedVenues(lvl.Venues) {
			shares := sharesAtLevel * (lvl.Venues[venue] / lvl.TotalSize)
			fills = append(fills, Fill{
				Venue:  venue,
				Price:  lvl.Price,
				Shares: shares,
				Cost:   shares * lvl.Price,
			})
		}
		remaining = 0
		break
	}

	var totalShares, totalCost float64
	for _, f := range fills {
		totalShares += f.Shares
		totalCost += f.Cost
	}

	var averagePrice float64
	if totalShares > 0 {
		averagePrice = totalCost / totalShares
	}

	res := Result{
		TotalShares:  totalShares,
		TotalCost:    totalCost,
		AveragePrice: averagePrice,
		Fills:        fills,
		Venues:       summarize(fills, totalCost),
		Unfilled:     max(0, remaining),
		SlippageBps:  slippageBps(averagePrice, b.MidPrice, side),
	}
	return res
}

func summarize(fills []Fill, totalCost float64) []VenueSummary {
	byVenue := make(map[book.VenueID]*VenueSummary)
	order := []book.VenueID{}
	for _, f := range fills {
		sum, ok := byVenue[f.Venue]
		if !ok {
			sum = &VenueSummary{Venue: f.Venue}
			byVenue[f.Venue] = sum
			order = append(order, f.Venue)
		}
		sum.Shares += f.Shares
		sum.Cost += f.Cost
	}

	out := make([]VenueSummary, 0, len(order))
	for _, venue := range order {
		sum := byVenue[venue]
		if totalCost > 0 {
			sum.Percentage = sum.Cost / totalCost * 100
		}
		out = append(out, *sum)
	}
	return out
}

// slippageBps keeps the source convention: positive when a buy pays above mid
// or a sell receives below it, zero when either input is missing.
func slippageBps(averagePrice, midPrice float64, side Side) float64 {
	if midPrice <= 0 || averagePrice <= 0 {
		return 0
	}
	sign := 1.0
	if side == SideSell {
		sign = -1.0
	}
	return (averagePrice - midPrice) / midPrice * 10000 * sign
}

func sortedVenues(venues map[book.VenueID]float64) []book.VenueID {
	out := make([]book.VenueID, 0, len(venues))
	for v := range venues {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
